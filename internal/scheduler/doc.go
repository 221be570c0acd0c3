// Package scheduler runs five fixed-period task lanes from a single
// cooperative loop.
//
// ARCHITECTURE:
//
// Each call to Cycle visits the lanes in ascending-period order
// (1, 10, 100, 250, 1000 ticks). Every lane reads the tick source on its
// own, so lanes visited later in the same Cycle may observe a later tick.
// A lane fires when the ticks elapsed since its last firing reach its
// period; elapsed time uses unsigned modular subtraction, so a wrapping
// 32-bit counter needs no special handling.
//
// CRITICAL PATTERNS:
//
// Zero-Timestamp Guard:
// When a lane becomes due and the tick it read is exactly zero, the
// timestamp is stored but the task is not called. Only a counter that
// reads zero at the moment a lane becomes due is affected.
//
// One-Time Assignment:
// Tasks are bound to lanes once after Initialize and can never be replaced
// or removed. A slow task delays every lane behind it in the same Cycle.
package scheduler
