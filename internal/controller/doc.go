// Package controller implements the door/motor control policy as a state
// table interpreted by the engine.
//
// Two distance sensors guard the actuator. While running, every step reads
// both sensors: an implausible reading latches FAILURE, a disagreement of
// the converted distances beyond the tolerance latches EMERGENCY, and a
// healthy step toggles the door status output.
//
// States and transitions are declared as data in table.go; hooks are bound
// to a Controller instance so that each controller owns its collaborators.
package controller
