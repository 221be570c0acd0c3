// Package ir defines the journal record types shared by the store, the
// harness and the CLI, and their canonical JSON encoding.
//
// This package imports nothing internal. Records carry logical sequence
// numbers only, never wall-clock timestamps, so two runs of the same
// scenario produce byte-identical journals.
//
// Key design constraints:
//   - NO float values anywhere; readings are integer microvolts
//   - All JSON tags use snake_case
//   - Step ids are content-addressed over the canonical encoding
package ir
