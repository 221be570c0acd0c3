package store

import "github.com/google/uuid"

// RunIDGenerator produces run identifiers.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDv7 run ids.
//
// UUIDv7 ids sort by creation time, so ListRuns returns runs oldest first.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
// Panics if the system's random source fails, which is unrecoverable.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
