package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/guardloop/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun writes a run with minimal required fields.
func createTestRun(t *testing.T, s *Store, id string) ir.Run {
	t.Helper()
	run := ir.Run{
		ID:            id,
		Source:        "test.yaml",
		ConfigHash:    "test-hash",
		EngineVersion: ir.EngineVersion,
	}
	require.NoError(t, s.WriteRun(context.Background(), run))
	return run
}
