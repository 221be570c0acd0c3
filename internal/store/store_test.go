package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardloop/internal/ir"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.Close())
	}
}

func TestOpen_KeepsDataAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	createTestRun(t, s1, "run-1")
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	runs, err := s2.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
}

func TestOpen_Settings(t *testing.T) {
	s := createTestStore(t)

	for _, st := range journalSettings {
		got, err := s.pragma(st.name)
		require.NoError(t, err)
		assert.Equal(t, st.value, got, st.name)
	}
	version, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "1", version)
}

func TestOpen_RejectsNewerJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 2")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	assert.ErrorIs(t, err, ErrNewerJournal)
	assert.Contains(t, err.Error(), "version 2, supported 1")
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	createTestRun(t, s, "run-1")
	require.NoError(t, s.WriteStep(context.Background(), ir.Step{RunID: "run-1", Seq: 1, Kind: ir.KindSystem, Message: "started"}))

	steps, err := s.ReadSteps(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Len(t, steps, 1)
}

func TestClose_NilSafe(t *testing.T) {
	var s *Store
	assert.NoError(t, s.Close())
}
