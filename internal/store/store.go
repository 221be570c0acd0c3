package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// journalVersion is stored in PRAGMA user_version. Bump it with every
// change to schema.sql.
const journalVersion = 1

// ErrNewerJournal is returned when a database was written by a newer
// guardloop.
var ErrNewerJournal = errors.New("journal schema is newer than this build")

// setting is one connection pragma and the value it must read back as.
type setting struct {
	name, value string
}

// journalSettings hold for every connection. busy_timeout lets `trace`
// read a journal while `run` is still appending to it.
var journalSettings = []setting{
	{"journal_mode", "wal"},
	{"synchronous", "1"}, // NORMAL
	{"busy_timeout", "5000"},
	{"foreign_keys", "1"},
}

// Store is a SQLite run journal.
type Store struct {
	db *sql.DB
}

// Open opens the journal at path, creating it and its tables when needed.
// ":memory:" opens a private journal that disappears on Close.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	// A single connection serializes the journal writer and keeps a
	// ":memory:" database alive between statements.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func prepare(db *sql.DB) error {
	for _, st := range journalSettings {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", st.name, st.value)); err != nil {
			return fmt.Errorf("pragma %s: %w", st.name, err)
		}
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read journal version: %w", err)
	}
	if version > journalVersion {
		return fmt.Errorf("%w: version %d, supported %d", ErrNewerJournal, version, journalVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", journalVersion)); err != nil {
		return fmt.Errorf("write journal version: %w", err)
	}
	return nil
}

// Close closes the journal.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// pragma reads a connection setting back.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("pragma %s: %w", name, err)
	}
	return value, nil
}
