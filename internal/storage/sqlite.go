package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/manuscript/internal/models"
	_ "modernc.org/sqlite"
)

// ErrSnapshotNotFound is returned by Load when no snapshot has the given id
var ErrSnapshotNotFound = errors.New("snapshot not found")

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		file_name TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
`

// SnapshotStore persists session snapshots so reviews survive a restart.
type SnapshotStore struct {
	db *sql.DB
}

// OpenSnapshotStore opens (or creates) the SQLite database at path. Use
// ":memory:" for a throwaway store.
func OpenSnapshotStore(path string) (*SnapshotStore, error) {
	dsn := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SnapshotStore{db: db}, nil
}

// Close closes the database connection.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Save inserts or replaces the snapshot for state.ID.
func (s *SnapshotStore) Save(state models.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	updatedAt := state.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (id, file_name, state, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_name = excluded.file_name,
			state = excluded.state,
			updated_at = excluded.updated_at
	`, state.ID, state.FileName, string(data), updatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", state.ID, err)
	}
	return nil
}

// Load returns the snapshot stored under id.
func (s *SnapshotStore) Load(id string) (models.SessionState, error) {
	var data string
	err := s.db.QueryRow(`SELECT state FROM sessions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SessionState{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return models.SessionState{}, fmt.Errorf("load snapshot %s: %w", id, err)
	}

	return decodeState(data)
}

// List returns every stored snapshot, most recently updated first.
func (s *SnapshotStore) List() ([]models.SessionState, error) {
	rows, err := s.db.Query(`SELECT state FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var states []models.SessionState
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		state, err := decodeState(data)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

// Delete removes the snapshot stored under id. Deleting a missing id is not
// an error.
func (s *SnapshotStore) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	return nil
}

func decodeState(data string) (models.SessionState, error) {
	var state models.SessionState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return models.SessionState{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return state, nil
}
