// Package profile persists VM dispatch profiles in SQLite.
package profile

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/chazu/embery/vm"
)

// ErrRunNotFound indicates the requested run was never saved.
var ErrRunNotFound = errors.New("run not found")

// Entry is one saved counter row.
type Entry struct {
	Class  string
	Method string
	Native bool
	Calls  uint64
}

// Run describes a saved profile.
type Run struct {
	ID         uuid.UUID
	Script     string
	Dispatches uint64
	Raises     uint64
	SavedAt    time.Time
}

// Store holds dispatch profiles of many runs.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	script TEXT NOT NULL,
	dispatches INTEGER NOT NULL,
	raises INTEGER NOT NULL,
	saved_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS dispatches (
	run_id TEXT NOT NULL REFERENCES runs(id),
	class TEXT NOT NULL,
	method TEXT NOT NULL,
	native INTEGER NOT NULL,
	calls INTEGER NOT NULL,
	PRIMARY KEY (run_id, class, method)
);
CREATE TABLE IF NOT EXISTS raises (
	run_id TEXT NOT NULL REFERENCES runs(id),
	class TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY (run_id, class)
);
`

// Open opens or creates the profile database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save stores the profiler's counters under runID.
func (s *Store) Save(runID uuid.UUID, script string, p *vm.Profiler) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stats := p.Stats()
	_, err = tx.Exec(
		"INSERT OR REPLACE INTO runs (id, script, dispatches, raises, saved_at) VALUES (?, ?, ?, ?, ?)",
		runID.String(), script, stats.TotalDispatches, stats.Raises, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	for _, d := range p.Dispatches() {
		_, err := tx.Exec(
			"INSERT OR REPLACE INTO dispatches (run_id, class, method, native, calls) VALUES (?, ?, ?, ?, ?)",
			runID.String(), d.Class, d.Method, d.Native, d.Calls,
		)
		if err != nil {
			return fmt.Errorf("saving dispatch %s: %w", d.Key(), err)
		}
	}

	for cls, n := range p.Raises() {
		_, err := tx.Exec(
			"INSERT OR REPLACE INTO raises (run_id, class, count) VALUES (?, ?, ?)",
			runID.String(), cls, n,
		)
		if err != nil {
			return fmt.Errorf("saving raise %s: %w", cls, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing profile: %w", err)
	}
	return nil
}

// Load returns the dispatch counters saved for runID, most called first.
func (s *Store) Load(runID uuid.UUID) ([]Entry, error) {
	var exists int
	err := s.db.QueryRow("SELECT COUNT(*) FROM runs WHERE id = ?", runID.String()).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	if exists == 0 {
		return nil, ErrRunNotFound
	}

	rows, err := s.db.Query(
		"SELECT class, method, native, calls FROM dispatches WHERE run_id = ? ORDER BY calls DESC, class, method",
		runID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying dispatches: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Class, &e.Method, &e.Native, &e.Calls); err != nil {
			return nil, fmt.Errorf("scanning dispatch: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Raises returns the raise counts saved for runID.
func (s *Store) Raises(runID uuid.UUID) (map[string]uint64, error) {
	rows, err := s.db.Query("SELECT class, count FROM raises WHERE run_id = ?", runID.String())
	if err != nil {
		return nil, fmt.Errorf("querying raises: %w", err)
	}
	defer rows.Close()

	result := make(map[string]uint64)
	for rows.Next() {
		var cls string
		var n uint64
		if err := rows.Scan(&cls, &n); err != nil {
			return nil, fmt.Errorf("scanning raise: %w", err)
		}
		result[cls] = n
	}
	return result, rows.Err()
}

// Runs lists saved runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query("SELECT id, script, dispatches, raises, saved_at FROM runs ORDER BY saved_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var id string
		var saved int64
		if err := rows.Scan(&id, &r.Script, &r.Dispatches, &r.Raises, &saved); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("run id %q: %w", id, err)
		}
		r.SavedAt = time.Unix(saved, 0)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
