// Package store provides SQLite-based result persistence for maxwell-demon.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nikazzio/maxwell-demon/internal/analysis"
	"github.com/nikazzio/maxwell-demon/internal/tournament"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("store: run not found")

// schemaVersion is the current schema version, tracked via PRAGMA user_version.
const schemaVersion = 1

// Schema for the maxwell-demon results store.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id                    INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at            INTEGER NOT NULL,
    kind                  TEXT NOT NULL,
    mode                  TEXT NOT NULL,
    window_size           INTEGER NOT NULL,
    step                  INTEGER NOT NULL,
    log_base              REAL NOT NULL,
    compression           TEXT NOT NULL,
    tokenizer             TEXT NOT NULL,
    paisa_fingerprint     TEXT,
    synthetic_fingerprint TEXT
);

CREATE TABLE IF NOT EXISTS window_records (
    run_id            INTEGER NOT NULL REFERENCES runs(id),
    filename          TEXT NOT NULL,
    reference         TEXT NOT NULL,
    window_id         INTEGER NOT NULL,
    mean_entropy      REAL NOT NULL,
    entropy_variance  REAL NOT NULL,
    compression_ratio REAL NOT NULL,
    unique_ratio      REAL NOT NULL,
    PRIMARY KEY (run_id, filename, reference, window_id)
);

CREATE INDEX IF NOT EXISTS idx_window_records_run ON window_records(run_id);

CREATE TABLE IF NOT EXISTS tournament_records (
    run_id           INTEGER NOT NULL REFERENCES runs(id),
    filename         TEXT NOT NULL,
    window_id        INTEGER NOT NULL,
    label            TEXT NOT NULL,
    delta_h          REAL NOT NULL,
    burstiness_paisa REAL NOT NULL,
    PRIMARY KEY (run_id, filename, window_id)
);

CREATE INDEX IF NOT EXISTS idx_tournament_records_run ON tournament_records(run_id);
`

// Run describes one recorded analysis or tournament invocation.
type Run struct {
	ID        int64
	CreatedAt time.Time

	// Kind is "analyze" or "tournament".
	Kind string

	Mode        string
	WindowSize  int
	Step        int
	LogBase     float64
	Compression string
	Tokenizer   string

	// PaisaFingerprint and SyntheticFingerprint identify the reference
	// tables used, empty in raw mode.
	PaisaFingerprint     string
	SyntheticFingerprint string
}

// Store is the SQLite results store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("store: read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("store: database schema version %d is newer than supported %d", version, schemaVersion)
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	if version < schemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("store: set schema version: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InsertRun records a run and returns its ID.
func (s *Store) InsertRun(r *Run) (int64, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	result, err := s.db.Exec(`
		INSERT INTO runs (created_at, kind, mode, window_size, step, log_base, compression, tokenizer, paisa_fingerprint, synthetic_fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.CreatedAt.UnixNano(), r.Kind, r.Mode, r.WindowSize, r.Step, r.LogBase,
		r.Compression, r.Tokenizer, r.PaisaFingerprint, r.SyntheticFingerprint,
	)
	if err != nil {
		return 0, fmt.Errorf("store: insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: last insert id: %w", err)
	}
	r.ID = id
	return id, nil
}

// InsertWindowRecords stores per-window metric records for one document
// under one reference name.
func (s *Store) InsertWindowRecords(runID int64, filename, reference string, records []analysis.WindowRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO window_records (run_id, filename, reference, window_id, mean_entropy, entropy_variance, compression_ratio, unique_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(runID, filename, reference, rec.WindowID,
			rec.MeanEntropy, rec.EntropyVariance, rec.CompressionRatio, rec.UniqueRatio); err != nil {
			return fmt.Errorf("store: insert window record: %w", err)
		}
	}

	return tx.Commit()
}

// InsertTournamentRecords stores paired tournament records.
func (s *Store) InsertTournamentRecords(runID int64, records []tournament.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO tournament_records (run_id, filename, window_id, label, delta_h, burstiness_paisa)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(runID, rec.Filename, rec.WindowID, rec.Label,
			rec.DeltaH, rec.BurstinessPaisa); err != nil {
			return fmt.Errorf("store: insert tournament record: %w", err)
		}
	}

	return tx.Commit()
}

// GetRun fetches one run by ID.
func (s *Store) GetRun(id int64) (*Run, error) {
	var (
		r  Run
		ns int64
	)
	err := s.db.QueryRow(`
		SELECT id, created_at, kind, mode, window_size, step, log_base, compression, tokenizer, paisa_fingerprint, synthetic_fingerprint
		FROM runs WHERE id = ?`, id).Scan(
		&r.ID, &ns, &r.Kind, &r.Mode, &r.WindowSize, &r.Step, &r.LogBase,
		&r.Compression, &r.Tokenizer, &r.PaisaFingerprint, &r.SyntheticFingerprint,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get run: %w", err)
	}
	r.CreatedAt = time.Unix(0, ns)
	return &r, nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns() ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, kind, mode, window_size, step, log_base, compression, tokenizer, paisa_fingerprint, synthetic_fingerprint
		FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r  Run
			ns int64
		)
		if err := rows.Scan(&r.ID, &ns, &r.Kind, &r.Mode, &r.WindowSize, &r.Step,
			&r.LogBase, &r.Compression, &r.Tokenizer, &r.PaisaFingerprint, &r.SyntheticFingerprint); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		r.CreatedAt = time.Unix(0, ns)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// WindowRecords returns the stored window records for a run, ordered by
// filename, reference, and window ID. The reference name is returned
// alongside each record.
func (s *Store) WindowRecords(runID int64) (map[string]map[string][]analysis.WindowRecord, error) {
	rows, err := s.db.Query(`
		SELECT filename, reference, window_id, mean_entropy, entropy_variance, compression_ratio, unique_ratio
		FROM window_records WHERE run_id = ?
		ORDER BY filename, reference, window_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: query window records: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string][]analysis.WindowRecord)
	for rows.Next() {
		var (
			filename, reference string
			rec                 analysis.WindowRecord
		)
		if err := rows.Scan(&filename, &reference, &rec.WindowID,
			&rec.MeanEntropy, &rec.EntropyVariance, &rec.CompressionRatio, &rec.UniqueRatio); err != nil {
			return nil, fmt.Errorf("store: scan window record: %w", err)
		}
		if out[filename] == nil {
			out[filename] = make(map[string][]analysis.WindowRecord)
		}
		out[filename][reference] = append(out[filename][reference], rec)
	}
	return out, rows.Err()
}

// TournamentRecords returns the stored tournament records for a run,
// ordered by filename and window ID.
func (s *Store) TournamentRecords(runID int64) ([]tournament.Record, error) {
	rows, err := s.db.Query(`
		SELECT filename, window_id, label, delta_h, burstiness_paisa
		FROM tournament_records WHERE run_id = ?
		ORDER BY filename, window_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: query tournament records: %w", err)
	}
	defer rows.Close()

	var records []tournament.Record
	for rows.Next() {
		var rec tournament.Record
		if err := rows.Scan(&rec.Filename, &rec.WindowID, &rec.Label,
			&rec.DeltaH, &rec.BurstinessPaisa); err != nil {
			return nil, fmt.Errorf("store: scan tournament record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
