package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"manualgen/internal/assembler"
	"manualgen/internal/variables"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ RunStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}
	// SQLite allows one writer; concurrent pipeline jobs share this handle.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			manual TEXT,
			title TEXT,
			generated_at TEXT,
			recorded_at TEXT,
			fingerprint TEXT,
			section_count INTEGER,
			miss_count INTEGER,
			document JSON
		);`,
		`CREATE TABLE IF NOT EXISTS misses (
			run_id TEXT,
			seq INTEGER,
			name TEXT,
			token TEXT,
			section TEXT,
			field TEXT,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_manual ON runs(manual, recorded_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, doc *assembler.Document, misses []variables.Miss) (string, error) {
	if err := doc.Validate(); err != nil {
		return "", fmt.Errorf("refusing to store invalid document: %w", err)
	}
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	id := uuid.NewString()
	m := doc.Metadata
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, manual, title, generated_at, recorded_at, fingerprint, section_count, miss_count, document)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, m.Manual, m.Title, formatTime(m.GeneratedAt), formatTime(s.now()), m.Fingerprint, m.SectionCount, len(misses), docJSON)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO misses (run_id, seq, name, token, section, field) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i, miss := range misses {
		if _, err := stmt.ExecContext(ctx, id, i, miss.Name, miss.Token, miss.Section, miss.Field); err != nil {
			return "", fmt.Errorf("failed to insert miss: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, manual, title, generated_at, fingerprint, section_count, miss_count, document
		FROM runs WHERE id = ?`, id)
	return s.scanFullRun(ctx, row)
}

func (s *SQLiteStore) LatestRun(ctx context.Context, manual string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, manual, title, generated_at, fingerprint, section_count, miss_count, document
		FROM runs WHERE manual = ? ORDER BY recorded_at DESC, rowid DESC LIMIT 1`, manual)
	return s.scanFullRun(ctx, row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, manual string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT id, manual, title, generated_at, fingerprint, section_count, miss_count FROM runs`
	args := []any{}
	if manual != "" {
		query += ` WHERE manual = ?`
		args = append(args, manual)
	}
	query += ` ORDER BY recorded_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var generatedAt string
		if err := rows.Scan(&r.ID, &r.Manual, &r.Title, &generatedAt, &r.Fingerprint, &r.SectionCount, &r.MissCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.GeneratedAt = parseTime(generatedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) scanFullRun(ctx context.Context, row *sql.Row) (*Run, error) {
	var r Run
	var generatedAt string
	var docJSON []byte
	if err := row.Scan(&r.ID, &r.Manual, &r.Title, &generatedAt, &r.Fingerprint, &r.SectionCount, &r.MissCount, &docJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	r.GeneratedAt = parseTime(generatedAt)

	var doc assembler.Document
	if err := json.Unmarshal(docJSON, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode stored document %s: %w", r.ID, err)
	}
	r.Document = &doc

	misses, err := s.loadMisses(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	r.Misses = misses
	return &r, nil
}

func (s *SQLiteStore) loadMisses(ctx context.Context, runID string) ([]variables.Miss, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, token, section, field FROM misses WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query misses: %w", err)
	}
	defer rows.Close()

	var out []variables.Miss
	for rows.Next() {
		var m variables.Miss
		if err := rows.Scan(&m.Name, &m.Token, &m.Section, &m.Field); err != nil {
			return nil, fmt.Errorf("failed to scan miss: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
