package storage

import (
	"context"
	"errors"
	"time"

	"manualgen/internal/assembler"
	"manualgen/internal/variables"
)

// ErrRunNotFound is returned when no run matches a lookup.
var ErrRunNotFound = errors.New("run not found")

// Run is one persisted generation of a manual.
type Run struct {
	ID           string
	Manual       string
	Title        string
	GeneratedAt  time.Time
	Fingerprint  string
	SectionCount int
	MissCount    int
	// Document and Misses are only populated by GetRun and LatestRun.
	Document *assembler.Document
	Misses   []variables.Miss
}

// RunStore persists generation runs.
type RunStore interface {
	// SaveRun stores doc and its misses and returns the new run id.
	SaveRun(ctx context.Context, doc *assembler.Document, misses []variables.Miss) (string, error)

	// GetRun retrieves a run with its document by id.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns run summaries, newest first. An empty manual lists every manual.
	ListRuns(ctx context.Context, manual string, limit int) ([]Run, error)

	// LatestRun returns the newest run of manual.
	LatestRun(ctx context.Context, manual string) (*Run, error)

	Close() error
}
