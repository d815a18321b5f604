// Package recorder persists scan runs and their results.
package recorder

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/afdelacruz/stock-finder/internal/model"
)

// Scan run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// ScanRun is the metadata of one scan over a ticker universe.
type ScanRun struct {
	ID            int64
	RunID         uuid.UUID
	StartedAt     time.Time
	CompletedAt   time.Time // zero while running
	MinGainPct    float64
	LookbackYears int
	Universe      string
	TickerCount   int
	ResultsCount  int
	Status        string
}

// StoredResult is a persisted ScanResult.
type StoredResult struct {
	model.ScanResult
	ID        int64
	ScanRunID int64
	CreatedAt time.Time
}

// ResultQuery filters ListResults. Zero values mean no filter.
type ResultQuery struct {
	RunID   int64
	MinGain float64
	Limit   int
}

// Recorder persists scan history.
type Recorder interface {
	StartRun(ctx context.Context, run *ScanRun) error
	AddResult(ctx context.Context, runID int64, r model.ScanResult) error
	CompleteRun(ctx context.Context, runID int64, status string) error
	ListResults(ctx context.Context, q ResultQuery) ([]StoredResult, error)
	TopGainers(ctx context.Context, limit int) ([]StoredResult, error)
	ListRuns(ctx context.Context, limit int) ([]ScanRun, error)
	Close() error
}
