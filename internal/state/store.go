// Package state provides run bookkeeping for the pipeline using SQLite.
// It tracks pipeline runs and the outcome of each stage within a run.
package state

import "time"

// RunStatus is the lifecycle status of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents one invocation of the pipeline.
type Run struct {
	ID          string
	Environment string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// StageRunStatus is the lifecycle status of a single stage within a run.
type StageRunStatus string

const (
	StageRunStatusPending StageRunStatus = "pending"
	StageRunStatusRunning StageRunStatus = "running"
	StageRunStatusSuccess StageRunStatus = "success"
	StageRunStatusFailed  StageRunStatus = "failed"
	StageRunStatusSkipped StageRunStatus = "skipped"
)

// StageRun records the execution of one pipeline stage within a run.
type StageRun struct {
	ID           string
	RunID        string
	Stage        string
	Status       StageRunStatus
	RowsAffected int64
	Error        string
	ExecutionMS  int64
}

// Store is the interface for run state persistence.
type Store interface {
	// Open opens the store at the given path (":memory:" for in-memory).
	Open(path string) error

	// Close closes the store.
	Close() error

	// Migrate applies pending schema migrations.
	Migrate() error

	// CreateRun creates a new pipeline run in the running state.
	CreateRun(env string) (*Run, error)

	// CompleteRun marks a run as completed or failed.
	CompleteRun(id string, status RunStatus, errMsg string) error

	// GetRun retrieves a run by ID.
	GetRun(id string) (*Run, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*Run, error)

	// RecordStageRun inserts a stage run record and assigns its ID.
	RecordStageRun(sr *StageRun) error

	// UpdateStageRun updates the status, row count, error, and timing of a stage run.
	UpdateStageRun(id string, status StageRunStatus, rows int64, errMsg string, executionMS int64) error

	// GetStageRunsForRun returns all stage runs for a run in execution order.
	GetStageRunsForRun(runID string) ([]*StageRun, error)
}
