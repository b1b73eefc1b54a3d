// Package pipeline orchestrates the layered transformation pipeline:
// staging, intermediate, marts, forecast, and pricing, executed in fixed
// dependency order with run state tracked in the state store.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/northstack-labs/shelfline/internal/adapter"
	"github.com/northstack-labs/shelfline/internal/pricing"
	"github.com/northstack-labs/shelfline/internal/state"
)

// Stage is one run-to-completion unit of the pipeline.
type Stage interface {
	// Name returns the stage's canonical name.
	Name() string
	// Run rebuilds the stage's output tables, returning rows produced.
	Run(ctx context.Context, db adapter.Adapter) (int64, error)
}

// Config holds pipeline construction parameters.
type Config struct {
	// Horizon overrides the forecast horizon in days (0 = default 30).
	Horizon int
	// MinObservations overrides the modeling threshold (0 = default 60).
	MinObservations int
	// ForecastWorkers bounds concurrent per-product model fits.
	ForecastWorkers int
	// Anchor selects the pricing anchor date mode.
	Anchor pricing.Anchor
	// Logger is the structured logger (nil uses discard).
	Logger *slog.Logger
}

// Pipeline executes the five core stages sequentially. Each stage strictly
// requires the previous stage's committed output, so stages never run
// concurrently with each other.
type Pipeline struct {
	db     adapter.Adapter
	store  state.Store
	logger *slog.Logger
	stages []Stage
}

// New assembles the pipeline in canonical stage order.
func New(db adapter.Adapter, store state.Store, cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Pipeline{
		db:     db,
		store:  store,
		logger: logger,
		stages: []Stage{
			NewStagingStage(logger),
			NewIntermediateStage(logger),
			NewMartStage(logger),
			NewForecastStage(db, logger, cfg.Horizon, cfg.MinObservations, cfg.ForecastWorkers),
			NewPricingStage(db, logger, cfg.Anchor),
		},
	}
}

// StageNames returns the canonical stage order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Run executes all stages in order, recording the run and each stage's
// outcome in the state store. The first stage failure marks the remaining
// stages skipped and fails the run.
func (p *Pipeline) Run(ctx context.Context, env string) (*state.Run, error) {
	return p.runStages(ctx, env, p.stages)
}

// RunSelected executes only the named stages, in canonical order.
// Upstream freshness is the caller's responsibility: each stage is an
// independent unit of work.
func (p *Pipeline) RunSelected(ctx context.Context, env string, names []string) (*state.Run, error) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var selected []Stage
	for _, s := range p.stages {
		if wanted[s.Name()] {
			selected = append(selected, s)
			delete(wanted, s.Name())
		}
	}
	if len(wanted) > 0 {
		for n := range wanted {
			return nil, fmt.Errorf("unknown stage %q (stages: %v)", n, p.StageNames())
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no stages selected")
	}

	return p.runStages(ctx, env, selected)
}

func (p *Pipeline) runStages(ctx context.Context, env string, stages []Stage) (*state.Run, error) {
	p.logger.Info("starting pipeline run", "environment", env, "stages", len(stages))

	run, err := p.store.CreateRun(env)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	stageRuns := make([]*state.StageRun, len(stages))
	for i, s := range stages {
		sr := &state.StageRun{RunID: run.ID, Stage: s.Name(), Status: state.StageRunStatusPending}
		if err := p.store.RecordStageRun(sr); err != nil {
			return run, fmt.Errorf("failed to record stage run for %s: %w", s.Name(), err)
		}
		stageRuns[i] = sr
	}

	var runErr error
	for i, s := range stages {
		sr := stageRuns[i]

		if runErr != nil {
			_ = p.store.UpdateStageRun(sr.ID, state.StageRunStatusSkipped, 0,
				"skipped: upstream stage failed", 0)
			continue
		}

		_ = p.store.UpdateStageRun(sr.ID, state.StageRunStatusRunning, 0, "", 0)
		p.logger.Info("running stage", "stage", s.Name(), "run_id", run.ID)

		start := time.Now()
		rows, err := s.Run(ctx, p.db)
		executionMS := time.Since(start).Milliseconds()

		if err != nil {
			p.logger.Error("stage failed", "stage", s.Name(), "error", err)
			_ = p.store.UpdateStageRun(sr.ID, state.StageRunStatusFailed, rows, err.Error(), executionMS)
			runErr = fmt.Errorf("stage %s failed: %w", s.Name(), err)
			continue
		}

		p.logger.Info("stage completed", "stage", s.Name(), "rows", rows, "exec_ms", executionMS)
		_ = p.store.UpdateStageRun(sr.ID, state.StageRunStatusSuccess, rows, "", executionMS)
	}

	if runErr != nil {
		_ = p.store.CompleteRun(run.ID, state.RunStatusFailed, runErr.Error())
	} else {
		_ = p.store.CompleteRun(run.ID, state.RunStatusCompleted, "")
	}

	run, err = p.store.GetRun(run.ID)
	if err != nil {
		return nil, err
	}
	return run, runErr
}
