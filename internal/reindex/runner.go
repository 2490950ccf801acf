package reindex

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrAlreadyRunning is returned by Runner.Start while a run is in progress.
var ErrAlreadyRunning = errors.New("reindex already running")

// State is what Runner knows about runs triggered through it.
type State struct {
	Running bool    `json:"running"`
	Last    *Report `json:"last,omitempty"`
}

// Runner executes at most one background run at a time and keeps the
// report of the last one.
type Runner struct {
	reindexer *Reindexer
	base      context.Context
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
	last    *Report
	wg      sync.WaitGroup
}

// NewRunner creates a runner. Runs are bound to base, not to the context of
// whoever started them, so they outlive the triggering request and stop
// with base.
func NewRunner(base context.Context, r *Reindexer, logger *slog.Logger) *Runner {
	return &Runner{reindexer: r, base: base, logger: logger}
}

// Start launches a run in the background.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrAlreadyRunning
	}
	r.running = true
	r.logger.Info("background reindex triggered")

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		report, _ := r.reindexer.ReindexAll(r.base)

		r.mu.Lock()
		r.running = false
		r.last = report
		r.mu.Unlock()
	}()
	return nil
}

// State returns a snapshot of the runner.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{Running: r.running, Last: r.last}
}

// Wait blocks until the current run, if any, has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
