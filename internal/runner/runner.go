// Package runner drives the simulation systems: one goroutine executes
// PreUpdate for every registered system, lets the solver step, then
// executes PostUpdate, advancing simulation time by a fixed step.
package runner

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/hydrosim/systems/internal/ecs"
)

// UpdateInfo describes one simulation step.
type UpdateInfo struct {
	// SimTime is the accumulated simulation time.
	SimTime time.Duration
	// RealTime is the accumulated wall-clock time.
	RealTime time.Duration
	// Dt is the duration of this step. Negative on a rewind.
	Dt time.Duration
	// Iterations counts completed steps.
	Iterations uint64
	// Paused is true while the simulation is paused; paused steps still
	// tick but systems must not mutate simulation state.
	Paused bool
}

// PreUpdater runs before the solver step.
type PreUpdater interface {
	PreUpdate(info UpdateInfo, store *ecs.Store)
}

// PostUpdater runs after the solver step.
type PostUpdater interface {
	PostUpdate(info UpdateInfo, store *ecs.Store)
}

// Runner steps registered systems against a store at a fixed rate.
type Runner struct {
	store  *ecs.Store
	step   time.Duration
	logger *slog.Logger

	pre  []PreUpdater
	post []PostUpdater

	paused     atomic.Bool
	iterations atomic.Uint64
	simTime    time.Duration
	realStart  time.Time

	ticks    metric.Int64Counter
	duration metric.Float64Histogram
}

// New creates a runner with the given fixed step.
func New(store *ecs.Store, step time.Duration, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		store:  store,
		step:   step,
		logger: logger,
	}

	m := meter()
	var err error
	r.ticks, err = m.Int64Counter(
		"runner.ticks",
		metric.WithDescription("Completed simulation steps"),
	)
	if err != nil {
		return nil, err
	}
	r.duration, err = m.Float64Histogram(
		"runner.tick.duration",
		metric.WithDescription("Wall time spent per simulation step"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Add registers a system for the phases it implements.
func (r *Runner) Add(system any) {
	if s, ok := system.(PreUpdater); ok {
		r.pre = append(r.pre, s)
	}
	if s, ok := system.(PostUpdater); ok {
		r.post = append(r.post, s)
	}
}

// SetPaused pauses or resumes the simulation. Paused steps deliver
// Paused=true to systems.
func (r *Runner) SetPaused(paused bool) {
	r.paused.Store(paused)
}

// Iterations returns the number of completed steps.
func (r *Runner) Iterations() uint64 {
	return r.iterations.Load()
}

// Step executes exactly one simulation step.
func (r *Runner) Step() {
	start := time.Now()
	if r.realStart.IsZero() {
		r.realStart = start
	}

	paused := r.paused.Load()
	info := UpdateInfo{
		SimTime:    r.simTime,
		RealTime:   start.Sub(r.realStart),
		Dt:         r.step,
		Iterations: r.iterations.Load(),
		Paused:     paused,
	}

	for _, s := range r.pre {
		s.PreUpdate(info, r.store)
	}
	// The solver consumes the command components here.
	for _, s := range r.post {
		s.PostUpdate(info, r.store)
	}

	if !paused {
		r.simTime += r.step
	}
	r.iterations.Add(1)

	ctx := context.Background()
	r.ticks.Add(ctx, 1)
	r.duration.Record(ctx, float64(time.Since(start))/float64(time.Millisecond))
}

// Run steps at the configured rate until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.step)
	defer ticker.Stop()

	r.logger.Info("simulation loop started", "step", r.step)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("simulation loop stopped",
				"iterations", r.iterations.Load(), "simTime", r.simTime)
			return ctx.Err()
		case <-ticker.C:
			r.Step()
		}
	}
}
