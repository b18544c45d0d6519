package influx

import (
	"time"

	"github.com/hydrosim/systems/internal/ecs"
	"github.com/hydrosim/systems/internal/runner"
)

// TickTimingSystem samples the wall time between a step's PreUpdate and
// PostUpdate and ships it to InfluxDB. Register it before the systems
// whose cost should be covered by the sample.
type TickTimingSystem struct {
	mgr   *Manager
	runID uint
	start time.Time
}

// NewTickTimingSystem creates a timing sampler tagged with the given run.
func NewTickTimingSystem(mgr *Manager, runID uint) *TickTimingSystem {
	return &TickTimingSystem{mgr: mgr, runID: runID}
}

// PreUpdate stamps the step start.
func (s *TickTimingSystem) PreUpdate(info runner.UpdateInfo, store *ecs.Store) {
	s.start = time.Now()
}

// PostUpdate writes the elapsed wall time for this step.
func (s *TickTimingSystem) PostUpdate(info runner.UpdateInfo, store *ecs.Store) {
	if s.start.IsZero() {
		return
	}
	s.mgr.WriteTickTiming(s.runID, info.Iterations, time.Since(s.start))
}
