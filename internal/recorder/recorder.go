// Package recorder persists per-step telemetry: the wrenches and
// velocity commands the systems wrote each tick, keyed by run. Analysis
// tooling replays a run from these rows.
package recorder

import (
	"fmt"
	"time"

	"github.com/hydrosim/systems/internal/components"
	"github.com/hydrosim/systems/internal/ecs"
	"github.com/hydrosim/systems/internal/runner"
)

// Run is one recorded simulation session.
type Run struct {
	ID        uint `gorm:"primarykey"`
	StartedAt time.Time
	EndedAt   *time.Time
	WorldName string
	StepMs    int64
}

// WrenchRecord is one applied external wrench at one step.
type WrenchRecord struct {
	ID         uint `gorm:"primarykey"`
	RunID      uint `gorm:"index"`
	Tick       uint64
	Entity     uint64
	Fx, Fy, Fz float64
	Tx, Ty, Tz float64
}

// VelocityCmdRecord is one applied velocity command at one step.
type VelocityCmdRecord struct {
	ID         uint `gorm:"primarykey"`
	RunID      uint `gorm:"index"`
	Tick       uint64
	Entity     uint64
	Lx, Ly, Lz float64
	Ax, Ay, Az float64
}

// Backend is the interface every recorder storage implementation
// satisfies.
type Backend interface {
	Init() error
	Close() error

	StartRun(run *Run) error
	EndRun() error

	RecordWrench(w *WrenchRecord) error
	RecordVelocityCmd(v *VelocityCmdRecord) error
}

// System samples the command components after every step and hands them
// to the backend.
type System struct {
	backend Backend
}

// NewSystem creates the sampling system.
func NewSystem(backend Backend) *System {
	return &System{backend: backend}
}

// PostUpdate records every external wrench and velocity command present
// in the store for this step.
func (s *System) PostUpdate(info runner.UpdateInfo, store *ecs.Store) {
	if info.Paused {
		return
	}

	for _, e := range ecs.EntitiesWith[components.ExternalWrenchCmd](store) {
		w, _ := ecs.Read[components.ExternalWrenchCmd](store, e)
		_ = s.backend.RecordWrench(&WrenchRecord{
			Tick:   info.Iterations,
			Entity: uint64(e),
			Fx:     w.Force.X(), Fy: w.Force.Y(), Fz: w.Force.Z(),
			Tx:     w.Torque.X(), Ty: w.Torque.Y(), Tz: w.Torque.Z(),
		})
	}

	for _, e := range ecs.EntitiesWith[components.LinearVelocityCmd](store) {
		lin, _ := ecs.Read[components.LinearVelocityCmd](store, e)
		ang, _ := ecs.Read[components.AngularVelocityCmd](store, e)
		_ = s.backend.RecordVelocityCmd(&VelocityCmdRecord{
			Tick:   info.Iterations,
			Entity: uint64(e),
			Lx:     lin[0], Ly: lin[1], Lz: lin[2],
			Ax:     ang[0], Ay: ang[1], Az: ang[2],
		})
	}
}

// NewBackend creates a recorder backend based on configuration.
func NewBackend(cfg BackendConfig) (Backend, error) {
	switch cfg.Type {
	case "postgres", "sqlite":
		return newDBBackend(cfg)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown recorder backend type: %s", cfg.Type)
	}
}
