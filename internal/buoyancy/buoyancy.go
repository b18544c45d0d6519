// Package buoyancy implements the volumetric force system: a one-time
// scan of a model's rigid bodies caches each body's displaced volume and
// center of volume, and every step the current pose turns that cache into
// an external wrench for the solver.
package buoyancy

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/hydrosim/systems/internal/components"
	"github.com/hydrosim/systems/internal/ecs"
	"github.com/hydrosim/systems/internal/fluid"
	"github.com/hydrosim/systems/internal/geometry"
	"github.com/hydrosim/systems/internal/runner"
	"github.com/hydrosim/systems/pkg/core"
)

// ErrNotAModel is returned when the configured entity is not a model.
var ErrNotAModel = errors.New("buoyancy must be attached to a model entity")

// ErrNoGravity is returned when the world entity carries no gravity.
var ErrNoGravity = errors.New("world is missing gravity")

// Config carries the declarative settings for one system instance.
type Config struct {
	// FluidDensity in kg/m^3. Zero means fresh water.
	FluidDensity float64
	// Region optionally bounds the fluid; nil means the fluid is
	// everywhere.
	Region *fluid.Region
}

// volumeProperties is the per-body cache computed once at configuration.
type volumeProperties struct {
	// volume is the summed volume of all valid collision shapes.
	volume float64
	// cov is the center of volume as a body-frame-fixed offset from the
	// body's configure-time world position.
	cov mgl64.Vec3
}

// System computes buoyant forces for one model.
type System struct {
	model  ecs.Entity
	valid  bool
	env    fluid.Environment
	props  map[ecs.Entity]volumeProperties
	bodies []ecs.Entity
	meshes geometry.MeshVolumeSource
	logger *slog.Logger
}

// New creates an unconfigured system. meshes may be nil if no mesh
// collision shapes are expected.
func New(meshes geometry.MeshVolumeSource, logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.Default()
	}
	return &System{
		props:  make(map[ecs.Entity]volumeProperties),
		meshes: meshes,
		logger: logger,
	}
}

// Configure scans the model's rigid bodies, caches volume properties, and
// snapshots world gravity. On error the system stays permanently inert;
// the simulation keeps running without it.
func (s *System) Configure(model ecs.Entity, cfg Config, store *ecs.Store) error {
	if !store.Alive(model) || !ecs.Has[components.Model](store, model) {
		s.logger.Error("buoyancy not attached to a model entity", "entity", model)
		return ErrNotAModel
	}
	s.model = model

	s.env = fluid.Environment{
		Density: cfg.FluidDensity,
		Region:  cfg.Region,
	}
	if s.env.Density == 0 {
		s.env.Density = fluid.FreshWaterDensity
	}

	world, ok := ecs.First[components.WorldMarker](store)
	if !ok {
		s.logger.Error("missing world entity")
		return ErrNoGravity
	}
	gravity, ok := ecs.Read[components.Gravity](store, world)
	if !ok {
		s.logger.Error("world is missing gravity")
		return ErrNoGravity
	}
	s.env.Gravity = mgl64.Vec3(gravity)

	for _, body := range ecs.ChildrenWith[components.Link](store, model) {
		s.props[body] = s.scanBody(body, store)
		s.bodies = append(s.bodies, body)
	}

	s.valid = true
	s.logger.Info("buoyancy configured",
		"model", model, "density", s.env.Density, "bodies", len(s.bodies))
	return nil
}

// scanBody computes the summed shape volume and center-of-volume offset
// for one rigid body.
func (s *System) scanBody(body ecs.Entity, store *ecs.Store) volumeProperties {
	var volumeSum float64
	var weightedPosSum mgl64.Vec3

	for _, collision := range ecs.ChildrenWith[components.Collision](store, body) {
		coll, _ := ecs.Read[components.Collision](store, collision)
		volume := s.shapeVolume(collision, coll.Shape)
		volumeSum += volume

		pose, ok := ecs.Read[components.Pose](store, collision)
		if !ok {
			// Collisions without their own pose sit at the body origin.
			pose, _ = ecs.Read[components.Pose](store, body)
		}
		weightedPosSum = weightedPosSum.Add(pose.Pos.Mul(volume))
	}

	// A body whose shapes all failed displaces nothing. Guard the
	// division so no NaN ever reaches the solver.
	if volumeSum <= 0 {
		return volumeProperties{}
	}

	bodyPose, _ := ecs.Read[components.Pose](store, body)
	return volumeProperties{
		volume: volumeSum,
		cov:    weightedPosSum.Mul(1 / volumeSum).Sub(bodyPose.Pos),
	}
}

// shapeVolume resolves one collision shape's volume. Failed shapes
// contribute zero and the scan continues.
func (s *System) shapeVolume(entity ecs.Entity, shape geometry.Shape) float64 {
	switch g := shape.(type) {
	case geometry.Box:
		return g.Volume()
	case geometry.Sphere:
		return g.Volume()
	case geometry.Cylinder:
		return g.Volume()
	case geometry.Plane:
		s.logger.Warn("plane collision shapes displace no fluid", "collision", entity)
		return 0
	case geometry.Mesh:
		if s.meshes == nil {
			s.logger.Error("mesh collision shape but no mesh volume source",
				"collision", entity, "uri", g.URI)
			return 0
		}
		raw, err := s.meshes.Volume(g.URI)
		if err != nil {
			s.logger.Error("unable to load mesh",
				"collision", entity, "uri", g.URI, "error", err)
			return 0
		}
		return g.ScaledVolume(raw)
	default:
		s.logger.Error("unsupported collision geometry",
			"collision", entity, "shape", fmt.Sprintf("%T", shape))
		return 0
	}
}

// PreUpdate writes a buoyancy wrench for every cached body using its
// current world pose. Volume and center of volume are never recomputed.
func (s *System) PreUpdate(info runner.UpdateInfo, store *ecs.Store) {
	if !s.valid || info.Paused || !store.Alive(s.model) {
		return
	}

	for _, body := range s.bodies {
		if !store.Alive(body) {
			continue
		}
		props := s.props[body]

		pose, ok := ecs.Read[components.Pose](store, body)
		if !ok {
			continue
		}

		var wrench core.Wrench
		if s.env.Covers(pose.Pos) {
			// Archimedes: force = -density * volume * gravity. The mass
			// term cancels against object density.
			force := s.env.Gravity.Mul(-s.env.Density * props.volume)

			inertial, ok := ecs.Read[components.Inertial](store, body)
			if !ok {
				s.logger.Warn("rigid body missing inertial data, skipping",
					"body", body)
				continue
			}

			offset := props.cov.Sub(inertial.CenterOfMass.Pos)
			offsetWorld := pose.Rot.Rotate(offset)
			wrench = core.Wrench{
				Force:  force,
				Torque: offsetWorld.Cross(force),
			}
		}

		ecs.Write(store, body, components.ExternalWrenchCmd(wrench))
	}
}
