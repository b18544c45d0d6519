// Package components defines the typed component slots the simulation
// systems read from and write into the entity store.
package components

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/hydrosim/systems/internal/geometry"
	"github.com/hydrosim/systems/pkg/core"
)

// Name is the human-readable identifier of an entity, used for topic
// derivation and link resolution.
type Name string

// Model marks an entity as a top-level model.
type Model struct{}

// Link marks an entity as a rigid body belonging to a model.
type Link struct{}

// Joint marks an entity as a joint belonging to a model.
type Joint struct{}

// WorldMarker marks the single world entity.
type WorldMarker struct{}

// Gravity is the world gravity vector in the world frame.
type Gravity mgl64.Vec3

// Pose is an entity's current world-frame pose, maintained by the solver.
type Pose core.Pose

// Inertial carries a rigid body's mass and center-of-mass pose in the
// body frame.
type Inertial struct {
	Mass         float64
	CenterOfMass core.Pose
}

// Collision attaches a collision geometry to a rigid body.
type Collision struct {
	Shape geometry.Shape
}

// ExternalWrenchCmd is the external force/torque slot consumed by the
// solver each step.
type ExternalWrenchCmd core.Wrench

// LinearVelocityCmd is the commanded body linear velocity consumed by the
// solver.
type LinearVelocityCmd mgl64.Vec3

// AngularVelocityCmd is the commanded body angular velocity consumed by
// the solver.
type AngularVelocityCmd mgl64.Vec3

// JointPositionCmd is the commanded position for a joint's first axis.
type JointPositionCmd float64
