// Package core holds the math and message types shared between the
// simulation systems, the transport layer, and external publishers.
package core

import "github.com/go-gl/mathgl/mgl64"

// Pose is a world-frame position and orientation.
type Pose struct {
	Pos mgl64.Vec3 `json:"pos"`
	Rot mgl64.Quat `json:"rot"`
}

// IdentityPose returns a pose at the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Rot: mgl64.QuatIdent()}
}

// Twist is a commanded velocity: a linear and an angular component.
// It is the payload of every cmd_vel topic.
type Twist struct {
	Linear  mgl64.Vec3 `json:"linear"`
	Angular mgl64.Vec3 `json:"angular"`
}

// Wrench is a force and torque pair applied to a rigid body and consumed
// by the physics solver.
type Wrench struct {
	Force  mgl64.Vec3 `json:"force"`
	Torque mgl64.Vec3 `json:"torque"`
}

// Double wraps a single scalar payload, used by the joint position
// command topics.
type Double struct {
	Data float64 `json:"data"`
}
