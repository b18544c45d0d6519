// Package geometry defines the collision shape kinds attached to rigid
// bodies and the closed-form volume helpers the buoyancy system builds
// its cache from.
package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Shape is a collision geometry attached to a rigid body.
type Shape interface {
	isShape()
}

// Box is an axis-aligned box with full side lengths Size.
type Box struct {
	Size mgl64.Vec3
}

func (Box) isShape() {}

// Volume returns the box volume.
func (b Box) Volume() float64 {
	return b.Size.X() * b.Size.Y() * b.Size.Z()
}

// Sphere is a sphere of the given radius.
type Sphere struct {
	Radius float64
}

func (Sphere) isShape() {}

// Volume returns the sphere volume.
func (s Sphere) Volume() float64 {
	return 4.0 / 3.0 * math.Pi * math.Pow(s.Radius, 3)
}

// Cylinder is a cylinder with the given radius and length along its axis.
type Cylinder struct {
	Radius float64
	Length float64
}

func (Cylinder) isShape() {}

// Volume returns the cylinder volume.
func (c Cylinder) Volume() float64 {
	return math.Pi * c.Radius * c.Radius * c.Length
}

// Plane is an infinite plane. It displaces no fluid.
type Plane struct {
	Normal mgl64.Vec3
}

func (Plane) isShape() {}

// Mesh references an external mesh file. Its volume comes from a
// MeshVolumeSource; Scale multiplies the volume per axis.
type Mesh struct {
	URI   string
	Scale mgl64.Vec3
}

func (Mesh) isShape() {}

// ScaledVolume applies the per-axis scale to a raw mesh volume.
func (m Mesh) ScaledVolume(raw float64) float64 {
	s := m.Scale
	if s == (mgl64.Vec3{}) {
		return raw
	}
	return raw * s.X() * s.Y() * s.Z()
}

// MeshVolumeSource resolves the enclosed volume of a mesh file. The mesh
// library itself is an external collaborator; implementations are free to
// cache loads.
type MeshVolumeSource interface {
	Volume(uri string) (float64, error)
}
