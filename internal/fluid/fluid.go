// Package fluid describes the fluid a model is submerged in: its density,
// the gravity snapshot taken at configuration time, and an optional
// horizontal region the fluid is bounded by.
package fluid

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
)

// FreshWaterDensity is the default fluid density in kg/m^3.
const FreshWaterDensity = 1000.0

// ErrNotAPolygon is returned when a region WKT does not describe a polygon.
var ErrNotAPolygon = errors.New("fluid region must be a polygon")

// Environment is the fluid a configured model displaces. Gravity is read
// once from the world at configuration time and never refreshed.
type Environment struct {
	Density float64
	Gravity mgl64.Vec3
	Region  *Region
}

// Covers reports whether the fluid is present at a world position. An
// environment without a region covers everything.
func (e Environment) Covers(pos mgl64.Vec3) bool {
	if e.Region == nil {
		return true
	}
	return e.Region.Contains(pos)
}

// Region bounds the fluid horizontally by a polygon in the world XY plane
// and vertically by a surface level.
type Region struct {
	polygon geom.Polygon
	surface float64
}

// ParseRegion builds a region from a WKT polygon and a surface elevation.
func ParseRegion(wkt string, surface float64) (*Region, error) {
	g, err := geom.UnmarshalWKT(wkt)
	if err != nil {
		return nil, fmt.Errorf("parsing fluid region: %w", err)
	}
	poly, ok := g.AsPolygon()
	if !ok {
		return nil, fmt.Errorf("%w, got %s", ErrNotAPolygon, g.Type())
	}
	return &Region{polygon: poly, surface: surface}, nil
}

// Surface returns the fluid surface elevation.
func (r *Region) Surface() float64 {
	return r.surface
}

// Contains reports whether a world position is inside the fluid: its XY
// within the polygon and its Z at or below the surface.
func (r *Region) Contains(pos mgl64.Vec3) bool {
	if pos.Z() > r.surface {
		return false
	}
	pt := geom.NewPoint(geom.Coordinates{
		XY: geom.XY{X: pos.X(), Y: pos.Y()},
	})
	return geom.Intersects(r.polygon.AsGeometry(), pt.AsGeometry())
}
