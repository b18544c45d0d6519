package main

import (
	"github.com/hydrosim/systems/internal/components"
	"github.com/hydrosim/systems/internal/ecs"
	"github.com/hydrosim/systems/internal/geometry"
	"github.com/hydrosim/systems/pkg/core"

	"github.com/go-gl/mathgl/mgl64"
)

// demoWorld names the entities the systems are configured against.
type demoWorld struct {
	World       ecs.Entity
	Vehicle     ecs.Entity
	VehicleName string
}

// buildDemoWorld populates the store with a small underwater vehicle: a
// hull link carrying the buoyant volume, a thruster link addressable by
// per-link velocity commands, and a rudder joint.
func buildDemoWorld(store *ecs.Store, worldName string) demoWorld {
	world := store.NewEntity()
	ecs.Write(store, world, components.Name(worldName))
	ecs.Write(store, world, components.WorldMarker{})
	ecs.Write(store, world, components.Gravity{0, 0, -9.8})

	vehicle := store.NewChild(world)
	ecs.Write(store, vehicle, components.Model{})
	ecs.Write(store, vehicle, components.Name("sub"))
	ecs.Write(store, vehicle, components.Pose(core.Pose{
		Pos: mgl64.Vec3{0, 0, -5},
		Rot: mgl64.QuatIdent(),
	}))

	hull := store.NewChild(vehicle)
	ecs.Write(store, hull, components.Link{})
	ecs.Write(store, hull, components.Name("hull"))
	ecs.Write(store, hull, components.Pose(core.Pose{
		Pos: mgl64.Vec3{0, 0, -5},
		Rot: mgl64.QuatIdent(),
	}))
	ecs.Write(store, hull, components.Inertial{
		Mass:         150,
		CenterOfMass: core.IdentityPose(),
	})

	hullVolume := store.NewChild(hull)
	ecs.Write(store, hullVolume, components.Collision{
		Shape: geometry.Cylinder{Radius: 0.3, Length: 2.0},
	})
	ecs.Write(store, hullVolume, components.Pose(core.IdentityPose()))

	thruster := store.NewChild(vehicle)
	ecs.Write(store, thruster, components.Link{})
	ecs.Write(store, thruster, components.Name("thruster"))
	ecs.Write(store, thruster, components.Pose(core.Pose{
		Pos: mgl64.Vec3{-1.1, 0, -5},
		Rot: mgl64.QuatIdent(),
	}))
	ecs.Write(store, thruster, components.Inertial{
		Mass:         5,
		CenterOfMass: core.IdentityPose(),
	})

	rudder := store.NewChild(vehicle)
	ecs.Write(store, rudder, components.Joint{})
	ecs.Write(store, rudder, components.Name("rudder"))

	return demoWorld{
		World:       world,
		Vehicle:     vehicle,
		VehicleName: "sub",
	}
}
