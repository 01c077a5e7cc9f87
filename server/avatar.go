package main

import (
	"math"
	"time"

	"github.com/tkovis/spatial-grid/grid"
)

const (
	AvatarAccel    = 600.0 // units/s²
	AvatarMaxSpeed = 350.0 // units/s
	AvatarFriction = 0.97  // velocity multiplier per tick
	AvatarBrake    = 0.90  // friction inside the slow-down zone
	AvatarDeadZone = 5.0   // target closer than this stops the avatar
	AvatarSlowZone = 60.0  // speed ramps down inside this distance
	maxViewSize    = 1000.0
)

// Avatar is a client-controlled entity
type Avatar struct {
	ID      grid.EntityID
	Name    string
	X, Y    float64
	VX, VY  float64
	TargetX float64
	TargetY float64
	Size    grid.Extents
	View    grid.Extents // area of interest centered on the avatar

	client     Broadcaster // nil while detached
	detachedAt time.Time
}

// NewAvatar creates an avatar resting at (x, y)
func NewAvatar(id grid.EntityID, name string, x, y float64, size, view grid.Extents) *Avatar {
	return &Avatar{
		ID:      id,
		Name:    name,
		X:       x,
		Y:       y,
		TargetX: x,
		TargetY: y,
		Size:    size,
		View:    view,
	}
}

// Pos returns the avatar center
func (a *Avatar) Pos() grid.Vec2 { return grid.Vec2{X: a.X, Y: a.Y} }

// Detached reports whether the avatar currently has no client
func (a *Avatar) Detached() bool { return a.client == nil }

// SetView changes the area of interest, keeping it within sane limits
func (a *Avatar) SetView(w, h float64) {
	a.View = grid.Extents{
		Width:  Clamp(w, 1, maxViewSize),
		Height: Clamp(h, 1, maxViewSize),
	}
}

// Update moves the avatar one tick (dt in seconds)
func (a *Avatar) Update(dt float64, b grid.Bounds) {
	dx := a.TargetX - a.X
	dy := a.TargetY - a.Y
	dist := math.Sqrt(dx*dx + dy*dy)

	accel := AvatarAccel * dt
	friction := AvatarFriction
	if dist <= AvatarDeadZone {
		accel = 0
		friction = AvatarBrake
	} else if dist < AvatarSlowZone {
		factor := (dist - AvatarDeadZone) / (AvatarSlowZone - AvatarDeadZone)
		accel *= factor
		friction = AvatarBrake + factor*(AvatarFriction-AvatarBrake)
	}
	if dist > 0 {
		a.VX += dx / dist * accel
		a.VY += dy / dist * accel
	}
	a.VX *= friction
	a.VY *= friction

	speed := math.Sqrt(a.VX*a.VX + a.VY*a.VY)
	if speed > AvatarMaxSpeed {
		scale := AvatarMaxSpeed / speed
		a.VX *= scale
		a.VY *= scale
	}
	if speed < 1e-3 && dist <= AvatarDeadZone {
		a.VX, a.VY = 0, 0
	}

	x, y := a.X+a.VX*dt, a.Y+a.VY*dt
	// Stop against the world edges
	if x < b.XMin || x > b.XMax {
		a.VX = 0
	}
	if y < b.YMin || y > b.YMax {
		a.VY = 0
	}
	a.X = Clamp(x, b.XMin, b.XMax)
	a.Y = Clamp(y, b.YMin, b.YMax)
}

// ToNearby converts to the broadcast form
func (a *Avatar) ToNearby() NearbyEntity {
	return NearbyEntity{ID: a.ID, X: a.X, Y: a.Y, Kind: KindAvatar, Name: a.Name}
}
