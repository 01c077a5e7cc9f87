package main

import (
	"math"
	"math/rand/v2"

	"github.com/tkovis/spatial-grid/grid"
)

const (
	WandererSpeed = 60.0 // units/s
	WandererDrift = 1.0  // max radians/s the heading changes
)

// Wanderer is a simulated entity that drifts around the world and bounces
// off its edges
type Wanderer struct {
	ID      grid.EntityID
	X, Y    float64
	Heading float64
	Size    grid.Extents
}

// NewWanderer places a wanderer uniformly at random inside b
func NewWanderer(id grid.EntityID, b grid.Bounds, size grid.Extents, rng *rand.Rand) *Wanderer {
	return &Wanderer{
		ID:      id,
		X:       b.XMin + rng.Float64()*b.Width(),
		Y:       b.YMin + rng.Float64()*b.Height(),
		Heading: rng.Float64() * 2 * math.Pi,
		Size:    size,
	}
}

// Pos returns the wanderer center
func (w *Wanderer) Pos() grid.Vec2 { return grid.Vec2{X: w.X, Y: w.Y} }

// Update moves the wanderer one tick (dt in seconds)
func (w *Wanderer) Update(dt float64, b grid.Bounds, rng *rand.Rand) {
	w.Heading = NormalizeAngle(w.Heading + (rng.Float64()*2-1)*WandererDrift*dt)

	x := w.X + math.Cos(w.Heading)*WandererSpeed*dt
	y := w.Y + math.Sin(w.Heading)*WandererSpeed*dt

	// Reflect off the edges
	if x < b.XMin || x > b.XMax {
		w.Heading = NormalizeAngle(math.Pi - w.Heading)
		x = Clamp(x, b.XMin, b.XMax)
	}
	if y < b.YMin || y > b.YMax {
		w.Heading = NormalizeAngle(-w.Heading)
		y = Clamp(y, b.YMin, b.YMax)
	}
	w.X, w.Y = x, y
}

// ToNearby converts to the broadcast form
func (w *Wanderer) ToNearby() NearbyEntity {
	return NearbyEntity{ID: w.ID, X: w.X, Y: w.Y, Kind: KindWanderer}
}
