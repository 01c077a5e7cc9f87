package grid

import (
	"fmt"
	"math"
)

// EntityID identifies an entity in the grid. Zero is never a valid id.
type EntityID uint64

// Vec2 is a world-space position
type Vec2 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Extents is the full width and height of a box centered on its position
type Extents struct {
	Width  float64 `json:"width" msgpack:"width"`
	Height float64 `json:"height" msgpack:"height"`
}

// Bounds is the world-space rectangle covered by the grid
type Bounds struct {
	XMin float64 `json:"xMin" msgpack:"xMin"`
	YMin float64 `json:"yMin" msgpack:"yMin"`
	XMax float64 `json:"xMax" msgpack:"xMax"`
	YMax float64 `json:"yMax" msgpack:"yMax"`
}

// Width returns XMax-XMin
func (b Bounds) Width() float64 { return b.XMax - b.XMin }

// Height returns YMax-YMin
func (b Bounds) Height() float64 { return b.YMax - b.YMin }

// Validate reports ErrInvalidBounds unless both sides are finite and positive
func (b Bounds) Validate() error {
	w, h := b.Width(), b.Height()
	if !(w > 0) || !(h > 0) || math.IsInf(w, 0) || math.IsInf(h, 0) {
		return fmt.Errorf("%w: width=%v height=%v", ErrInvalidBounds, w, h)
	}
	return nil
}

// Dimensions is the number of cells along each axis
type Dimensions struct {
	CellsX int `json:"cellsX" msgpack:"cellsX"`
	CellsY int `json:"cellsY" msgpack:"cellsY"`
}

// MaxCells caps CellsX*CellsY. Every cell is allocated up front.
const MaxCells = 1 << 22

// Validate reports ErrInvalidDimensions unless both counts are at least 1 and
// their product is at most MaxCells
func (d Dimensions) Validate() error {
	if d.CellsX < 1 || d.CellsY < 1 || d.CellsX > MaxCells/d.CellsY {
		return fmt.Errorf("%w: cellsX=%d cellsY=%d", ErrInvalidDimensions, d.CellsX, d.CellsY)
	}
	return nil
}

// Cells returns CellsX*CellsY
func (d Dimensions) Cells() int { return d.CellsX * d.CellsY }

// IndexRect is an inclusive range of cell coordinates
type IndexRect struct {
	XMin int `json:"xMin" msgpack:"xMin"`
	YMin int `json:"yMin" msgpack:"yMin"`
	XMax int `json:"xMax" msgpack:"xMax"`
	YMax int `json:"yMax" msgpack:"yMax"`
}

// Empty reports whether the rectangle covers no cells
func (r IndexRect) Empty() bool { return r.XMin > r.XMax || r.YMin > r.YMax }

// Area returns the number of cells covered
func (r IndexRect) Area() int {
	if r.Empty() {
		return 0
	}
	return (r.XMax - r.XMin + 1) * (r.YMax - r.YMin + 1)
}

// Contains reports whether cell (x, y) lies inside r
func (r IndexRect) Contains(x, y int) bool {
	return x >= r.XMin && x <= r.XMax && y >= r.YMin && y <= r.YMax
}

// Intersect returns the overlap of r and o, which may be Empty
func (r IndexRect) Intersect(o IndexRect) IndexRect {
	return IndexRect{
		XMin: max(r.XMin, o.XMin),
		YMin: max(r.YMin, o.YMin),
		XMax: min(r.XMax, o.XMax),
		YMax: min(r.YMax, o.YMax),
	}
}

// within reports whether r is non-empty and inside [0,CellsX) x [0,CellsY)
func (r IndexRect) within(d Dimensions) bool {
	return !r.Empty() && r.XMin >= 0 && r.YMin >= 0 && r.XMax < d.CellsX && r.YMax < d.CellsY
}

func (r IndexRect) String() string {
	return fmt.Sprintf("[%d,%d..%d,%d]", r.XMin, r.YMin, r.XMax, r.YMax)
}

// forEach calls fn for every cell in r. Empty rectangles are skipped.
func (r IndexRect) forEach(fn func(x, y int)) {
	for x := r.XMin; x <= r.XMax; x++ {
		for y := r.YMin; y <= r.YMax; y++ {
			fn(x, y)
		}
	}
}
