package grid

import (
	"testing"
)

// exampleBounds and exampleDims describe a 5x5 grid of 10x10 cells centered
// on the origin.
var (
	exampleBounds = Bounds{XMin: -25, YMin: -25, XMax: 25, YMax: 25}
	exampleDims   = Dimensions{CellsX: 5, CellsY: 5}
	smallBox      = Extents{Width: 5, Height: 5}
)

func newExampleGrid(t *testing.T) *Grid {
	t.Helper()
	g, err := New(exampleBounds, exampleDims)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

// checkInvariant verifies that every recorded entity occupies exactly the
// cells of its rectangle and that no cell holds an id outside it.
func checkInvariant(t *testing.T, g *Grid) {
	t.Helper()
	occupied := make(map[EntityID]int)
	for x := 0; x < g.dims.CellsX; x++ {
		for y := 0; y < g.dims.CellsY; y++ {
			for id := range g.cells[g.index(x, y)] {
				r, ok := g.entities[id]
				if !ok {
					t.Fatalf("cell (%d,%d) holds unknown entity %d", x, y, id)
				}
				if !r.Contains(x, y) {
					t.Fatalf("cell (%d,%d) holds entity %d outside its rect %v", x, y, id, r)
				}
				occupied[id]++
			}
		}
	}
	for id, r := range g.entities {
		if !r.within(g.dims) {
			t.Fatalf("entity %d rect %v out of range", id, r)
		}
		if occupied[id] != r.Area() {
			t.Fatalf("entity %d occupies %d cells, rect %v has %d", id, occupied[id], r, r.Area())
		}
	}
}
