package grid

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		bounds Bounds
		dims   Dimensions
		want   error
	}{
		{"zero width", Bounds{0, 0, 0, 10}, Dimensions{1, 1}, ErrInvalidBounds},
		{"negative height", Bounds{0, 10, 10, 0}, Dimensions{1, 1}, ErrInvalidBounds},
		{"infinite width", Bounds{math.Inf(-1), 0, 0, 10}, Dimensions{1, 1}, ErrInvalidBounds},
		{"NaN bound", Bounds{math.NaN(), 0, 10, 10}, Dimensions{1, 1}, ErrInvalidBounds},
		{"zero cells x", Bounds{0, 0, 10, 10}, Dimensions{0, 1}, ErrInvalidDimensions},
		{"negative cells y", Bounds{0, 0, 10, 10}, Dimensions{3, -1}, ErrInvalidDimensions},
		{"product overflows int", Bounds{0, 0, 1, 1}, Dimensions{1 << 31, 1 << 31}, ErrInvalidDimensions},
		{"above MaxCells", Bounds{0, 0, 1, 1}, Dimensions{MaxCells, 2}, ErrInvalidDimensions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.bounds, tt.dims)
			if !errors.Is(err, tt.want) {
				t.Fatalf("New error = %v, want %v", err, tt.want)
			}
			if g != nil {
				t.Error("expected nil grid on error")
			}
		})
	}
}

func TestNewAcceptsMaxCellsEdge(t *testing.T) {
	if err := (Dimensions{CellsX: MaxCells, CellsY: 1}).Validate(); err != nil {
		t.Errorf("MaxCells x 1: %v", err)
	}
	if err := (Dimensions{CellsX: 2048, CellsY: 2048}).Validate(); err != nil {
		t.Errorf("2048x2048: %v", err)
	}
	if err := (Dimensions{CellsX: 2048, CellsY: 2049}).Validate(); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("2048x2049 error = %v, want ErrInvalidDimensions", err)
	}
}

func TestNewStartsEmpty(t *testing.T) {
	g := newExampleGrid(t)
	if g.Len() != 0 {
		t.Errorf("Len = %d, want 0", g.Len())
	}
	if g.Bounds().Width() != 50 || g.Bounds().Height() != 50 {
		t.Errorf("bounds size = %vx%v, want 50x50", g.Bounds().Width(), g.Bounds().Height())
	}
	for x := 0; x < 5; x++ {
		for y := 0; y < 5; y++ {
			if n := g.CellLen(x, y); n != 0 {
				t.Errorf("cell (%d,%d) has %d ids", x, y, n)
			}
		}
	}
}

func TestCellsAreNotAliased(t *testing.T) {
	g := newExampleGrid(t)
	g.addCell(1, 0, 0)
	for x := 0; x < 5; x++ {
		for y := 0; y < 5; y++ {
			if (x != 0 || y != 0) && g.CellLen(x, y) != 0 {
				t.Fatalf("write to (0,0) leaked into (%d,%d)", x, y)
			}
		}
	}
}

func TestInsertRecordsRectAndMembership(t *testing.T) {
	g := newExampleGrid(t)
	if err := g.Insert(1, Vec2{0, 0}, Extents{25, 25}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	r, ok := g.Rect(1)
	if !ok || r != (IndexRect{1, 1, 3, 3}) {
		t.Fatalf("Rect(1) = %v, %v; want [1,1..3,3]", r, ok)
	}
	for x := 0; x < 5; x++ {
		for y := 0; y < 5; y++ {
			want := []EntityID{}
			if r.Contains(x, y) {
				want = []EntityID{1}
			}
			if diff := cmp.Diff(want, g.Cell(x, y)); diff != "" {
				t.Errorf("cell (%d,%d) mismatch (-want +got):\n%s", x, y, diff)
			}
		}
	}
	if g.Mutations() != 9 {
		t.Errorf("Mutations = %d, want 9", g.Mutations())
	}
	checkInvariant(t, g)
}

func TestInsertRejectsZeroAndDuplicateIDs(t *testing.T) {
	g := newExampleGrid(t)
	if err := g.Insert(0, Vec2{0, 0}, smallBox); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Insert(0) error = %v, want ErrInvalidID", err)
	}
	if err := g.Insert(4, Vec2{0, 0}, smallBox); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	before := g.Mutations()
	if err := g.Insert(4, Vec2{20, 20}, smallBox); !errors.Is(err, ErrDuplicateEntity) {
		t.Errorf("duplicate Insert error = %v, want ErrDuplicateEntity", err)
	}
	if g.Mutations() != before {
		t.Error("rejected insert must not mutate cells")
	}
	if r, _ := g.Rect(4); r != (IndexRect{2, 2, 2, 2}) {
		t.Errorf("rect changed by rejected insert: %v", r)
	}
	checkInvariant(t, g)
}

func TestRemove(t *testing.T) {
	g := newExampleGrid(t)
	var ids IDAllocator
	a, b := ids.Next(), ids.Next()
	g.Insert(a, Vec2{0, 0}, smallBox)
	g.Insert(b, Vec2{10, 10}, smallBox)

	g.Remove(b)
	if g.Contains(b) {
		t.Error("removed entity still recorded")
	}
	if n := g.CellLen(3, 3); n != 0 {
		t.Errorf("cell (3,3) still holds %d ids", n)
	}
	if !g.Contains(a) || g.CellLen(2, 2) != 1 {
		t.Error("removing b disturbed a")
	}
	checkInvariant(t, g)
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	g := newExampleGrid(t)
	g.Insert(1, Vec2{0, 0}, smallBox)
	g.Remove(1)
	before := g.Mutations()

	g.Remove(1)  // already removed
	g.Remove(99) // never inserted
	if g.Mutations() != before {
		t.Errorf("Remove of unknown ids mutated cells")
	}
	checkInvariant(t, g)
}

func TestReinsertAfterRemove(t *testing.T) {
	g := newExampleGrid(t)
	g.Insert(1, Vec2{0, 0}, smallBox)
	g.Remove(1)
	if err := g.Insert(1, Vec2{-20, -20}, smallBox); err != nil {
		t.Fatalf("reinsert: %v", err)
	}
	if diff := cmp.Diff([]EntityID{1}, g.Cell(0, 0)); diff != "" {
		t.Errorf("cell (0,0) mismatch (-want +got):\n%s", diff)
	}
	checkInvariant(t, g)
}

func TestEntitiesSorted(t *testing.T) {
	g := newExampleGrid(t)
	for _, id := range []EntityID{9, 3, 5} {
		g.Insert(id, Vec2{0, 0}, smallBox)
	}
	if diff := cmp.Diff([]EntityID{3, 5, 9}, g.Entities()); diff != "" {
		t.Errorf("Entities mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]EntityID{3, 5, 9}, g.Cell(2, 2)); diff != "" {
		t.Errorf("Cell mismatch (-want +got):\n%s", diff)
	}
	if g.Cell(-1, 0) != nil || g.Cell(5, 0) != nil || g.CellLen(0, 5) != 0 {
		t.Error("out of range cells should be empty")
	}
}
