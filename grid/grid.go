package grid

import (
	"fmt"
	"sort"
)

// Grid is a fixed-resolution uniform grid mapping entity ids to the cells
// their bounding boxes overlap. It is not safe for concurrent mutation.
type Grid struct {
	bounds   Bounds
	dims     Dimensions
	cells    []map[EntityID]struct{} // index = x*CellsY + y
	entities map[EntityID]IndexRect

	mutations uint64
}

// New creates an empty grid covering bounds with dims cells
func New(bounds Bounds, dims Dimensions) (*Grid, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	if err := dims.Validate(); err != nil {
		return nil, err
	}
	g := &Grid{
		bounds:   bounds,
		dims:     dims,
		cells:    make([]map[EntityID]struct{}, dims.Cells()),
		entities: make(map[EntityID]IndexRect),
	}
	for i := range g.cells {
		g.cells[i] = make(map[EntityID]struct{})
	}
	return g, nil
}

// Bounds returns the world rectangle the grid covers
func (g *Grid) Bounds() Bounds { return g.bounds }

// Dimensions returns the cell counts
func (g *Grid) Dimensions() Dimensions { return g.dims }

// Len returns the number of inserted entities
func (g *Grid) Len() int { return len(g.entities) }

// Mutations returns the total number of single-cell membership changes
// applied since the grid was created.
func (g *Grid) Mutations() uint64 { return g.mutations }

// IndexRectFor maps a box onto this grid's cells
func (g *Grid) IndexRectFor(pos Vec2, ext Extents) IndexRect {
	return IndexRectFor(g.bounds, g.dims, pos, ext)
}

// Rect returns the rectangle recorded for id
func (g *Grid) Rect(id EntityID) (IndexRect, bool) {
	r, ok := g.entities[id]
	return r, ok
}

// Contains reports whether id is currently inserted
func (g *Grid) Contains(id EntityID) bool {
	_, ok := g.entities[id]
	return ok
}

// Entities returns all inserted ids in ascending order
func (g *Grid) Entities() []EntityID {
	ids := make([]EntityID, 0, len(g.entities))
	for id := range g.entities {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// Cell returns the ids in cell (x, y) in ascending order. Out of range
// coordinates return nil.
func (g *Grid) Cell(x, y int) []EntityID {
	if !g.inRange(x, y) {
		return nil
	}
	set := g.cells[g.index(x, y)]
	ids := make([]EntityID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// CellLen returns the number of ids in cell (x, y)
func (g *Grid) CellLen(x, y int) int {
	if !g.inRange(x, y) {
		return 0
	}
	return len(g.cells[g.index(x, y)])
}

// Insert adds id to every cell its box overlaps
func (g *Grid) Insert(id EntityID, pos Vec2, ext Extents) error {
	if id == 0 {
		return ErrInvalidID
	}
	if _, ok := g.entities[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateEntity, id)
	}
	r := g.IndexRectFor(pos, ext)
	g.addRect(id, r)
	g.entities[id] = r
	return nil
}

// Remove clears id from the grid. Unknown ids are ignored.
func (g *Grid) Remove(id EntityID) {
	r, ok := g.entities[id]
	if !ok {
		return
	}
	g.removeRect(id, r)
	delete(g.entities, id)
}

func (g *Grid) inRange(x, y int) bool {
	return x >= 0 && x < g.dims.CellsX && y >= 0 && y < g.dims.CellsY
}

func (g *Grid) index(x, y int) int {
	return x*g.dims.CellsY + y
}

func (g *Grid) addCell(id EntityID, x, y int) {
	g.cells[g.index(x, y)][id] = struct{}{}
	g.mutations++
}

func (g *Grid) removeCell(id EntityID, x, y int) {
	delete(g.cells[g.index(x, y)], id)
	g.mutations++
}

func (g *Grid) addRect(id EntityID, r IndexRect) {
	r.forEach(func(x, y int) { g.addCell(id, x, y) })
}

func (g *Grid) removeRect(id EntityID, r IndexRect) {
	r.forEach(func(x, y int) { g.removeCell(id, x, y) })
}

func sortIDs(ids []EntityID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
