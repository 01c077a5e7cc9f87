package grid

import "fmt"

// Relocate moves id to a new box. Only cells whose membership changes are
// touched: if the cell rectangle is unchanged nothing happens, otherwise the
// newly covered strips gain the id and the uncovered strips lose it.
//
// Relocating an id that was never inserted (or was removed) returns
// ErrUnknownEntity and leaves the grid untouched.
func (g *Grid) Relocate(id EntityID, pos Vec2, ext Extents) error {
	prev, ok := g.entities[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEntity, id)
	}
	cur := g.IndexRectFor(pos, ext)
	if cur == prev {
		return nil
	}

	overlap := prev.Intersect(cur)
	if overlap.Empty() {
		g.removeRect(id, prev)
		g.addRect(id, cur)
	} else {
		forEachOutside(prev, overlap, func(x, y int) { g.removeCell(id, x, y) })
		forEachOutside(cur, overlap, func(x, y int) { g.addCell(id, x, y) })
	}
	g.entities[id] = cur
	return nil
}

// forEachOutside visits the cells of outer that are not in inner, where inner
// is a non-empty sub-rectangle of outer. Left and right strips span outer's
// full height; bottom and top strips only inner's columns, so corners are
// visited once.
func forEachOutside(outer, inner IndexRect, fn func(x, y int)) {
	IndexRect{outer.XMin, outer.YMin, inner.XMin - 1, outer.YMax}.forEach(fn)
	IndexRect{inner.XMax + 1, outer.YMin, outer.XMax, outer.YMax}.forEach(fn)
	IndexRect{inner.XMin, outer.YMin, inner.XMax, inner.YMin - 1}.forEach(fn)
	IndexRect{inner.XMin, inner.YMax + 1, inner.XMax, outer.YMax}.forEach(fn)
}
