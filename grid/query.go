package grid

import "encoding/json"

// Set is an unordered set of entity ids
type Set map[EntityID]struct{}

// Has reports whether id is in the set
func (s Set) Has(id EntityID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of ids
func (s Set) Len() int { return len(s) }

// Sorted returns the ids in ascending order
func (s Set) Sorted() []EntityID {
	ids := make([]EntityID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// MarshalJSON encodes the set as an ascending array
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of ids
func (s *Set) UnmarshalJSON(data []byte) error {
	var ids []EntityID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = make(Set, len(ids))
	for _, id := range ids {
		(*s)[id] = struct{}{}
	}
	return nil
}

// FindNearby returns every id sharing a cell with the query box. The result
// may include the querying entity itself.
func (g *Grid) FindNearby(pos Vec2, ext Extents) Set {
	r := g.IndexRectFor(pos, ext)
	nearby := make(Set)
	r.forEach(func(x, y int) {
		for id := range g.cells[g.index(x, y)] {
			nearby[id] = struct{}{}
		}
	})
	return nearby
}

// AppendNearby appends the ids sharing a cell with the query box to buf,
// each id once, and returns the extended slice. seen is cleared and reused
// for deduplication; pass nil to allocate one.
func (g *Grid) AppendNearby(buf []EntityID, seen Set, pos Vec2, ext Extents) []EntityID {
	if seen == nil {
		seen = make(Set)
	} else {
		clear(seen)
	}
	r := g.IndexRectFor(pos, ext)
	r.forEach(func(x, y int) {
		for id := range g.cells[g.index(x, y)] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			buf = append(buf, id)
		}
	})
	return buf
}
