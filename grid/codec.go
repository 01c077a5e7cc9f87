package grid

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	formatJSON    = "json"
	formatMsgpack = "msgpack"
)

type boundsDoc struct {
	XMin   float64 `json:"xMin" msgpack:"xMin"`
	YMin   float64 `json:"yMin" msgpack:"yMin"`
	XMax   float64 `json:"xMax" msgpack:"xMax"`
	YMax   float64 `json:"yMax" msgpack:"yMax"`
	Width  float64 `json:"width" msgpack:"width"`
	Height float64 `json:"height" msgpack:"height"`
}

// document is the self-describing text form. cells is indexed [x][y];
// a null entity entry is a tombstone and is read as absent.
type document struct {
	Bounds     boundsDoc             `json:"bounds"`
	Dimensions Dimensions            `json:"dimensions"`
	Cells      [][][]EntityID        `json:"cells"`
	Entities   map[string]*IndexRect `json:"entities"`
}

// binaryDocument is the msgpack form. Entities are a list sorted by id so the
// encoding does not depend on map iteration order.
type binaryDocument struct {
	Bounds     boundsDoc      `msgpack:"bounds"`
	Dimensions Dimensions     `msgpack:"dimensions"`
	Cells      [][][]EntityID `msgpack:"cells"`
	Entities   []entityRecord `msgpack:"entities"`
}

type entityRecord struct {
	ID   EntityID   `msgpack:"id"`
	Rect *IndexRect `msgpack:"rect"`
}

func (g *Grid) boundsDoc() boundsDoc {
	return boundsDoc{
		XMin:   g.bounds.XMin,
		YMin:   g.bounds.YMin,
		XMax:   g.bounds.XMax,
		YMax:   g.bounds.YMax,
		Width:  g.bounds.Width(),
		Height: g.bounds.Height(),
	}
}

func (g *Grid) cellsDoc() [][][]EntityID {
	cells := make([][][]EntityID, g.dims.CellsX)
	for x := range cells {
		cells[x] = make([][]EntityID, g.dims.CellsY)
		for y := range cells[x] {
			cells[x][y] = g.Cell(x, y)
		}
	}
	return cells
}

func (g *Grid) document() document {
	entities := make(map[string]*IndexRect, len(g.entities))
	for id, r := range g.entities {
		r := r
		entities[strconv.FormatUint(uint64(id), 10)] = &r
	}
	return document{
		Bounds:     g.boundsDoc(),
		Dimensions: g.dims,
		Cells:      g.cellsDoc(),
		Entities:   entities,
	}
}

func (g *Grid) binaryDocument() binaryDocument {
	ids := g.Entities()
	records := make([]entityRecord, len(ids))
	for i, id := range ids {
		r := g.entities[id]
		records[i] = entityRecord{ID: id, Rect: &r}
	}
	return binaryDocument{
		Bounds:     g.boundsDoc(),
		Dimensions: g.dims,
		Cells:      g.cellsDoc(),
		Entities:   records,
	}
}

// Serialize encodes the complete grid state as indented JSON. The output is
// deterministic for a given state.
func Serialize(g *Grid) ([]byte, error) {
	return json.MarshalIndent(g.document(), "", "  ")
}

// Deserialize rebuilds a grid from Serialize output. Input that is malformed
// or describes an inconsistent grid yields a *DecodeError.
func Deserialize(data []byte) (*Grid, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &DecodeError{Format: formatJSON, Err: err}
	}
	entities := make(map[EntityID]IndexRect, len(doc.Entities))
	for key, r := range doc.Entities {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, &DecodeError{Format: formatJSON, Reason: "entity key " + strconv.Quote(key), Err: err}
		}
		if r == nil {
			continue
		}
		if _, dup := entities[EntityID(id)]; dup {
			return nil, decodeErrorf(formatJSON, "entity %d listed twice", id)
		}
		entities[EntityID(id)] = *r
	}
	return fromDocument(formatJSON, doc.Bounds, doc.Dimensions, doc.Cells, entities)
}

// MarshalJSON implements json.Marshaler using the compact text form
func (g *Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.document())
}

// UnmarshalJSON implements json.Unmarshaler
func (g *Grid) UnmarshalJSON(data []byte) error {
	ng, err := Deserialize(data)
	if err != nil {
		return err
	}
	*g = *ng
	return nil
}

// MarshalBinary encodes the grid state with msgpack
func (g *Grid) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.Encode(g.binaryDocument()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary replaces g with the state decoded from MarshalBinary output
func (g *Grid) UnmarshalBinary(data []byte) error {
	ng, err := DeserializeBinary(data)
	if err != nil {
		return err
	}
	*g = *ng
	return nil
}

// DeserializeBinary rebuilds a grid from MarshalBinary output
func DeserializeBinary(data []byte) (*Grid, error) {
	var doc binaryDocument
	if err := msgpack.Unmarshal(data, &doc); err != nil {
		return nil, &DecodeError{Format: formatMsgpack, Err: err}
	}
	entities := make(map[EntityID]IndexRect, len(doc.Entities))
	for _, rec := range doc.Entities {
		if rec.Rect == nil {
			continue
		}
		if _, dup := entities[rec.ID]; dup {
			return nil, decodeErrorf(formatMsgpack, "entity %d listed twice", rec.ID)
		}
		entities[rec.ID] = *rec.Rect
	}
	return fromDocument(formatMsgpack, doc.Bounds, doc.Dimensions, doc.Cells, entities)
}

// fromDocument rebuilds a grid from the entity index and then checks that the
// listed cell memberships match it exactly.
func fromDocument(format string, bd boundsDoc, dims Dimensions, cells [][][]EntityID, entities map[EntityID]IndexRect) (*Grid, error) {
	// The shape must match the listed cells before New allocates them.
	if len(cells) != dims.CellsX {
		return nil, decodeErrorf(format, "cells has %d columns, want %d", len(cells), dims.CellsX)
	}
	for x, column := range cells {
		if len(column) != dims.CellsY {
			return nil, decodeErrorf(format, "cells column %d has %d rows, want %d", x, len(column), dims.CellsY)
		}
	}
	g, err := New(Bounds{XMin: bd.XMin, YMin: bd.YMin, XMax: bd.XMax, YMax: bd.YMax}, dims)
	if err != nil {
		return nil, &DecodeError{Format: format, Err: err}
	}

	expected := 0
	for id, r := range entities {
		if id == 0 {
			return nil, decodeErrorf(format, "entity id 0")
		}
		if !r.within(dims) {
			return nil, decodeErrorf(format, "entity %d rect %v outside %dx%d", id, r, dims.CellsX, dims.CellsY)
		}
		g.addRect(id, r)
		g.entities[id] = r
		expected += r.Area()
	}

	listed := 0
	for x, column := range cells {
		for y, ids := range column {
			seen := make(map[EntityID]struct{}, len(ids))
			for _, id := range ids {
				if _, dup := seen[id]; dup {
					return nil, decodeErrorf(format, "cell (%d,%d) lists entity %d twice", x, y, id)
				}
				seen[id] = struct{}{}
				r, ok := entities[id]
				if !ok || !r.Contains(x, y) {
					return nil, decodeErrorf(format, "cell (%d,%d) lists entity %d outside its rect", x, y, id)
				}
				listed++
			}
		}
	}
	if listed != expected {
		return nil, decodeErrorf(format, "cells list %d memberships, entities imply %d", listed, expected)
	}

	g.mutations = 0
	return g, nil
}
