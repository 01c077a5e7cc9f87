package main

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/tkovis/spatial-grid/grid"
	"github.com/tkovis/spatial-grid/store"
)

// Options controls one benchmark run
type Options struct {
	Clients     int
	Finds       int
	Iterations  int
	Cells       int
	Extent      float64
	Half        float64
	Seed        uint64
	PersistPath string // empty skips the persist and read phases
	KeepFinal   bool   // keep a copy of the last grid before removal
}

// Validate rejects options that cannot produce a meaningful run
func (o Options) Validate() error {
	switch {
	case o.Clients < 1:
		return fmt.Errorf("clients must be >= 1, got %d", o.Clients)
	case o.Finds < 1:
		return fmt.Errorf("finds must be >= 1, got %d", o.Finds)
	case o.Iterations < 1:
		return fmt.Errorf("iterations must be >= 1, got %d", o.Iterations)
	case o.Cells < 1 || o.Cells > grid.MaxCells/o.Cells:
		return fmt.Errorf("cells must be in [1, sqrt(%d)], got %d", grid.MaxCells, o.Cells)
	case !(o.Extent >= 0):
		return fmt.Errorf("extent must be >= 0, got %g", o.Extent)
	case !(o.Half > 0):
		return fmt.Errorf("half must be > 0, got %g", o.Half)
	}
	return nil
}

// Phase describes one timed step of an iteration
type Phase struct {
	Name string
	Unit string // what one operation is, for per-op figures
	Ops  int
}

// Phases lists the timed steps in execution order
func (o Options) Phases() []Phase {
	phases := []Phase{
		{Name: "add", Unit: "client", Ops: o.Clients},
		{Name: "find", Unit: "iteration", Ops: o.Finds},
		{Name: "update", Unit: "client", Ops: o.Clients},
	}
	if o.PersistPath != "" {
		phases = append(phases,
			Phase{Name: "persist", Unit: "grid", Ops: 1},
			Phase{Name: "read", Unit: "grid", Ops: 1},
		)
	}
	return append(phases, Phase{Name: "remove", Unit: "client", Ops: o.Clients})
}

// Result holds the duration of every phase of every iteration, indexed
// [iteration][phase] in the order of Options.Phases.
type Result struct {
	Options Options
	Phases  []Phase
	Times   [][]time.Duration
	Hits    int        // total ids returned by the find phases
	Final   *grid.Grid // populated when Options.KeepFinal is set
}

// fixture is the pre-generated input of one iteration
type fixture struct {
	grid      *grid.Grid
	ext       grid.Extents
	ids       []grid.EntityID
	positions []grid.Vec2
	queries   []grid.Vec2
	moves     []grid.Vec2
}

func newFixture(o Options, rng *rand.Rand) (*fixture, error) {
	b := grid.Bounds{XMin: -o.Half, YMin: -o.Half, XMax: o.Half, YMax: o.Half}
	g, err := grid.New(b, grid.Dimensions{CellsX: o.Cells, CellsY: o.Cells})
	if err != nil {
		return nil, err
	}
	point := func() grid.Vec2 {
		return grid.Vec2{
			X: b.XMin + rng.Float64()*b.Width(),
			Y: b.YMin + rng.Float64()*b.Height(),
		}
	}

	var ids grid.IDAllocator
	f := &fixture{
		grid:      g,
		ext:       grid.Extents{Width: o.Extent, Height: o.Extent},
		ids:       make([]grid.EntityID, o.Clients),
		positions: make([]grid.Vec2, o.Clients),
		queries:   make([]grid.Vec2, o.Finds),
		moves:     make([]grid.Vec2, o.Clients),
	}
	for i := range f.positions {
		f.ids[i] = ids.Next()
		f.positions[i] = point()
	}
	for i := range f.queries {
		f.queries[i] = point()
	}
	for i := range f.moves {
		f.moves[i] = grid.Vec2{X: rng.Float64(), Y: rng.Float64()}
	}
	return f, nil
}

func (f *fixture) add() error {
	for i, id := range f.ids {
		if err := f.grid.Insert(id, f.positions[i], f.ext); err != nil {
			return err
		}
	}
	return nil
}

func (f *fixture) find() int {
	hits := 0
	var buf []grid.EntityID
	seen := make(grid.Set)
	for _, q := range f.queries {
		buf = f.grid.AppendNearby(buf[:0], seen, q, f.ext)
		hits += len(buf)
	}
	return hits
}

// reset puts every client back on its starting position
func (f *fixture) reset() error {
	for i, id := range f.ids {
		if err := f.grid.Relocate(id, f.positions[i], f.ext); err != nil {
			return err
		}
	}
	return nil
}

func (f *fixture) update() error {
	for i, id := range f.ids {
		p := grid.Vec2{X: f.positions[i].X + f.moves[i].X, Y: f.positions[i].Y + f.moves[i].Y}
		if err := f.grid.Relocate(id, p, f.ext); err != nil {
			return err
		}
	}
	return nil
}

func (f *fixture) remove() {
	for _, id := range f.ids {
		f.grid.Remove(id)
	}
}

// timed runs fn and returns its wall-clock duration
func timed(fn func() error) (time.Duration, error) {
	start := time.Now()
	err := fn()
	return time.Since(start), err
}

// Run executes the benchmark
func Run(o Options) (*Result, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(o.Seed, o.Seed+1))
	res := &Result{Options: o, Phases: o.Phases()}

	for it := 0; it < o.Iterations; it++ {
		f, err := newFixture(o, rng)
		if err != nil {
			return nil, err
		}

		steps := map[string]func() error{
			"add": f.add,
			"find": func() error {
				res.Hits += f.find()
				return nil
			},
			"update": f.update,
			"persist": func() error {
				return store.WriteFile(o.PersistPath, f.grid)
			},
			"read": func() error {
				_, err := store.ReadFile(o.PersistPath)
				return err
			},
			"remove": func() error {
				f.remove()
				return nil
			},
		}

		times := make([]time.Duration, len(res.Phases))
		for i, ph := range res.Phases {
			if ph.Name == "update" {
				// untimed: start from the spawn positions
				if err := f.reset(); err != nil {
					return nil, err
				}
			}
			if ph.Name == "remove" && o.KeepFinal && it == o.Iterations-1 {
				if res.Final, err = cloneGrid(f.grid); err != nil {
					return nil, err
				}
			}
			d, err := timed(steps[ph.Name])
			if err != nil {
				return nil, fmt.Errorf("iteration %d %s: %w", it+1, ph.Name, err)
			}
			times[i] = d
		}
		res.Times = append(res.Times, times)
	}
	return res, nil
}

func cloneGrid(g *grid.Grid) (*grid.Grid, error) {
	data, err := g.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return grid.DeserializeBinary(data)
}
