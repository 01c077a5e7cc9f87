package main

import (
	"errors"
	"log"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/tkovis/spatial-grid/grid"
	"github.com/tkovis/spatial-grid/store"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	TickRate       = 60 // simulation ticks per second
	BroadcastRate  = 20 // nearby-state broadcasts per second
	TickDuration   = time.Second / TickRate
	BroadcastEvery = TickRate / BroadcastRate
	StatsEvery     = TickRate // one tick-stats row per second
)

var (
	ErrWorldFull     = errors.New("world full")
	ErrAvatarMissing = errors.New("avatar not found")
)

// Broadcaster is the part of a client a world talks to
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// StatsSink receives per-world tick statistics
type StatsSink interface {
	Record(s store.TickStats)
}

// WorldConfig is the part of Config that shapes a single world
type WorldConfig struct {
	Bounds     grid.Bounds
	Dims       grid.Dimensions
	Wanderers  int
	AvatarSize float64
	ViewSize   float64
	MaxAvatars int
	Linger     time.Duration
}

// WorldConfig extracts the per-world settings
func (c Config) WorldConfig() WorldConfig {
	return WorldConfig{
		Bounds:     c.Bounds,
		Dims:       c.Dims,
		Wanderers:  c.Wanderers,
		AvatarSize: c.AvatarSize,
		ViewSize:   c.ViewSize,
		MaxAvatars: c.MaxAvatars,
		Linger:     c.Linger,
	}
}

// World owns one grid and every entity indexed in it
type World struct {
	ID   string
	Name string

	cfg       WorldConfig
	mu        sync.RWMutex
	grid      *grid.Grid
	ids       grid.IDAllocator
	rng       *rand.Rand
	avatars   map[grid.EntityID]*Avatar
	wanderers map[grid.EntityID]*Wanderer
	tick      uint64
	stop      chan struct{}
	stopOnce  sync.Once
	stats     StatsSink
	onEmpty   func(*World)

	// accumulated since the last stats row
	relocations     int
	noopRelocations int
	mutationsMark   uint64

	// scratch space reused by broadcasts
	nearbyBuf []grid.EntityID
	seen      grid.Set
}

// NewWorld builds a world and populates it with wanderers
func NewWorld(id, name string, cfg WorldConfig, seed uint64) (*World, error) {
	g, err := grid.New(cfg.Bounds, cfg.Dims)
	if err != nil {
		return nil, err
	}
	w := &World{
		ID:        id,
		Name:      name,
		cfg:       cfg,
		grid:      g,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		avatars:   make(map[grid.EntityID]*Avatar),
		wanderers: make(map[grid.EntityID]*Wanderer),
		stop:      make(chan struct{}),
		seen:      make(grid.Set),
	}
	size := w.bodySize()
	for i := 0; i < cfg.Wanderers; i++ {
		wd := NewWanderer(w.ids.Next(), cfg.Bounds, size, w.rng)
		if err := w.grid.Insert(wd.ID, wd.Pos(), wd.Size); err != nil {
			return nil, err
		}
		w.wanderers[wd.ID] = wd
	}
	w.mutationsMark = w.grid.Mutations()
	return w, nil
}

func (w *World) bodySize() grid.Extents {
	return grid.Extents{Width: w.cfg.AvatarSize, Height: w.cfg.AvatarSize}
}

// Run starts the world loop
func (w *World) Run() {
	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	dt := 1.0 / float64(TickRate)
	for {
		select {
		case <-ticker.C:
			if w.step(dt) && w.onEmpty != nil {
				w.onEmpty(w)
			}
		case <-w.stop:
			return
		}
	}
}

// Stop terminates the world loop
func (w *World) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// AddAvatar places a new avatar near the middle of the world
func (w *World) AddAvatar(name string, client Broadcaster) (*Avatar, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.avatars) >= w.cfg.MaxAvatars {
		return nil, ErrWorldFull
	}
	b := w.cfg.Bounds
	x := b.XMin + b.Width()/4 + w.rng.Float64()*b.Width()/2
	y := b.YMin + b.Height()/4 + w.rng.Float64()*b.Height()/2
	view := grid.Extents{Width: w.cfg.ViewSize, Height: w.cfg.ViewSize}
	a := NewAvatar(w.ids.Next(), name, x, y, w.bodySize(), view)
	if err := w.grid.Insert(a.ID, a.Pos(), a.Size); err != nil {
		return nil, err
	}
	a.client = client
	if client == nil {
		a.detachedAt = time.Now()
	}
	w.avatars[a.ID] = a
	return a, nil
}

// ResumeAvatar attaches client to an existing avatar
func (w *World) ResumeAvatar(id grid.EntityID, client Broadcaster) (*Avatar, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	a, ok := w.avatars[id]
	if !ok {
		return nil, ErrAvatarMissing
	}
	a.client = client
	a.detachedAt = time.Time{}
	return a, nil
}

// DetachAvatar drops client from its avatar. The avatar lingers for the
// configured time so the client can resume it.
func (w *World) DetachAvatar(id grid.EntityID, client Broadcaster) {
	w.mu.Lock()
	defer w.mu.Unlock()

	a, ok := w.avatars[id]
	if !ok || a.client != client {
		return
	}
	if w.cfg.Linger <= 0 {
		w.removeAvatarLocked(id)
		return
	}
	a.client = nil
	a.detachedAt = time.Now()
}

// RemoveAvatar deletes an avatar from the world
func (w *World) RemoveAvatar(id grid.EntityID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.removeAvatarLocked(id)
}

func (w *World) removeAvatarLocked(id grid.EntityID) {
	if _, ok := w.avatars[id]; !ok {
		return
	}
	w.grid.Remove(id)
	delete(w.avatars, id)
}

// SetTarget steers an avatar toward (x, y)
func (w *World) SetTarget(id grid.EntityID, x, y float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	a, ok := w.avatars[id]
	if !ok {
		return
	}
	b := w.cfg.Bounds
	a.TargetX = Clamp(x, b.XMin, b.XMax)
	a.TargetY = Clamp(y, b.YMin, b.YMax)
}

// SetView resizes an avatar's area of interest
func (w *World) SetView(id grid.EntityID, width, height float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if a, ok := w.avatars[id]; ok {
		a.SetView(width, height)
	}
}

// AvatarCount returns the number of avatars, attached or lingering
func (w *World) AvatarCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.avatars)
}

// Info summarizes the world for listings
func (w *World) Info() WorldInfo {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorldInfo{
		ID:       w.ID,
		Name:     w.Name,
		Avatars:  len(w.avatars),
		Entities: w.grid.Len(),
	}
}

// Occupancy returns the number of entities in every cell, indexed [x][y]
func (w *World) Occupancy() [][]int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	dims := w.grid.Dimensions()
	out := make([][]int, dims.CellsX)
	for x := range out {
		out[x] = make([]int, dims.CellsY)
		for y := range out[x] {
			out[x][y] = w.grid.CellLen(x, y)
		}
	}
	return out
}

// SaveSnapshot persists the grid under the world id
func (w *World) SaveSnapshot(db *store.DB, reason string) (int64, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return db.SaveSnapshot(w.ID, reason, w.grid)
}

// step runs one world tick. It reports true when the last avatar expired
// during this tick.
func (w *World) step(dt float64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tick++
	b := w.cfg.Bounds

	for _, wd := range w.wanderers {
		wd.Update(dt, b, w.rng)
		w.relocate(wd.ID, wd.Pos(), wd.Size)
	}
	for _, a := range w.avatars {
		a.Update(dt, b)
		w.relocate(a.ID, a.Pos(), a.Size)
	}

	expired := w.expireLingering(time.Now())

	if w.tick%BroadcastEvery == 0 {
		w.broadcastNearby()
	}
	if w.tick%StatsEvery == 0 {
		w.recordStats()
	}
	return expired > 0 && len(w.avatars) == 0
}

func (w *World) relocate(id grid.EntityID, pos grid.Vec2, ext grid.Extents) {
	before := w.grid.Mutations()
	if err := w.grid.Relocate(id, pos, ext); err != nil {
		log.Printf("world %s: relocate %d: %v", w.ID, id, err)
		return
	}
	w.relocations++
	if w.grid.Mutations() == before {
		w.noopRelocations++
	}
}

func (w *World) expireLingering(now time.Time) int {
	expired := 0
	for id, a := range w.avatars {
		if a.Detached() && now.Sub(a.detachedAt) >= w.cfg.Linger {
			w.removeAvatarLocked(id)
			expired++
		}
	}
	return expired
}

func (w *World) recordStats() {
	mutations := w.grid.Mutations()
	if w.stats != nil {
		w.stats.Record(store.TickStats{
			World:           w.ID,
			Tick:            w.tick,
			Entities:        w.grid.Len(),
			Relocations:     w.relocations,
			NoopRelocations: w.noopRelocations,
			Mutations:       mutations - w.mutationsMark,
			RecordedAt:      time.Now(),
		})
	}
	w.relocations = 0
	w.noopRelocations = 0
	w.mutationsMark = mutations
}

// nearbyLocked collects the occupants of a's area of interest, excluding a
func (w *World) nearbyLocked(a *Avatar) NearbyState {
	w.nearbyBuf = w.grid.AppendNearby(w.nearbyBuf[:0], w.seen, a.Pos(), a.View)
	slices.Sort(w.nearbyBuf)

	state := NearbyState{
		Tick:   w.tick,
		Self:   a.ID,
		X:      a.X,
		Y:      a.Y,
		Nearby: make([]NearbyEntity, 0, len(w.nearbyBuf)),
	}
	for _, id := range w.nearbyBuf {
		if id == a.ID {
			continue
		}
		if other, ok := w.avatars[id]; ok {
			state.Nearby = append(state.Nearby, other.ToNearby())
		} else if wd, ok := w.wanderers[id]; ok {
			state.Nearby = append(state.Nearby, wd.ToNearby())
		}
	}
	return state
}

// broadcastNearby sends every attached client the occupants of its area
func (w *World) broadcastNearby() {
	for _, a := range w.avatars {
		if a.client == nil {
			continue
		}
		data, err := msgpack.Marshal(w.nearbyLocked(a))
		if err != nil {
			log.Printf("world %s: marshal nearby: %v", w.ID, err)
			continue
		}
		a.client.SendBinary(data)
	}
}
