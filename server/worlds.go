package main

import (
	"errors"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/tkovis/spatial-grid/grid"
)

var ErrTooManyWorlds = errors.New("too many active worlds")

// WorldManager handles creation and lookup of worlds
type WorldManager struct {
	mu     sync.RWMutex
	worlds map[string]*World
	cfg    WorldConfig
	max    int
	stats  StatsSink
}

// NewWorldManager creates a new WorldManager. stats may be nil.
func NewWorldManager(cfg WorldConfig, max int, stats StatsSink) *WorldManager {
	return &WorldManager{
		worlds: make(map[string]*World),
		cfg:    cfg,
		max:    max,
		stats:  stats,
	}
}

// CreateWorld starts a new world. wanderers < 0 uses the configured count.
func (wm *WorldManager) CreateWorld(name string, wanderers int) (*World, error) {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	if len(wm.worlds) >= wm.max {
		return nil, ErrTooManyWorlds
	}

	cfg := wm.cfg
	if wanderers >= 0 {
		cfg.Wanderers = wanderers
	}
	w, err := NewWorld(GenerateUUID(), name, cfg, rand.Uint64())
	if err != nil {
		return nil, err
	}
	w.stats = wm.stats
	w.onEmpty = wm.remove
	wm.worlds[w.ID] = w
	go w.Run()
	return w, nil
}

// GetWorld returns a world by ID
func (wm *WorldManager) GetWorld(id string) *World {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.worlds[id]
}

// All returns every running world
func (wm *WorldManager) All() []*World {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	list := make([]*World, 0, len(wm.worlds))
	for _, w := range wm.worlds {
		list = append(list, w)
	}
	return list
}

// ListWorlds returns info about all worlds, ordered by name
func (wm *WorldManager) ListWorlds() []WorldInfo {
	worlds := wm.All()
	list := make([]WorldInfo, 0, len(worlds))
	for _, w := range worlds {
		list = append(list, w.Info())
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// RemoveAvatar removes an avatar for good and drops the world once it is empty
func (wm *WorldManager) RemoveAvatar(w *World, id grid.EntityID) {
	w.RemoveAvatar(id)
	if w.AvatarCount() == 0 {
		wm.remove(w)
	}
}

// ReleaseAvatar detaches a disconnected client. The world survives while
// the avatar lingers.
func (wm *WorldManager) ReleaseAvatar(w *World, id grid.EntityID, client Broadcaster) {
	w.DetachAvatar(id, client)
	if w.AvatarCount() == 0 {
		wm.remove(w)
	}
}

// StopAll stops every world
func (wm *WorldManager) StopAll() {
	for _, w := range wm.All() {
		wm.remove(w)
	}
}

func (wm *WorldManager) remove(w *World) {
	wm.mu.Lock()
	if wm.worlds[w.ID] == w {
		delete(wm.worlds, w.ID)
	}
	wm.mu.Unlock()
	w.Stop()
}
