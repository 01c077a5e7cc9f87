package main

import (
	"sync"

	"github.com/tkovis/spatial-grid/store"
)

// Hub manages all connected clients and routes them to worlds
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	worlds     *WorldManager
	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
	maxPerIP   int
	maxTotal   int
	cfg        Config
	db         *store.DB // nil disables persistence
	auth       *Auth
}

// NewHub creates a new Hub. db may be nil; stats may be nil.
func NewHub(cfg Config, db *store.DB, stats StatsSink) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		worlds:     NewWorldManager(cfg.WorldConfig(), cfg.MaxWorlds, stats),
		ipConns:    make(map[string]int),
		maxPerIP:   cfg.MaxConnsIP,
		maxTotal:   cfg.MaxConns,
		cfg:        cfg,
		db:         db,
		auth:       NewAuth(db),
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= h.maxTotal {
		return false
	}
	if h.ipConns[ip] >= h.maxPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			// Leave the avatar lingering so the client can resume it
			if w, id := client.current(); w != nil {
				h.worlds.ReleaseAvatar(w, id, client)
			}
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
