package main

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
	"github.com/tkovis/spatial-grid/store"
)

const (
	qrSize            = 256
	defaultListLimit  = 20
	maxListLimit      = 500
	manualSnapshotTag = "manual"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorMsg{Msg: msg})
}

func queryLimit(r *http.Request) int {
	limit := defaultListLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, maxListLimit)
	}
	return limit
}

// worldFromQuery resolves ?wid= or writes a 404
func (h *Hub) worldFromQuery(w http.ResponseWriter, r *http.Request) *World {
	world := h.worlds.GetWorld(r.URL.Query().Get("wid"))
	if world == nil {
		writeJSONError(w, http.StatusNotFound, "world not found")
	}
	return world
}

// joinURL is the link a QR code points at
func (h *Hub) joinURL(r *http.Request, wid string) string {
	base := h.cfg.PublicURL
	if base == "" {
		base = "http://" + r.Host
	}
	return strings.TrimSuffix(base, "/") + "/?wid=" + url.QueryEscape(wid)
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade error: %v", err)
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"worlds":      len(hub.worlds.All()),
			"clients":     hub.ClientCount(),
			"persistence": hub.db != nil,
		})
	})

	mux.HandleFunc("/worlds", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.worlds.ListWorlds())
	})

	mux.HandleFunc("/snapshots", hub.handleSnapshots)
	mux.HandleFunc("/stats", hub.handleStats)

	mux.HandleFunc("/debug/heatmap", func(w http.ResponseWriter, r *http.Request) {
		world := hub.worldFromQuery(w, r)
		if world == nil {
			return
		}
		page, err := renderHeatmap(world.Name, world.Occupancy())
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to render chart: "+err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	})

	mux.HandleFunc("/qr", func(w http.ResponseWriter, r *http.Request) {
		world := hub.worldFromQuery(w, r)
		if world == nil {
			return
		}
		png, err := qrcode.Encode(hub.joinURL(r, world.ID), qrcode.Medium, qrSize)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(png)
	})

	return mux
}

// handleSnapshots lists snapshots (GET) or persists a world (POST ?wid=)
func (h *Hub) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}
	switch r.Method {
	case http.MethodGet:
		rows, err := h.db.ListSnapshots(queryLimit(r))
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if rows == nil {
			rows = []store.SnapshotRow{}
		}
		writeJSON(w, http.StatusOK, rows)
	case http.MethodPost:
		world := h.worldFromQuery(w, r)
		if world == nil {
			return
		}
		id, err := world.SaveSnapshot(h.db, manualSnapshotTag)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id, "wid": world.ID})
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleStats returns the latest tick statistics of ?wid=
func (h *Hub) handleStats(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}
	wid := r.URL.Query().Get("wid")
	if wid == "" {
		writeJSONError(w, http.StatusBadRequest, "missing wid")
		return
	}
	rows, err := h.db.TickStatsFor(wid, queryLimit(r))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []store.TickStats{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// saveAll snapshots every running world
func (h *Hub) saveAll(reason string) {
	if h.db == nil {
		return
	}
	for _, world := range h.worlds.All() {
		if _, err := world.SaveSnapshot(h.db, reason); err != nil {
			log.Printf("snapshot %s: %v", world.ID, err)
		}
	}
}
