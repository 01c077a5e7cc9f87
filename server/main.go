package main

import (
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tkovis/spatial-grid/store"
)

const statsFlushEvery = 5 * time.Second

func main() {
	cfg, err := parseConfig(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var db *store.DB
	var stats StatsSink
	var analytics *Analytics
	if cfg.DBPath != "" {
		db, err = store.Open(cfg.DBPath)
		if err != nil {
			log.Fatalf("open database %s: %v", cfg.DBPath, err)
		}
		defer db.Close()
		analytics = NewAnalytics(db, statsFlushEvery)
		stats = analytics
	} else {
		log.Printf("persistence disabled")
	}

	hub := NewHub(cfg, db, stats)
	go hub.Run()

	mux := SetupRoutes(hub)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		log.Printf("Server starting on %s (world %gx%g, %dx%d cells)",
			cfg.Addr, cfg.Bounds.Width(), cfg.Bounds.Height(), cfg.Dims.CellsX, cfg.Dims.CellsY)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	done := make(chan struct{})
	if db != nil && cfg.SnapshotInt > 0 {
		go func() {
			ticker := time.NewTicker(cfg.SnapshotInt)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					hub.saveAll("periodic")
				case <-done:
					return
				}
			}
		}()
	}

	<-stop
	log.Println("Shutting down...")
	close(done)
	server.Close()
	hub.saveAll("shutdown")
	hub.worlds.StopAll()
	if analytics != nil {
		analytics.Stop()
	}
}
