package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/tkovis/spatial-grid/grid"
)

// Config holds everything the server needs at startup
type Config struct {
	Addr        string
	DBPath      string
	PublicURL   string
	Bounds      grid.Bounds
	Dims        grid.Dimensions
	Wanderers   int
	AvatarSize  float64
	ViewSize    float64
	MaxAvatars  int
	MaxWorlds   int
	Linger      time.Duration
	SnapshotInt time.Duration
	MaxConnsIP  int
	MaxConns    int
}

// DefaultConfig mirrors the benchmark world: a 2000x2000 area split into
// 100x100 cells.
func DefaultConfig() Config {
	return Config{
		Addr:        ":8080",
		DBPath:      "grid.db",
		Bounds:      grid.Bounds{XMin: -1000, YMin: -1000, XMax: 1000, YMax: 1000},
		Dims:        grid.Dimensions{CellsX: 100, CellsY: 100},
		Wanderers:   200,
		AvatarSize:  15,
		ViewSize:    200,
		MaxAvatars:  50,
		MaxWorlds:   20,
		Linger:      30 * time.Second,
		SnapshotInt: 5 * time.Minute,
		MaxConnsIP:  5,
		MaxConns:    1000,
	}
}

// Validate reports the first setting that cannot work
func (c Config) Validate() error {
	if err := c.Bounds.Validate(); err != nil {
		return err
	}
	if err := c.Dims.Validate(); err != nil {
		return err
	}
	switch {
	case c.Addr == "":
		return errors.New("config: empty listen address")
	case c.Wanderers < 0:
		return fmt.Errorf("config: wanderers must be >= 0, got %d", c.Wanderers)
	case c.AvatarSize <= 0:
		return fmt.Errorf("config: avatar size must be > 0, got %g", c.AvatarSize)
	case c.ViewSize <= 0:
		return fmt.Errorf("config: view size must be > 0, got %g", c.ViewSize)
	case c.MaxAvatars < 1:
		return fmt.Errorf("config: max avatars must be >= 1, got %d", c.MaxAvatars)
	case c.MaxWorlds < 1:
		return fmt.Errorf("config: max worlds must be >= 1, got %d", c.MaxWorlds)
	case c.Linger < 0:
		return fmt.Errorf("config: linger must be >= 0, got %s", c.Linger)
	case c.MaxConnsIP < 1 || c.MaxConns < 1:
		return fmt.Errorf("config: connection limits must be >= 1")
	}
	return nil
}

// parseConfig reads flags from args. Environment variables provide the
// defaults so flags always win.
func parseConfig(args []string, output io.Writer) (Config, error) {
	cfg := DefaultConfig()
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&cfg.Addr, "addr", envString("GRID_ADDR", cfg.Addr), "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", envString("GRID_DB", cfg.DBPath), "SQLite database path (empty disables persistence)")
	fs.StringVar(&cfg.PublicURL, "public-url", envString("GRID_PUBLIC_URL", cfg.PublicURL), "Base URL encoded into join QR codes")
	half := fs.Float64("half", envFloat("GRID_HALF_SIZE", cfg.Bounds.XMax), "Half of the world edge length")
	fs.IntVar(&cfg.Dims.CellsX, "cells-x", envInt("GRID_CELLS_X", cfg.Dims.CellsX), "Grid cells along x")
	fs.IntVar(&cfg.Dims.CellsY, "cells-y", envInt("GRID_CELLS_Y", cfg.Dims.CellsY), "Grid cells along y")
	fs.IntVar(&cfg.Wanderers, "wanderers", envInt("GRID_WANDERERS", cfg.Wanderers), "Simulated entities per world")
	fs.Float64Var(&cfg.AvatarSize, "avatar-size", envFloat("GRID_AVATAR_SIZE", cfg.AvatarSize), "Edge length of avatars and wanderers")
	fs.Float64Var(&cfg.ViewSize, "view", envFloat("GRID_VIEW_SIZE", cfg.ViewSize), "Default edge length of a client's area of interest")
	fs.IntVar(&cfg.MaxAvatars, "max-avatars", envInt("GRID_MAX_AVATARS", cfg.MaxAvatars), "Avatars per world")
	fs.IntVar(&cfg.MaxWorlds, "max-worlds", envInt("GRID_MAX_WORLDS", cfg.MaxWorlds), "Concurrent worlds")
	fs.DurationVar(&cfg.Linger, "linger", envDuration("GRID_LINGER", cfg.Linger), "How long a disconnected avatar stays resumable")
	fs.DurationVar(&cfg.SnapshotInt, "snapshot-every", envDuration("GRID_SNAPSHOT_EVERY", cfg.SnapshotInt), "Periodic snapshot interval (0 disables)")
	fs.IntVar(&cfg.MaxConnsIP, "max-conns-ip", envInt("GRID_MAX_CONNS_IP", cfg.MaxConnsIP), "Websocket connections per IP")
	fs.IntVar(&cfg.MaxConns, "max-conns", envInt("GRID_MAX_CONNS", cfg.MaxConns), "Websocket connections in total")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Bounds = grid.Bounds{XMin: -*half, YMin: -*half, XMax: *half, YMax: *half}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}
