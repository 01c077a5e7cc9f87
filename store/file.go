package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tkovis/spatial-grid/grid"
)

// WriteFile writes the JSON text form of g to path. The data goes to a
// temporary file in the same directory first and is renamed into place.
func WriteFile(path string, g *grid.Grid) error {
	data, err := grid.Serialize(g)
	if err != nil {
		return fmt.Errorf("store: serialize: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// ReadFile loads a grid written by WriteFile
func ReadFile(path string) (*grid.Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	g, err := grid.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	return g, nil
}
