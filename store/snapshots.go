package store

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tkovis/spatial-grid/grid"
	"golang.org/x/crypto/blake2b"
)

// SnapshotRow describes a stored snapshot without its payload
type SnapshotRow struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Reason      string    `json:"reason"`
	TakenAt     time.Time `json:"takenAt"`
	CellsX      int       `json:"cellsX"`
	CellsY      int       `json:"cellsY"`
	EntityCount int       `json:"entityCount"`
	Digest      string    `json:"digest"`
	Size        int       `json:"size"`
}

// encodeGrid compresses the msgpack form of g with gzip
func encodeGrid(g *grid.Grid) ([]byte, error) {
	raw, err := g.MarshalBinary()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGrid reverses encodeGrid
func decodeGrid(blob []byte) (*grid.Grid, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty grid blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()
	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress grid: %w", err)
	}
	return grid.DeserializeBinary(raw)
}

func digest(blob []byte) string {
	sum := blake2b.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

// SaveSnapshot stores the full state of g under name and returns the row id
func (db *DB) SaveSnapshot(name, reason string, g *grid.Grid) (int64, error) {
	blob, err := encodeGrid(g)
	if err != nil {
		return 0, fmt.Errorf("store: encode snapshot: %w", err)
	}
	dims := g.Dimensions()
	res, err := db.conn.Exec(
		`INSERT INTO snapshots (name, reason, taken_unix_nanos, cells_x, cells_y, entity_count, grid_blob, digest)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		name, reason, time.Now().UnixNano(), dims.CellsX, dims.CellsY, g.Len(), blob, digest(blob),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LoadSnapshot restores the grid stored under id
func (db *DB) LoadSnapshot(id int64) (*grid.Grid, error) {
	var blob []byte
	var sum string
	err := db.conn.QueryRow("SELECT grid_blob, digest FROM snapshots WHERE id = ?", id).Scan(&blob, &sum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: snapshot %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if digest(blob) != sum {
		return nil, fmt.Errorf("%w: snapshot %d", ErrCorrupt, id)
	}
	g, err := decodeGrid(blob)
	if err != nil {
		return nil, fmt.Errorf("store: snapshot %d: %w", id, err)
	}
	return g, nil
}

// LatestSnapshot returns the newest snapshot stored under name
func (db *DB) LatestSnapshot(name string) (*SnapshotRow, *grid.Grid, error) {
	var id int64
	err := db.conn.QueryRow(
		"SELECT id FROM snapshots WHERE name = ? ORDER BY taken_unix_nanos DESC, id DESC LIMIT 1",
		name,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: no snapshot named %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, nil, err
	}
	row, err := db.snapshotRow(id)
	if err != nil {
		return nil, nil, err
	}
	g, err := db.LoadSnapshot(id)
	if err != nil {
		return nil, nil, err
	}
	return row, g, nil
}

const snapshotColumns = "id, name, reason, taken_unix_nanos, cells_x, cells_y, entity_count, digest, length(grid_blob)"

func scanSnapshotRow(scan func(dest ...any) error) (*SnapshotRow, error) {
	r := &SnapshotRow{}
	var taken int64
	if err := scan(&r.ID, &r.Name, &r.Reason, &taken, &r.CellsX, &r.CellsY, &r.EntityCount, &r.Digest, &r.Size); err != nil {
		return nil, err
	}
	r.TakenAt = time.Unix(0, taken).UTC()
	return r, nil
}

func (db *DB) snapshotRow(id int64) (*SnapshotRow, error) {
	row := db.conn.QueryRow("SELECT "+snapshotColumns+" FROM snapshots WHERE id = ?", id)
	r, err := scanSnapshotRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: snapshot %d", ErrNotFound, id)
	}
	return r, err
}

// ListSnapshots returns the most recent snapshots, newest first
func (db *DB) ListSnapshots(limit int) ([]SnapshotRow, error) {
	rows, err := db.conn.Query(
		"SELECT "+snapshotColumns+" FROM snapshots ORDER BY taken_unix_nanos DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SnapshotRow
	for rows.Next() {
		r, err := scanSnapshotRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}
