package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkovis/spatial-grid/grid"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "grid.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g, err := grid.New(
		grid.Bounds{XMin: -25, YMin: -25, XMax: 25, YMax: 25},
		grid.Dimensions{CellsX: 5, CellsY: 5},
	)
	require.NoError(t, err)
	require.NoError(t, g.Insert(1, grid.Vec2{}, grid.Extents{Width: 5, Height: 5}))
	require.NoError(t, g.Insert(2, grid.Vec2{X: 10}, grid.Extents{Width: 5, Height: 5}))
	require.NoError(t, g.Insert(3, grid.Vec2{X: -20, Y: 20}, grid.Extents{Width: 25, Height: 25}))
	return g
}

func requireSameGrid(t *testing.T, want, got *grid.Grid) {
	t.Helper()
	wantText, err := grid.Serialize(want)
	require.NoError(t, err)
	gotText, err := grid.Serialize(got)
	require.NoError(t, err)
	assert.Equal(t, string(wantText), string(gotText))
}

func TestOpenCreatesSchema(t *testing.T) {
	db := openTestDB(t)

	rows, err := db.ListSnapshots(10)
	require.NoError(t, err)
	assert.Empty(t, rows)

	stats, err := db.TickStatsFor("w", 10)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.SetSetting("k", "v"))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, "v", db.GetSetting("k"))
}

func TestSettings(t *testing.T) {
	db := openTestDB(t)

	assert.Equal(t, "", db.GetSetting("jwt_secret"))
	require.NoError(t, db.SetSetting("jwt_secret", "abc"))
	assert.Equal(t, "abc", db.GetSetting("jwt_secret"))
	require.NoError(t, db.SetSetting("jwt_secret", "def"))
	assert.Equal(t, "def", db.GetSetting("jwt_secret"))
}

func TestSnapshotRoundTrip(t *testing.T) {
	db := openTestDB(t)
	g := sampleGrid(t)

	id, err := db.SaveSnapshot("world-a", "manual", g)
	require.NoError(t, err)
	assert.Positive(t, id)

	restored, err := db.LoadSnapshot(id)
	require.NoError(t, err)
	requireSameGrid(t, g, restored)
	assert.Equal(t, uint64(0), restored.Mutations())
}

func TestLoadSnapshotNotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.LoadSnapshot(42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = db.LatestSnapshot("nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadSnapshotDetectsCorruption(t *testing.T) {
	db := openTestDB(t)
	id, err := db.SaveSnapshot("world-a", "manual", sampleGrid(t))
	require.NoError(t, err)

	_, err = db.conn.Exec("UPDATE snapshots SET digest = ? WHERE id = ?", "00", id)
	require.NoError(t, err)

	_, err = db.LoadSnapshot(id)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoadSnapshotRejectsGarbageBlob(t *testing.T) {
	db := openTestDB(t)
	blob := []byte("not gzip")
	res, err := db.conn.Exec(
		`INSERT INTO snapshots (name, reason, taken_unix_nanos, cells_x, cells_y, entity_count, grid_blob, digest)
		 VALUES ('x', '', 1, 1, 1, 0, ?, ?)`, blob, digest(blob))
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)

	_, err = db.LoadSnapshot(id)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCorrupt)
}

func TestLatestSnapshotPicksNewest(t *testing.T) {
	db := openTestDB(t)
	g := sampleGrid(t)

	_, err := db.SaveSnapshot("world-a", "first", g)
	require.NoError(t, err)
	g.Remove(1)
	second, err := db.SaveSnapshot("world-a", "second", g)
	require.NoError(t, err)
	_, err = db.SaveSnapshot("world-b", "other", sampleGrid(t))
	require.NoError(t, err)

	row, restored, err := db.LatestSnapshot("world-a")
	require.NoError(t, err)
	assert.Equal(t, second, row.ID)
	assert.Equal(t, "second", row.Reason)
	assert.Equal(t, 2, row.EntityCount)
	assert.False(t, restored.Contains(1))
	requireSameGrid(t, g, restored)
}

func TestListSnapshots(t *testing.T) {
	db := openTestDB(t)
	g := sampleGrid(t)
	for _, reason := range []string{"a", "b", "c"} {
		_, err := db.SaveSnapshot("world", reason, g)
		require.NoError(t, err)
	}

	rows, err := db.ListSnapshots(2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "c", rows[0].Reason)
	assert.Equal(t, "b", rows[1].Reason)
	for _, r := range rows {
		assert.Equal(t, 5, r.CellsX)
		assert.Equal(t, 5, r.CellsY)
		assert.Equal(t, 3, r.EntityCount)
		assert.Len(t, r.Digest, 64)
		assert.Positive(t, r.Size)
		assert.WithinDuration(t, time.Now(), r.TakenAt, time.Minute)
	}
}

func TestTickStats(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()

	batch := []TickStats{
		{World: "w", Tick: 1, Entities: 10, Relocations: 10, NoopRelocations: 7, Mutations: 12, RecordedAt: now},
		{World: "w", Tick: 2, Entities: 10, Relocations: 10, NoopRelocations: 9, Mutations: 14, RecordedAt: now},
		{World: "other", Tick: 1, Entities: 1, Relocations: 1, RecordedAt: now},
	}
	require.NoError(t, db.InsertTickStats(batch))
	require.NoError(t, db.InsertTickStats(nil))

	got, err := db.TickStatsFor("w", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(2), got[0].Tick)
	assert.Equal(t, 9, got[0].NoopRelocations)
	assert.Equal(t, uint64(14), got[0].Mutations)
	assert.Equal(t, uint64(1), got[1].Tick)
	assert.Equal(t, now.UnixNano(), got[1].RecordedAt.UnixNano())

	// re-recording a tick replaces it
	require.NoError(t, db.InsertTickStats([]TickStats{{World: "w", Tick: 2, Entities: 11}}))
	got, err = db.TickStatsFor("w", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 11, got[0].Entities)
	assert.False(t, got[0].RecordedAt.IsZero())
}

func TestFileRoundTrip(t *testing.T) {
	g := sampleGrid(t)
	path := filepath.Join(t.TempDir(), "grid.json")

	require.NoError(t, WriteFile(path, g))
	restored, err := ReadFile(path)
	require.NoError(t, err)
	requireSameGrid(t, g, restored)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestReadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadFile(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"bounds":`), 0o644))
	_, err = ReadFile(bad)
	var decodeErr *grid.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}
