package store

import (
	"fmt"
	"time"
)

// TickStats summarizes the grid work done by one world tick
type TickStats struct {
	World           string    `json:"world"`
	Tick            uint64    `json:"tick"`
	Entities        int       `json:"entities"`
	Relocations     int       `json:"relocations"`
	NoopRelocations int       `json:"noopRelocations"`
	Mutations       uint64    `json:"mutations"`
	RecordedAt      time.Time `json:"recordedAt"`
}

// InsertTickStats writes a batch in a single transaction. Rows for a tick
// that was already recorded are replaced.
func (db *DB) InsertTickStats(batch []TickStats) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO tick_stats
		(world, tick, entities, relocations, noop_relocations, mutations, recorded_unix_nanos)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare: %w", err)
	}
	defer stmt.Close()

	for _, s := range batch {
		recorded := s.RecordedAt
		if recorded.IsZero() {
			recorded = time.Now()
		}
		if _, err := stmt.Exec(s.World, int64(s.Tick), s.Entities, s.Relocations, s.NoopRelocations, int64(s.Mutations), recorded.UnixNano()); err != nil {
			return fmt.Errorf("store: insert tick %d: %w", s.Tick, err)
		}
	}
	return tx.Commit()
}

// TickStatsFor returns the latest recorded ticks of world, newest first
func (db *DB) TickStatsFor(world string, limit int) ([]TickStats, error) {
	rows, err := db.conn.Query(`
		SELECT world, tick, entities, relocations, noop_relocations, mutations, recorded_unix_nanos
		FROM tick_stats
		WHERE world = ?
		ORDER BY tick DESC
		LIMIT ?`,
		world, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TickStats
	for rows.Next() {
		var s TickStats
		var tick, mutations, recorded int64
		if err := rows.Scan(&s.World, &tick, &s.Entities, &s.Relocations, &s.NoopRelocations, &mutations, &recorded); err != nil {
			return nil, err
		}
		s.Tick = uint64(tick)
		s.Mutations = uint64(mutations)
		s.RecordedAt = time.Unix(0, recorded).UTC()
		result = append(result, s)
	}
	return result, rows.Err()
}
