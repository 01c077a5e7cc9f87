package main

import (
	"log"
	"sync"
	"time"

	"github.com/tkovis/spatial-grid/store"
)

const (
	statsQueueSize = 1024
	statsBatchSize = 50
)

// Analytics batches tick statistics and writes them in the background
type Analytics struct {
	db     *store.DB
	events chan store.TickStats
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewAnalytics creates and starts the background writer
func NewAnalytics(db *store.DB, flushEvery time.Duration) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan store.TickStats, statsQueueSize),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer(flushEvery)
	return a
}

// Record enqueues a row for async persistence (non-blocking)
func (a *Analytics) Record(s store.TickStats) {
	select {
	case a.events <- s:
	case <-a.stop:
	default:
		// Queue full; drop rather than stall a world loop
	}
}

// Stop flushes what is queued and shuts the writer down
func (a *Analytics) Stop() {
	a.once.Do(func() { close(a.stop) })
	a.wg.Wait()
}

// writer is the background goroutine that batches rows into the database
func (a *Analytics) writer(flushEvery time.Duration) {
	defer a.wg.Done()

	batch := make([]store.TickStats, 0, statsBatchSize)
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()

	for {
		select {
		case s := <-a.events:
			batch = append(batch, s)
			if len(batch) >= statsBatchSize {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			for {
				select {
				case s := <-a.events:
					batch = append(batch, s)
				default:
					a.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes a batch of rows to the database
func (a *Analytics) flush(batch []store.TickStats) {
	if a.db == nil || len(batch) == 0 {
		return
	}
	if err := a.db.InsertTickStats(batch); err != nil {
		log.Printf("analytics: flush %d rows: %v", len(batch), err)
	}
}
