// Command gridbench measures insert, query, relocate and remove throughput
// of the spatial grid.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tkovis/spatial-grid/store"
)

func main() {
	var o Options
	flag.IntVar(&o.Clients, "clients", 100000, "Entities inserted per iteration")
	flag.IntVar(&o.Finds, "finds", 10000, "Range queries per iteration")
	flag.IntVar(&o.Iterations, "iterations", 10, "Number of iterations")
	flag.IntVar(&o.Cells, "cells", 100, "Cells along each axis")
	flag.Float64Var(&o.Extent, "extent", 15, "Edge length of entities and query boxes")
	flag.Float64Var(&o.Half, "half", 1000, "Half of the world edge length")
	flag.Uint64Var(&o.Seed, "seed", uint64(time.Now().UnixNano()), "Random seed")
	flag.StringVar(&o.PersistPath, "persist", "", "Also time writing and reading the grid as JSON at this path")
	dbPath := flag.String("db", "", "Store the final grid as a snapshot in this SQLite database")
	chartPath := flag.String("plot", "", "Write a PNG bar chart of per-op averages to this path")
	flag.Parse()

	o.KeepFinal = *dbPath != ""

	log.Printf("gridbench: %d clients, %d finds, %d iterations, %dx%d cells, seed %d",
		o.Clients, o.Finds, o.Iterations, o.Cells, o.Cells, o.Seed)

	res, err := Run(o)
	if err != nil {
		log.Fatalf("gridbench: %v", err)
	}
	sums := Summarize(res)
	if err := WriteReport(os.Stdout, res, sums); err != nil {
		log.Fatalf("gridbench: %v", err)
	}
	fmt.Printf("%d ids returned by range queries\n", res.Hits)

	if *chartPath != "" {
		if err := SaveChart(*chartPath, sums); err != nil {
			log.Fatalf("gridbench: chart: %v", err)
		}
		log.Printf("gridbench: chart written to %s", *chartPath)
	}

	if *dbPath != "" {
		db, err := store.Open(*dbPath)
		if err != nil {
			log.Fatalf("gridbench: %v", err)
		}
		defer db.Close()
		name := "gridbench-" + uuid.NewString()
		id, err := db.SaveSnapshot(name, fmt.Sprintf("seed=%d", o.Seed), res.Final)
		if err != nil {
			log.Fatalf("gridbench: snapshot: %v", err)
		}
		log.Printf("gridbench: final grid stored as snapshot %d (%s)", id, name)
	}
}
