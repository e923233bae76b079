// Command simulate runs one headless simulation for a fixed number of
// ticks and exports the run record: sqlite rows for the experiment
// driver, an optional zstd tick log, and a JSON summary on stdout.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	persistlog "dronegrid/internal/persistence/log"
	"dronegrid/internal/persistence/runstore"
	"dronegrid/internal/sim/tuning"
	"dronegrid/internal/sim/world"
)

func main() {
	var (
		ticks      = flag.Int("ticks", 500, "number of ticks to simulate")
		width      = flag.Int("width", 12, "grid width (divisible by 3)")
		height     = flag.Int("height", 10, "grid height")
		seed       = flag.Int64("seed", 1337, "simulation seed")
		agents     = flag.String("agents", "2,2,2", "drones per zone, comma-separated")
		waste      = flag.String("waste", "6,0,0", "seeded waste per zone, comma-separated")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (optional)")
		dbPath     = flag.String("db", "./data/runs.db", "sqlite run store path (empty to disable)")
		tickLog    = flag.String("ticklog", "", "path for zstd tick log (optional)")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	cfg := world.Config{Width: *width, Height: *height, Seed: *seed}
	var err error
	if cfg.ZoneAgents, err = parseZoneCounts(*agents); err != nil {
		logger.Fatalf("parse -agents: %v", err)
	}
	if cfg.ZoneWaste, err = parseZoneCounts(*waste); err != nil {
		logger.Fatalf("parse -waste: %v", err)
	}
	if *tuningPath != "" {
		if cfg.Tuning, err = tuning.Load(*tuningPath); err != nil {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	w, err := world.New(cfg)
	if err != nil {
		logger.Fatalf("create world: %v", err)
	}
	w.SetLogger(logger)

	if *tickLog != "" {
		tw, err := persistlog.NewTickWriter(*tickLog)
		if err != nil {
			logger.Fatalf("open tick log: %v", err)
		}
		defer tw.Close()
		w.SetTickLogger(tw)
	}

	if _, err := w.Run(*ticks); err != nil {
		logger.Fatalf("run: %v", err)
	}
	rec := w.RunRecord()

	if *dbPath != "" {
		store, err := runstore.Open(*dbPath)
		if err != nil {
			logger.Fatalf("open run store: %v", err)
		}
		defer store.Close()
		runID, err := store.SaveRun(rec)
		if err != nil {
			logger.Fatalf("save run: %v", err)
		}
		logger.Printf("saved run %d to %s", runID, *dbPath)
	}

	summary := map[string]any{
		"seed":                  rec.Seed,
		"ticks":                 rec.Ticks,
		"completed":             rec.Completed,
		"mean_processing_ticks": rec.MeanProcessingTicks,
		"waste_items":           len(rec.Waste),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		logger.Fatalf("write summary: %v", err)
	}
}

func parseZoneCounts(s string) ([3]int, error) {
	var out [3]int
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("want 3 comma-separated counts, got %q", s)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return out, err
		}
		out[i] = n
	}
	return out, nil
}
