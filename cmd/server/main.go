package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	persistlog "dronegrid/internal/persistence/log"
	"dronegrid/internal/sim/tuning"
	"dronegrid/internal/sim/world"
	"dronegrid/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		width      = flag.Int("width", 12, "grid width (divisible by 3)")
		height     = flag.Int("height", 10, "grid height")
		seed       = flag.Int64("seed", 1337, "simulation seed")
		agents     = flag.String("agents", "2,2,2", "drones per zone, comma-separated")
		waste      = flag.String("waste", "6,0,0", "seeded waste per zone, comma-separated")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (optional)")
		tickLog    = flag.String("ticklog", "", "path for zstd tick log (optional)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

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

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger).Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		logger.Printf("listening on %s (grid %dx%d, seed %d)", *addr, *width, *height, *seed)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("serve: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Printf("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
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
