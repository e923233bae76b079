// Package runstore persists per-run records — waste lifecycles, zone
// series, agent behavior counters — to a local sqlite database for the
// batch experiment driver.
package runstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"dronegrid/internal/sim/world"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-style workload of run exports.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			seed INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			ticks INTEGER NOT NULL,
			completed INTEGER NOT NULL,
			mean_processing_ticks REAL NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS waste (
			run_id INTEGER NOT NULL,
			waste_id INTEGER NOT NULL,
			waste_type INTEGER NOT NULL,
			type_history TEXT NOT NULL,
			created_step INTEGER NOT NULL,
			completed_step INTEGER NOT NULL,
			PRIMARY KEY (run_id, waste_id)
		);`,
		`CREATE TABLE IF NOT EXISTS zone_counts (
			run_id INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			zone INTEGER NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick, zone)
		);`,
		`CREATE TABLE IF NOT EXISTS agent_stats (
			run_id INTEGER NOT NULL,
			agent_id INTEGER NOT NULL,
			distance INTEGER NOT NULL,
			idle_ticks INTEGER NOT NULL,
			stalled_ticks INTEGER NOT NULL,
			deposits INTEGER NOT NULL,
			unique_cells INTEGER NOT NULL,
			inventory_sum INTEGER NOT NULL,
			samples INTEGER NOT NULL,
			PRIMARY KEY (run_id, agent_id)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

// SaveRun writes one completed run in a single transaction and
// returns its row id.
func (s *Store) SaveRun(rec world.RunRecord) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(
		`INSERT INTO runs (seed, width, height, ticks, completed, mean_processing_ticks, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Seed, rec.Width, rec.Height, rec.Ticks, rec.Completed, rec.MeanProcessingTicks,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, wr := range rec.Waste {
		hist, err := json.Marshal(wr.TypeHistory)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(
			`INSERT INTO waste (run_id, waste_id, waste_type, type_history, created_step, completed_step)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			runID, wr.ID, wr.Type, string(hist), wr.CreatedStep, wr.CompletedStep,
		); err != nil {
			return 0, err
		}
	}
	for tick, counts := range rec.ZoneSeries {
		for zone, n := range counts {
			if _, err := tx.Exec(
				`INSERT INTO zone_counts (run_id, tick, zone, count) VALUES (?, ?, ?, ?)`,
				runID, tick, zone, n,
			); err != nil {
				return 0, err
			}
		}
	}
	for _, id := range world.SortedAgentIDs(rec.AgentStats) {
		st := rec.AgentStats[id]
		if _, err := tx.Exec(
			`INSERT INTO agent_stats (run_id, agent_id, distance, idle_ticks, stalled_ticks, deposits, unique_cells, inventory_sum, samples)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, id, st.Distance, st.IdleTicks, st.StalledTicks, st.Deposits, st.UniqueCells, st.InventorySum, st.Samples,
		); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// WasteRow is one persisted waste lifecycle row.
type WasteRow struct {
	WasteID       int
	Type          int
	TypeHistory   []int
	CreatedStep   uint64
	CompletedStep int64
}

// LoadWaste reads a run's waste records back, ordered by id.
func (s *Store) LoadWaste(runID int64) ([]WasteRow, error) {
	rows, err := s.db.Query(
		`SELECT waste_id, waste_type, type_history, created_step, completed_step
		 FROM waste WHERE run_id = ? ORDER BY waste_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WasteRow
	for rows.Next() {
		var r WasteRow
		var hist string
		if err := rows.Scan(&r.WasteID, &r.Type, &hist, &r.CreatedStep, &r.CompletedStep); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(hist), &r.TypeHistory); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadZoneSeries reads a run's per-tick zone counts back in tick order.
func (s *Store) LoadZoneSeries(runID int64) ([][3]int, error) {
	rows, err := s.db.Query(
		`SELECT tick, zone, count FROM zone_counts WHERE run_id = ? ORDER BY tick, zone`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][3]int
	for rows.Next() {
		var tick, zone, n int
		if err := rows.Scan(&tick, &zone, &n); err != nil {
			return nil, err
		}
		for tick >= len(out) {
			out = append(out, [3]int{})
		}
		out[tick][zone] = n
	}
	return out, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }
