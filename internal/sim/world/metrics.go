package world

import (
	"sort"

	"dronegrid/internal/protocol"
)

// AgentStats are the raw behavior counters sampled for one agent.
type AgentStats struct {
	Distance     int `json:"distance"`
	IdleTicks    int `json:"idle_ticks"`
	StalledTicks int `json:"stalled_ticks"`
	Deposits     int `json:"deposits"`
	UniqueCells  int `json:"unique_cells"`
	InventorySum int `json:"inventory_sum"`
	Samples      int `json:"samples"`
}

// InventoryUtilization is mean carried load against the capacity of 2.
func (s AgentStats) InventoryUtilization() float64 {
	if s.Samples == 0 {
		return 0
	}
	return float64(s.InventorySum) / float64(2*s.Samples)
}

type agentTrack struct {
	prev    Pos
	hasPrev bool
	visited map[Pos]int
	stats   AgentStats
}

// Collector is a passive observer: it reads grid, registry and agent
// state after each tick and accumulates counters. It never feeds back
// into the simulation.
type Collector struct {
	zoneSeries [][3]int
	tracks     map[int]*agentTrack
}

func NewCollector() *Collector {
	return &Collector{tracks: map[int]*agentTrack{}}
}

func (c *Collector) track(id int) *agentTrack {
	t, ok := c.tracks[id]
	if !ok {
		t = &agentTrack{visited: map[Pos]int{}}
		c.tracks[id] = t
	}
	return t
}

func (c *Collector) Sample(w *World, events []protocol.WasteEvent) {
	c.zoneSeries = append(c.zoneSeries, w.zoneCounts())
	for _, a := range w.agents {
		t := c.track(a.ID)
		if t.hasPrev {
			d := t.prev.Manhattan(a.Pos)
			t.stats.Distance += d
			if d == 0 {
				t.stats.IdleTicks++
			}
		}
		t.prev = a.Pos
		t.hasPrev = true
		t.visited[a.Pos]++
		t.stats.InventorySum += len(a.Inventory)
		t.stats.Samples++
		if a.status == StatusStalled {
			t.stats.StalledTicks++
		}
	}
	for _, e := range events {
		if e.Kind == protocol.EventDeposited && e.AgentID != 0 {
			c.track(e.AgentID).stats.Deposits++
		}
	}
}

// ZoneSeries returns the per-tick resting-waste counts per zone.
func (c *Collector) ZoneSeries() [][3]int {
	out := make([][3]int, len(c.zoneSeries))
	copy(out, c.zoneSeries)
	return out
}

func (c *Collector) Stats() map[int]AgentStats {
	out := make(map[int]AgentStats, len(c.tracks))
	for id, t := range c.tracks {
		s := t.stats
		s.UniqueCells = len(t.visited)
		out[id] = s
	}
	return out
}

// RunRecord is the exported per-run state: enough for the batch driver
// to derive every downstream metric without re-running the simulation.
type RunRecord struct {
	Seed                int64                  `json:"seed"`
	Width               int                    `json:"width"`
	Height              int                    `json:"height"`
	Ticks               uint64                 `json:"ticks"`
	Waste               []protocol.WasteRecord `json:"waste"`
	ZoneSeries          [][3]int               `json:"zone_series"`
	AgentStats          map[int]AgentStats     `json:"agent_stats"`
	Completed           int                    `json:"completed"`
	MeanProcessingTicks float64                `json:"mean_processing_ticks"`
}

func (w *World) RunRecord() RunRecord {
	waste := w.registry.Snapshot()
	completed := 0
	var total uint64
	for _, rec := range waste {
		if rec.CompletedStep >= 0 {
			completed++
			total += uint64(rec.CompletedStep) - rec.CreatedStep
		}
	}
	mean := 0.0
	if completed > 0 {
		mean = float64(total) / float64(completed)
	}
	return RunRecord{
		Seed:                w.cfg.Seed,
		Width:               w.cfg.Width,
		Height:              w.cfg.Height,
		Ticks:               w.tick,
		Waste:               waste,
		ZoneSeries:          w.metrics.ZoneSeries(),
		AgentStats:          w.metrics.Stats(),
		Completed:           completed,
		MeanProcessingTicks: mean,
	}
}

// SortedAgentIDs is a small helper for deterministic iteration over a
// stats map.
func SortedAgentIDs(stats map[int]AgentStats) []int {
	ids := make([]int, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
