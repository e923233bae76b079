package world

import "sort"

// KnownWaste is one shared-store entry as seen by an agent.
type KnownWaste struct {
	ID        int
	Type      WasteType
	Pos       Pos
	ClaimedBy int // 0 = unclaimed
}

type storeEntry struct {
	id        int
	typ       WasteType
	pos       Pos
	claimedBy int
	claimTick uint64
}

// Store is the shared knowledge of waste locations and claims — the
// sole coordination channel between agents. It is owned by the
// scheduler and mutated only during the apply phase; agents see it
// read-only through their percepts.
type Store struct {
	entries  map[int]*storeEntry
	claimTTL uint64 // ticks before an unrefreshed claim goes stale; 0 disables
}

func NewStore(claimTTL uint64) *Store {
	return &Store{entries: map[int]*storeEntry{}, claimTTL: claimTTL}
}

// ReportAvailable records (or refreshes) a resting waste location.
// Claims on an already-known item survive re-reports.
func (s *Store) ReportAvailable(id int, t WasteType, p Pos) {
	if e, ok := s.entries[id]; ok {
		e.pos = p
		return
	}
	s.entries[id] = &storeEntry{id: id, typ: t, pos: p}
}

// Claim marks an item as targeted by one agent. A claim held by
// another agent rejects with ErrAlreadyClaimed unless it has gone
// stale; re-claiming one's own item refreshes it.
func (s *Store) Claim(id, agentID int, tick uint64) error {
	e, ok := s.entries[id]
	if !ok {
		return ErrUnknownWaste
	}
	if e.claimedBy != 0 && e.claimedBy != agentID && !s.stale(e, tick) {
		return ErrAlreadyClaimed
	}
	e.claimedBy = agentID
	e.claimTick = tick
	return nil
}

func (s *Store) Release(id int) {
	if e, ok := s.entries[id]; ok {
		e.claimedBy = 0
		e.claimTick = 0
	}
}

// Collected removes an item from shared knowledge once an agent has
// picked it up.
func (s *Store) Collected(id int) {
	delete(s.entries, id)
}

// Get returns the current entry for an item, if known.
func (s *Store) Get(id int) (KnownWaste, bool) {
	e, ok := s.entries[id]
	if !ok {
		return KnownWaste{}, false
	}
	return KnownWaste{ID: e.id, Type: e.typ, Pos: e.pos, ClaimedBy: e.claimedBy}, true
}

func (s *Store) ClaimedBy(id int) int {
	if e, ok := s.entries[id]; ok {
		return e.claimedBy
	}
	return 0
}

func (s *Store) Len() int { return len(s.entries) }

func (s *Store) stale(e *storeEntry, tick uint64) bool {
	return s.claimTTL > 0 && tick-e.claimTick > s.claimTTL
}

// Sweep releases claims that were never refreshed within the TTL.
func (s *Store) Sweep(tick uint64) {
	if s.claimTTL == 0 {
		return
	}
	for _, e := range s.entries {
		if e.claimedBy != 0 && s.stale(e, tick) {
			e.claimedBy = 0
			e.claimTick = 0
		}
	}
}

// QueryNearby lists known items within a Manhattan radius, ordered by
// ascending distance then by id so ties break deterministically.
func (s *Store) QueryNearby(from Pos, radius int) []KnownWaste {
	out := make([]KnownWaste, 0, len(s.entries))
	for _, e := range s.entries {
		if from.Manhattan(e.pos) > radius {
			continue
		}
		out = append(out, KnownWaste{ID: e.id, Type: e.typ, Pos: e.pos, ClaimedBy: e.claimedBy})
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := from.Manhattan(out[i].Pos), from.Manhattan(out[j].Pos)
		if di != dj {
			return di < dj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Snapshot exports all entries sorted by id.
func (s *Store) Snapshot() []KnownWaste {
	out := make([]KnownWaste, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, KnownWaste{ID: e.id, Type: e.typ, Pos: e.pos, ClaimedBy: e.claimedBy})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
