package world

import (
	"fmt"
	"log"
	"math/rand"

	"dronegrid/internal/protocol"
)

// RunState is the scheduler lifecycle. Stopped is terminal.
type RunState int

const (
	StateIdle RunState = iota
	StateRunning
	StatePaused
	StateStopped
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// TickLogger receives every tick report. Implemented in
// internal/persistence; may be nil.
type TickLogger interface {
	WriteTick(report protocol.TickReport) error
}

// World is the single-threaded simulation core: grid, waste registry,
// shared knowledge store, agents and the tick scheduler that drives
// them. The appearance of simultaneity comes entirely from the
// snapshot-then-apply discipline of step; there is no parallelism.
type World struct {
	cfg Config

	grid     *Grid
	registry *Registry
	store    *Store
	agents   []*Agent // ascending id
	rng      *rand.Rand

	tick  uint64
	state RunState

	metrics    *Collector
	lastAction map[int]string

	logger     *log.Logger // optional
	tickLogger TickLogger  // optional
}

// New validates the configuration and builds the initial world state.
// Placement is deterministic for a given seed.
func New(cfg Config) (*World, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	w := &World{cfg: cfg}
	w.rebuild()
	return w, nil
}

func (w *World) SetLogger(l *log.Logger)     { w.logger = l }
func (w *World) SetTickLogger(tl TickLogger) { w.tickLogger = tl }
func (w *World) CurrentTick() uint64         { return w.tick }
func (w *World) State() RunState             { return w.state }
func (w *World) Config() Config              { return w.cfg }

func (w *World) Params() protocol.WorldParams {
	return protocol.WorldParams{
		Width:      w.cfg.Width,
		Height:     w.cfg.Height,
		Seed:       w.cfg.Seed,
		ZoneAgents: w.cfg.ZoneAgents,
		ZoneWaste:  w.cfg.ZoneWaste,
	}
}

func (w *World) rebuild() {
	grid, err := NewGrid(w.cfg.Width, w.cfg.Height)
	if err != nil {
		// validate() enforces the dimension rules before rebuild runs.
		panic(err)
	}
	w.grid = grid
	w.registry = NewRegistry()
	w.store = NewStore(uint64(w.cfg.Tuning.ClaimTTLTicks))
	w.rng = rand.New(rand.NewSource(w.cfg.Seed))
	w.agents = nil
	w.tick = 0
	w.state = StateIdle
	w.metrics = NewCollector()
	w.lastAction = map[int]string{}
	w.seedAgents()
	w.seedWaste()
}

func (w *World) seedAgents() {
	id := 0
	for z := 0; z < 3; z++ {
		for i := 0; i < w.cfg.ZoneAgents[z]; i++ {
			id++
			pos := w.randomZoneCell(z, func(p Pos) bool {
				aid, _, _ := w.grid.CellAt(p)
				return aid == 0
			})
			a := newAgent(id, WasteType(z), pos, w.cfg.Tuning.CarryTimeoutTicks, w.cfg.Tuning.ActionHistoryLen)
			_ = w.grid.PlaceAgent(id, pos)
			w.agents = append(w.agents, a)
		}
	}
}

func (w *World) seedWaste() {
	for z := 0; z < 3; z++ {
		for i := 0; i < w.cfg.ZoneWaste[z]; i++ {
			pos := w.randomZoneCell(z, func(p Pos) bool {
				_, wid, _ := w.grid.CellAt(p)
				return wid == 0 && !w.grid.IsDropColumn(p.X)
			})
			item := w.registry.Spawn(WasteType(z), 0)
			_ = w.grid.PlaceWaste(item.ID, pos)
		}
	}
}

// randomZoneCell draws positions inside a zone until ok accepts one.
// Callers must not ask for more cells than ok can accept; Config
// validation bounds agent counts by the zone size and waste counts by
// the seedable (non-drop-column) cells, so the loop terminates.
func (w *World) randomZoneCell(zone int, ok func(Pos) bool) Pos {
	zw := w.grid.ZoneWidth()
	for {
		p := Pos{X: zone*zw + w.rng.Intn(zw), Y: w.rng.Intn(w.grid.Height())}
		if ok(p) {
			return p
		}
	}
}

// Step advances exactly one tick. Stepping is allowed while paused so
// an external driver can single-step.
func (w *World) Step() (protocol.TickReport, error) {
	if w.state == StateStopped {
		return protocol.TickReport{}, ErrStopped
	}
	if w.state == StateIdle {
		w.state = StateRunning
	}
	return w.step()
}

// Run advances up to n ticks, stopping early if the world is paused or
// stopped from a command applied between ticks.
func (w *World) Run(n int) ([]protocol.TickReport, error) {
	if w.state == StateStopped {
		return nil, ErrStopped
	}
	w.state = StateRunning
	reports := make([]protocol.TickReport, 0, n)
	for i := 0; i < n && w.state == StateRunning; i++ {
		rep, err := w.step()
		if err != nil {
			return reports, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

func (w *World) Pause() error {
	if w.state == StateStopped {
		return ErrStopped
	}
	w.state = StatePaused
	return nil
}

func (w *World) Resume() error {
	if w.state == StateStopped {
		return ErrStopped
	}
	w.state = StateRunning
	return nil
}

// Stop halts the run permanently.
func (w *World) Stop() { w.state = StateStopped }

// Reset rebuilds the initial state for the same configuration and
// seed. A stopped world stays stopped.
func (w *World) Reset() error {
	if w.state == StateStopped {
		return ErrStopped
	}
	w.rebuild()
	return nil
}

// step is one full tick: percept snapshot, independent deliberation,
// ordered apply (moves then the rest), then bookkeeping. Conflicts
// resolve by ascending agent id — the lower id wins and the loser
// degrades to NoOp. This fixed ordering is what makes runs
// reproducible, and also what lets a low-id agent starve a high-id
// one indefinitely; that is accepted behavior, not a bug.
func (w *World) step() (protocol.TickReport, error) {
	now := w.tick

	// (a) snapshot percepts from pre-tick state. Perceived waste
	// locations flow into the shared store here; that is the only
	// coordination channel between agents.
	percepts := make([]Percept, len(w.agents))
	for i, a := range w.agents {
		percepts[i] = w.buildPercept(a, now)
	}

	// (b,c) every agent deliberates against the same snapshot.
	ctx := deliberationContext{reg: w.registry, rng: w.rng}
	actions := make([]Action, len(w.agents))
	for i, a := range w.agents {
		actions[i] = a.Deliberate(percepts[i], ctx)
	}

	var events []protocol.WasteEvent
	picked := map[int]bool{}

	// (d) movement first, ascending agent id.
	w.applyMoves(actions, now, &events)

	// (e) non-movement actions, validated against the already
	// move-updated state. Failed preconditions fall silently to NoOp;
	// only invariant violations escape, and they abort the run.
	if err := w.applyEffects(actions, now, &events, picked); err != nil {
		w.state = StateStopped
		return protocol.TickReport{}, err
	}

	w.updateStatuses(picked)
	w.store.Sweep(now)

	for i, a := range w.agents {
		s := actions[i].describe()
		a.recordAction(s)
		w.lastAction[a.ID] = s
	}

	// (f) advance the counter and let the collector sample.
	w.metrics.Sample(w, events)
	report := w.buildReport(now, events)
	w.tick = now + 1

	if w.tickLogger != nil {
		if err := w.tickLogger.WriteTick(report); err != nil && w.logger != nil {
			w.logger.Printf("tick log: %v", err)
		}
	}
	return report, nil
}

func (w *World) degrade(act *Action) {
	*act = Action{Kind: ActNoOp, Rule: act.Rule}
}

// applyMoves applies movement proposals in ascending agent id. When
// two agents target the same destination the lower id gets there
// first and the other finds the cell occupied. A claim intent rides
// on seek moves and is resolved here with the same ordering.
func (w *World) applyMoves(actions []Action, now uint64, events *[]protocol.WasteEvent) {
	for i, a := range w.agents {
		act := &actions[i]
		if act.Kind != ActMove {
			continue
		}
		if act.WasteID != 0 {
			before := w.store.ClaimedBy(act.WasteID)
			if err := w.store.Claim(act.WasteID, a.ID, now); err != nil {
				w.degrade(act)
				continue
			}
			if before != a.ID {
				if k, ok := w.store.Get(act.WasteID); ok {
					*events = append(*events, protocol.WasteEvent{
						Kind: protocol.EventClaimed, WasteID: k.ID, AgentID: a.ID, Pos: k.Pos.Arr(), Type: int(k.Type),
					})
				}
			}
		}
		if err := w.grid.MoveAgent(a.ID, a.Pos, act.To); err != nil {
			w.degrade(act)
			continue
		}
		a.Pos = act.To
	}
}

func (w *World) applyEffects(actions []Action, now uint64, events *[]protocol.WasteEvent, picked map[int]bool) error {
	for i, a := range w.agents {
		act := &actions[i]
		var err error
		switch act.Kind {
		case ActPick:
			err = w.applyPick(a, act, now, events, picked)
		case ActTransform:
			err = w.applyTransform(a, act, now, events)
		case ActDropTransfer:
			err = w.applyDropTransfer(a, act, now, events)
		case ActDeposit:
			err = w.applyDeposit(a, act, now, events)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *World) applyPick(a *Agent, act *Action, now uint64, events *[]protocol.WasteEvent, picked map[int]bool) error {
	item := w.registry.Get(act.WasteID)
	if item == nil {
		w.degrade(act)
		return nil
	}
	if item.Type != a.Zone {
		return &InvariantError{Op: "pick", Detail: fmt.Sprintf("zone-%d agent %d targeting %s waste %d", a.Zone, a.ID, item.Type, item.ID)}
	}
	if len(a.Inventory) >= 2 {
		w.degrade(act)
		return nil
	}
	for _, t := range a.invTypes(w.registry) {
		if t != a.Zone {
			return &InvariantError{Op: "pick", Detail: fmt.Sprintf("agent %d picking over mixed inventory", a.ID)}
		}
	}
	// The claim decides contested picks: lower id ran first and wins.
	if err := w.store.Claim(act.WasteID, a.ID, now); err != nil {
		w.degrade(act)
		return nil
	}
	known, ok := w.store.Get(act.WasteID)
	if !ok || a.Pos.Manhattan(known.Pos) > 1 {
		w.degrade(act)
		return nil
	}
	_, wid, err := w.grid.CellAt(known.Pos)
	if err != nil || wid != act.WasteID {
		w.degrade(act)
		return nil
	}
	if _, err := w.grid.RemoveWaste(known.Pos); err != nil {
		w.degrade(act)
		return nil
	}
	a.Inventory = append(a.Inventory, act.WasteID)
	w.store.Collected(act.WasteID)
	picked[a.ID] = true
	a.carryTimeout = w.cfg.Tuning.CarryTimeoutTicks
	*events = append(*events, protocol.WasteEvent{
		Kind: protocol.EventPicked, WasteID: act.WasteID, AgentID: a.ID, Pos: known.Pos.Arr(), Type: int(item.Type),
	})
	return nil
}

func (w *World) applyTransform(a *Agent, act *Action, now uint64, events *[]protocol.WasteEvent) error {
	if len(a.Inventory) != 2 {
		w.degrade(act)
		return nil
	}
	out, err := w.registry.Transform(a.Inventory[0], a.Inventory[1], now)
	if err == ErrIncompatibleItems {
		// The deliberation guard makes this unreachable for a
		// correctly specialized agent.
		return &InvariantError{Op: "transform", Detail: fmt.Sprintf("agent %d: %v", a.ID, err)}
	}
	if err != nil {
		w.degrade(act)
		return nil
	}
	a.Inventory = []int{out.ID}
	a.justTransformed = true
	a.carryTimeout = w.cfg.Tuning.CarryTimeoutTicks
	*events = append(*events, protocol.WasteEvent{
		Kind: protocol.EventTransformed, WasteID: out.ID, AgentID: a.ID, Pos: a.Pos.Arr(), Type: int(out.Type),
	})
	return nil
}

func (w *World) applyDropTransfer(a *Agent, act *Action, now uint64, events *[]protocol.WasteEvent) error {
	idx := -1
	for i, id := range a.Inventory {
		if w.registry.Get(id).Type == a.outputType() {
			idx = i
			break
		}
	}
	if idx < 0 || !w.grid.IsTransferColumn(a.Pos.X) {
		w.degrade(act)
		return nil
	}
	id := a.Inventory[idx]
	if err := w.grid.PlaceWaste(id, a.Pos); err != nil {
		// Cell already holds a resting item; try again another tick.
		w.degrade(act)
		return nil
	}
	a.Inventory = append(a.Inventory[:idx], a.Inventory[idx+1:]...)
	a.justTransformed = false
	a.carryTimeout = w.cfg.Tuning.CarryTimeoutTicks
	item := w.registry.Get(id)
	w.store.ReportAvailable(id, item.Type, a.Pos)
	*events = append(*events, protocol.WasteEvent{
		Kind: protocol.EventDropped, WasteID: id, AgentID: a.ID, Pos: a.Pos.Arr(), Type: int(item.Type),
	})
	return nil
}

func (w *World) applyDeposit(a *Agent, act *Action, now uint64, events *[]protocol.WasteEvent) error {
	if a.Zone != Red || !w.grid.IsDropColumn(a.Pos.X) {
		w.degrade(act)
		return nil
	}
	for _, id := range a.Inventory {
		item := w.registry.Get(id)
		if item.Type != Red {
			return &InvariantError{Op: "deposit", Detail: fmt.Sprintf("agent %d depositing %s waste %d", a.ID, item.Type, id)}
		}
		if err := w.registry.Complete(id, now); err != nil {
			continue // registry errors recover as NoOp for the item
		}
		*events = append(*events, protocol.WasteEvent{
			Kind: protocol.EventDeposited, WasteID: id, AgentID: a.ID, Pos: a.Pos.Arr(), Type: int(Red),
		})
	}
	a.Inventory = nil
	a.justTransformed = false
	a.carryTimeout = w.cfg.Tuning.CarryTimeoutTicks
	return nil
}

// updateStatuses runs the carry-timeout bookkeeping. A zone-0/1 drone
// holding exactly one item of its own type with no pickup this tick
// burns timeout; at zero it is labeled stalled. Nothing intervenes on
// a stalled drone.
func (w *World) updateStatuses(picked map[int]bool) {
	for _, a := range w.agents {
		switch {
		case len(a.Inventory) == 0:
			a.status = StatusIdle
			a.carryTimeout = w.cfg.Tuning.CarryTimeoutTicks
		case a.Zone < Red && len(a.Inventory) == 1 &&
			w.registry.Get(a.Inventory[0]).Type == a.Zone && !picked[a.ID]:
			a.carryTimeout--
			if a.carryTimeout <= 0 {
				a.status = StatusStalled
			} else {
				a.status = StatusHauling
			}
		default:
			a.status = StatusHauling
			a.carryTimeout = w.cfg.Tuning.CarryTimeoutTicks
		}
	}
}

func (w *World) buildPercept(a *Agent, now uint64) Percept {
	g := w.grid
	p := Percept{
		Tick:         now,
		Pos:          a.Pos,
		DropColumn:   g.DropColumn(),
		AtDropColumn: g.IsDropColumn(a.Pos.X),
	}
	if a.Zone < Red {
		tc := g.TransferColumn(int(a.Zone))
		p.AtTransferCol = a.Pos.X == tc
		p.BoundaryCol = tc
	} else {
		p.BoundaryCol = g.DropColumn()
	}

	for _, q := range g.Neighbors4(a.Pos) {
		aid, _, _ := g.CellAt(q)
		if aid == 0 {
			p.EmptyNeighbors = append(p.EmptyNeighbors, q)
		}
	}
	east := Pos{a.Pos.X + 1, a.Pos.Y}
	if g.InBounds(east) {
		aid, _, _ := g.CellAt(east)
		p.EastFree = aid == 0
	}

	// Direct perception: resting waste within the percept radius is
	// both seen and reported into the shared store.
	r := w.cfg.Tuning.PerceptRadius
	for dx := -r; dx <= r; dx++ {
		rem := r - abs(dx)
		for dy := -rem; dy <= rem; dy++ {
			q := Pos{a.Pos.X + dx, a.Pos.Y + dy}
			if !g.InBounds(q) {
				continue
			}
			_, wid, _ := g.CellAt(q)
			if wid == 0 {
				continue
			}
			item := w.registry.Get(wid)
			w.store.ReportAvailable(wid, item.Type, q)
			p.Perceived = append(p.Perceived, KnownWaste{
				ID: wid, Type: item.Type, Pos: q, ClaimedBy: w.store.ClaimedBy(wid),
			})
		}
	}
	p.Known = w.store.QueryNearby(a.Pos, w.cfg.Tuning.KnowledgeRadius)
	return p
}

func (w *World) zoneCounts() [3]int {
	var out [3]int
	for y := 0; y < w.grid.Height(); y++ {
		for x := 0; x < w.grid.Width(); x++ {
			_, wid, _ := w.grid.CellAt(Pos{x, y})
			if wid != 0 {
				out[w.grid.ZoneOf(x)]++
			}
		}
	}
	return out
}

func (w *World) buildReport(now uint64, events []protocol.WasteEvent) protocol.TickReport {
	agents := make([]protocol.AgentState, len(w.agents))
	for i, a := range w.agents {
		agents[i] = a.snapshot(w.registry, w.lastAction[a.ID])
	}
	rep := protocol.TickReport{
		Tick:        now,
		Agents:      agents,
		WasteEvents: events,
		ZoneCounts:  w.zoneCounts(),
	}
	rep.Digest = w.stateDigest(now)
	return rep
}

// GridSnapshot is a deep-copied read-only view; calling it twice
// without an intervening step returns identical data.
func (w *World) GridSnapshot() protocol.GridSnapshot {
	snap := protocol.GridSnapshot{Width: w.grid.Width(), Height: w.grid.Height()}
	snap.Agents = make([]protocol.AgentState, len(w.agents))
	for i, a := range w.agents {
		snap.Agents[i] = a.snapshot(w.registry, w.lastAction[a.ID])
	}
	for y := 0; y < w.grid.Height(); y++ {
		for x := 0; x < w.grid.Width(); x++ {
			_, wid, _ := w.grid.CellAt(Pos{x, y})
			if wid == 0 {
				continue
			}
			item := w.registry.Get(wid)
			snap.Wastes = append(snap.Wastes, protocol.WasteAt{
				ID: wid, Type: int(item.Type), Pos: Pos{x, y}.Arr(),
			})
		}
	}
	return snap
}

func (w *World) AgentSnapshot(id int) (protocol.AgentState, error) {
	for _, a := range w.agents {
		if a.ID == id {
			return a.snapshot(w.registry, w.lastAction[a.ID]), nil
		}
	}
	return protocol.AgentState{}, fmt.Errorf("unknown agent %d", id)
}

func (w *World) RegistrySnapshot() []protocol.WasteRecord {
	return w.registry.Snapshot()
}

func (w *World) KnowledgeSnapshot() []KnownWaste {
	return w.store.Snapshot()
}
