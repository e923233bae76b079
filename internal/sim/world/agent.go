package world

import (
	"math/rand"

	"dronegrid/internal/protocol"
)

// Agent statuses exposed in snapshots.
const (
	StatusIdle    = "idle"
	StatusHauling = "hauling"
	StatusStalled = "stalled" // the domain's "deadlock": holding one of a pair with no partner in sight
)

// Percept is the read-only view of the grid neighborhood and shared
// knowledge an agent deliberates against. It is captured once per tick
// from pre-tick state, so all agents react to the same world.
type Percept struct {
	Tick           uint64
	Pos            Pos
	EmptyNeighbors []Pos        // 4-connected cells free of agents
	EastFree       bool         // (x+1,y) in bounds and free of agents
	Perceived      []KnownWaste // resting waste within the percept radius
	Known          []KnownWaste // shared-store view within knowledge radius
	AtDropColumn   bool
	AtTransferCol  bool // this agent's own transfer column
	DropColumn     int
	BoundaryCol    int // column this agent hauls processed waste toward
}

// Agent is one drone: a fixed zone specialization, a position, and an
// inventory of at most two same-type items.
type Agent struct {
	ID   int
	Zone WasteType
	Pos  Pos

	Inventory []int // waste ids, capacity 2

	justTransformed bool // forces eastward movement next tick
	carryTimeout    int
	status          string
	history         []string

	historyLen int
}

func newAgent(id int, zone WasteType, pos Pos, carryTimeout, historyLen int) *Agent {
	return &Agent{
		ID:           id,
		Zone:         zone,
		Pos:          pos,
		carryTimeout: carryTimeout,
		status:       StatusIdle,
		historyLen:   historyLen,
	}
}

// outputType is what the agent hauls east: the transformed type for
// zones 0 and 1, its own type for zone 2 (which never transforms).
func (a *Agent) outputType() WasteType {
	if a.Zone < Red {
		return a.Zone + 1
	}
	return Red
}

func (a *Agent) invTypes(reg *Registry) []WasteType {
	out := make([]WasteType, 0, len(a.Inventory))
	for _, id := range a.Inventory {
		out = append(out, reg.Get(id).Type)
	}
	return out
}

func (a *Agent) holdsType(t WasteType, reg *Registry) bool {
	for _, id := range a.Inventory {
		if reg.Get(id).Type == t {
			return true
		}
	}
	return false
}

func (a *Agent) recordAction(s string) {
	a.history = append(a.history, s)
	if n := len(a.history); a.historyLen > 0 && n > a.historyLen {
		a.history = a.history[n-a.historyLen:]
	}
}

func (a *Agent) snapshot(reg *Registry, lastAction string) protocol.AgentState {
	inv := make([]protocol.WasteRef, 0, len(a.Inventory))
	for _, id := range a.Inventory {
		inv = append(inv, protocol.WasteRef{ID: id, Type: int(reg.Get(id).Type)})
	}
	hist := append([]string{}, a.history...)
	return protocol.AgentState{
		ID:        a.ID,
		Zone:      int(a.Zone),
		Pos:       a.Pos.Arr(),
		Inventory: inv,
		Status:    a.status,
		Action:    lastAction,
		History:   hist,
	}
}

// deliberationContext carries the read-only collaborators a rule guard
// needs beyond the percept itself.
type deliberationContext struct {
	reg *Registry
	rng *rand.Rand
}

// deliberationRule is one guarded branch of the priority state
// machine. Rules are evaluated in order, first match wins, so tests
// can target each branch in isolation.
type deliberationRule struct {
	name string
	when func(a *Agent, p Percept, ctx deliberationContext) bool
	emit func(a *Agent, p Percept, ctx deliberationContext) Action
}

var deliberationRules = []deliberationRule{
	{
		// Two items of the agent's own type become one of the next.
		name: "transform",
		when: func(a *Agent, p Percept, ctx deliberationContext) bool {
			if a.Zone >= Red || len(a.Inventory) != 2 {
				return false
			}
			for _, t := range a.invTypes(ctx.reg) {
				if t != a.Zone {
					return false
				}
			}
			return true
		},
		emit: func(a *Agent, p Percept, ctx deliberationContext) Action {
			return Action{Kind: ActTransform}
		},
	},
	{
		// Terminal deposit: red drone at the drop column.
		name: "deposit",
		when: func(a *Agent, p Percept, ctx deliberationContext) bool {
			return a.Zone == Red && p.AtDropColumn && len(a.Inventory) > 0 && a.holdsType(Red, ctx.reg)
		},
		emit: func(a *Agent, p Percept, ctx deliberationContext) Action {
			return Action{Kind: ActDeposit}
		},
	},
	{
		// Leave processed waste at this zone's transfer column for the
		// next zone's drones.
		name: "drop-transfer",
		when: func(a *Agent, p Percept, ctx deliberationContext) bool {
			return a.Zone < Red && p.AtTransferCol && a.holdsType(a.Zone+1, ctx.reg)
		},
		emit: func(a *Agent, p Percept, ctx deliberationContext) Action {
			return Action{Kind: ActDropTransfer}
		},
	},
	{
		// Haul processed waste east toward the boundary. If the east
		// cell is blocked, degrade to the explore move for this tick.
		name: "advance-east",
		when: func(a *Agent, p Percept, ctx deliberationContext) bool {
			if len(a.Inventory) == 0 {
				return false
			}
			if a.justTransformed {
				return true
			}
			return a.holdsType(a.outputType(), ctx.reg) && p.Pos.X < p.BoundaryCol
		},
		emit: func(a *Agent, p Percept, ctx deliberationContext) Action {
			if p.EastFree {
				return Action{Kind: ActMove, To: Pos{p.Pos.X + 1, p.Pos.Y}}
			}
			return exploreMove(p, ctx.rng)
		},
	},
	{
		// Claim and pursue the nearest compatible known item; pick it
		// once on or next to its cell.
		name: "pick",
		when: func(a *Agent, p Percept, ctx deliberationContext) bool {
			return len(a.Inventory) < 2 && pickTarget(a, p, ctx.reg) != nil
		},
		emit: func(a *Agent, p Percept, ctx deliberationContext) Action {
			target := pickTarget(a, p, ctx.reg)
			if p.Pos.Manhattan(target.Pos) <= 1 {
				return Action{Kind: ActPick, WasteID: target.ID}
			}
			if to, ok := stepToward(p, target.Pos, ctx.rng); ok {
				return Action{Kind: ActMove, To: to, WasteID: target.ID}
			}
			return exploreMove(p, ctx.rng)
		},
	},
	{
		// Default: wander to a random empty neighbor.
		name: "explore",
		when: func(a *Agent, p Percept, ctx deliberationContext) bool { return true },
		emit: func(a *Agent, p Percept, ctx deliberationContext) Action {
			return exploreMove(p, ctx.rng)
		},
	},
}

// Deliberate maps one percept to exactly one proposed action. It is
// pure with respect to shared state: the only thing consumed besides
// the percept is the scheduler's RNG stream.
func (a *Agent) Deliberate(p Percept, ctx deliberationContext) Action {
	for _, r := range deliberationRules {
		if r.when(a, p, ctx) {
			act := r.emit(a, p, ctx)
			act.Rule = r.name
			return act
		}
	}
	return Action{Kind: ActNoOp, Rule: "noop"}
}

// pickTarget finds the nearest compatible, unclaimed (or self-claimed)
// known item. Items resting on the drop column are never picked, and
// an agent only ever pursues its own zone's type.
func pickTarget(a *Agent, p Percept, reg *Registry) *KnownWaste {
	for _, t := range a.invTypes(reg) {
		if t != a.Zone {
			return nil
		}
	}
	seen := map[int]bool{}
	var best *KnownWaste
	consider := func(k KnownWaste) {
		if seen[k.ID] {
			return
		}
		seen[k.ID] = true
		if k.Type != a.Zone || k.Pos.X == p.DropColumn {
			return
		}
		if k.ClaimedBy != 0 && k.ClaimedBy != a.ID {
			return
		}
		if best == nil {
			b := k
			best = &b
			return
		}
		db, dk := p.Pos.Manhattan(best.Pos), p.Pos.Manhattan(k.Pos)
		if dk < db || (dk == db && k.ID < best.ID) {
			b := k
			best = &b
		}
	}
	for _, k := range p.Perceived {
		consider(k)
	}
	for _, k := range p.Known {
		consider(k)
	}
	return best
}

// exploreMove picks a random empty 4-neighbor, or NoOp when boxed in.
func exploreMove(p Percept, rng *rand.Rand) Action {
	if len(p.EmptyNeighbors) == 0 {
		return Action{Kind: ActNoOp}
	}
	to := p.EmptyNeighbors[rng.Intn(len(p.EmptyNeighbors))]
	return Action{Kind: ActMove, To: to}
}

// stepToward chooses an empty neighbor that shrinks the Manhattan
// distance to target, breaking ties randomly; any empty neighbor
// serves as a detour when none improves.
func stepToward(p Percept, target Pos, rng *rand.Rand) (Pos, bool) {
	if len(p.EmptyNeighbors) == 0 {
		return Pos{}, false
	}
	cur := p.Pos.Manhattan(target)
	closer := make([]Pos, 0, len(p.EmptyNeighbors))
	for _, q := range p.EmptyNeighbors {
		if q.Manhattan(target) < cur {
			closer = append(closer, q)
		}
	}
	if len(closer) > 0 {
		return closer[rng.Intn(len(closer))], true
	}
	return p.EmptyNeighbors[rng.Intn(len(p.EmptyNeighbors))], true
}
