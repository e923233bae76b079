package world

import (
	"math/rand"
	"testing"
)

func deliberateCtx(reg *Registry) deliberationContext {
	return deliberationContext{reg: reg, rng: rand.New(rand.NewSource(1))}
}

func TestDeliberate_TransformWinsOverEverything(t *testing.T) {
	reg := NewRegistry()
	a := newAgent(1, Green, Pos{1, 1}, 50, 32)
	w1 := reg.Spawn(Green, 0)
	w2 := reg.Spawn(Green, 1)
	a.Inventory = []int{w1.ID, w2.ID}

	// Even with a pickable item next door, a full pair transforms first.
	p := Percept{
		Pos:            Pos{1, 1},
		EmptyNeighbors: []Pos{{2, 1}},
		EastFree:       true,
		Known:          []KnownWaste{{ID: 9, Type: Green, Pos: Pos{2, 1}}},
	}
	act := a.Deliberate(p, deliberateCtx(reg))
	if act.Kind != ActTransform || act.Rule != "transform" {
		t.Fatalf("got %v/%s want TRANSFORM/transform", act.Kind, act.Rule)
	}
}

func TestDeliberate_NoTransformOnSingleItem(t *testing.T) {
	reg := NewRegistry()
	a := newAgent(1, Green, Pos{1, 1}, 50, 32)
	a.Inventory = []int{reg.Spawn(Green, 0).ID}

	p := Percept{Pos: Pos{1, 1}, EmptyNeighbors: []Pos{{2, 1}}}
	act := a.Deliberate(p, deliberateCtx(reg))
	if act.Kind == ActTransform {
		t.Fatalf("transformed with one item in hand")
	}
}

func TestDeliberate_DepositAtDropColumn(t *testing.T) {
	reg := NewRegistry()
	a := newAgent(1, Red, Pos{11, 4}, 50, 32)
	a.Inventory = []int{reg.Spawn(Red, 0).ID}

	p := Percept{Pos: Pos{11, 4}, AtDropColumn: true, DropColumn: 11, BoundaryCol: 11}
	act := a.Deliberate(p, deliberateCtx(reg))
	if act.Kind != ActDeposit || act.Rule != "deposit" {
		t.Fatalf("got %v/%s want DEPOSIT/deposit", act.Kind, act.Rule)
	}

	// Off the drop column the same agent hauls east instead.
	p = Percept{Pos: Pos{9, 4}, DropColumn: 11, BoundaryCol: 11, EastFree: true}
	act = a.Deliberate(p, deliberateCtx(reg))
	if act.Kind != ActMove || act.To != (Pos{10, 4}) || act.Rule != "advance-east" {
		t.Fatalf("got %v to %v (%s) want eastward MOVE", act.Kind, act.To, act.Rule)
	}
}

func TestDeliberate_DropTransferAtOwnBoundary(t *testing.T) {
	reg := NewRegistry()
	a := newAgent(1, Green, Pos{3, 2}, 50, 32)
	a.Inventory = []int{reg.Spawn(Yellow, 0).ID}

	p := Percept{Pos: Pos{3, 2}, AtTransferCol: true, BoundaryCol: 3, DropColumn: 11}
	act := a.Deliberate(p, deliberateCtx(reg))
	if act.Kind != ActDropTransfer || act.Rule != "drop-transfer" {
		t.Fatalf("got %v/%s want DROP_TRANSFER/drop-transfer", act.Kind, act.Rule)
	}
}

func TestDeliberate_AdvanceEastAfterTransform(t *testing.T) {
	reg := NewRegistry()
	a := newAgent(1, Green, Pos{1, 2}, 50, 32)
	a.Inventory = []int{reg.Spawn(Yellow, 0).ID}
	a.justTransformed = true

	p := Percept{Pos: Pos{1, 2}, BoundaryCol: 3, DropColumn: 11, EastFree: true,
		EmptyNeighbors: []Pos{{2, 2}, {0, 2}}}
	act := a.Deliberate(p, deliberateCtx(reg))
	if act.Kind != ActMove || act.To != (Pos{2, 2}) {
		t.Fatalf("got %v to %v want MOVE east", act.Kind, act.To)
	}

	// Blocked east cell degrades to a sideways move rather than waiting.
	p.EastFree = false
	p.EmptyNeighbors = []Pos{{1, 3}}
	act = a.Deliberate(p, deliberateCtx(reg))
	if act.Kind != ActMove || act.To != (Pos{1, 3}) || act.Rule != "advance-east" {
		t.Fatalf("got %v to %v (%s) want sidestep under advance-east", act.Kind, act.To, act.Rule)
	}
}

func TestDeliberate_PickAdjacentAndSeekDistant(t *testing.T) {
	reg := NewRegistry()
	item := reg.Spawn(Green, 0)
	a := newAgent(1, Green, Pos{1, 1}, 50, 32)

	// Adjacent item, visible both directly and through the shared
	// store: pick now, and only once.
	p := Percept{
		Pos:            Pos{1, 1},
		DropColumn:     11,
		BoundaryCol:    3,
		EmptyNeighbors: []Pos{{2, 1}},
		Perceived:      []KnownWaste{{ID: item.ID, Type: Green, Pos: Pos{2, 1}}},
		Known:          []KnownWaste{{ID: item.ID, Type: Green, Pos: Pos{2, 1}}},
	}
	act := a.Deliberate(p, deliberateCtx(reg))
	if act.Kind != ActPick || act.WasteID != item.ID {
		t.Fatalf("got %v waste=%d want PICK waste=%d", act.Kind, act.WasteID, item.ID)
	}

	// Distant item: move toward it carrying the claim intent. Only one
	// neighbor shrinks the distance, so the step is forced.
	p.Perceived = nil
	p.Known = []KnownWaste{{ID: item.ID, Type: Green, Pos: Pos{3, 1}}}
	act = a.Deliberate(p, deliberateCtx(reg))
	if act.Kind != ActMove || act.To != (Pos{2, 1}) || act.WasteID != item.ID {
		t.Fatalf("got %v to %v waste=%d want seek MOVE", act.Kind, act.To, act.WasteID)
	}
}

func TestDeliberate_PickSkipsClaimedWrongTypeAndDropColumn(t *testing.T) {
	reg := NewRegistry()
	green := reg.Spawn(Green, 0)
	yellow := reg.Spawn(Yellow, 0)
	parked := reg.Spawn(Green, 0)
	a := newAgent(1, Green, Pos{1, 1}, 50, 32)

	p := Percept{
		Pos:            Pos{1, 1},
		DropColumn:     11,
		BoundaryCol:    3,
		EmptyNeighbors: []Pos{{2, 1}},
		Known: []KnownWaste{
			{ID: green.ID, Type: Green, Pos: Pos{2, 1}, ClaimedBy: 9}, // someone else's
			{ID: yellow.ID, Type: Yellow, Pos: Pos{1, 2}},            // wrong type
			{ID: parked.ID, Type: Green, Pos: Pos{11, 1}},            // on the drop column
		},
	}
	act := a.Deliberate(p, deliberateCtx(reg))
	if act.Rule != "explore" {
		t.Fatalf("rule=%s want explore (no eligible target)", act.Rule)
	}

	// A self-claim is no obstacle.
	p.Known[0].ClaimedBy = a.ID
	act = a.Deliberate(p, deliberateCtx(reg))
	if act.Kind != ActPick || act.WasteID != green.ID {
		t.Fatalf("got %v waste=%d want PICK of self-claimed item", act.Kind, act.WasteID)
	}
}

func TestDeliberate_PickPrefersNearestThenLowestID(t *testing.T) {
	reg := NewRegistry()
	far := reg.Spawn(Green, 0)   // id 1
	nearB := reg.Spawn(Green, 0) // id 2
	nearA := reg.Spawn(Green, 0) // id 3
	a := newAgent(1, Green, Pos{0, 0}, 50, 32)

	p := Percept{
		Pos:            Pos{0, 0},
		DropColumn:     11,
		BoundaryCol:    3,
		EmptyNeighbors: []Pos{{1, 0}, {0, 1}},
		Known: []KnownWaste{
			{ID: far.ID, Type: Green, Pos: Pos{3, 3}},
			{ID: nearA.ID, Type: Green, Pos: Pos{1, 0}},
			{ID: nearB.ID, Type: Green, Pos: Pos{0, 1}},
		},
	}
	act := a.Deliberate(p, deliberateCtx(reg))
	if act.Kind != ActPick || act.WasteID != nearB.ID {
		t.Fatalf("got %v waste=%d want PICK of nearest lowest-id item %d", act.Kind, act.WasteID, nearB.ID)
	}
}

func TestDeliberate_ExploreWhenBoxedIn(t *testing.T) {
	reg := NewRegistry()
	a := newAgent(1, Green, Pos{0, 0}, 50, 32)

	act := a.Deliberate(Percept{Pos: Pos{0, 0}}, deliberateCtx(reg))
	if act.Kind != ActNoOp || act.Rule != "explore" {
		t.Fatalf("got %v/%s want NOOP under explore", act.Kind, act.Rule)
	}

	act = a.Deliberate(Percept{Pos: Pos{0, 0}, EmptyNeighbors: []Pos{{1, 0}}}, deliberateCtx(reg))
	if act.Kind != ActMove || act.To != (Pos{1, 0}) {
		t.Fatalf("got %v to %v want wander MOVE", act.Kind, act.To)
	}
}
