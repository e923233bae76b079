package world

import "testing"

func TestRegistry_TransformConservesAndInheritsEarliest(t *testing.T) {
	r := NewRegistry()
	a := r.Spawn(Green, 3)
	b := r.Spawn(Green, 10)

	out, err := r.Transform(a.ID, b.ID, 20)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out.Type != Yellow {
		t.Fatalf("output type=%v want yellow", out.Type)
	}
	if out.CreatedStep != 3 {
		t.Fatalf("CreatedStep=%d want 3 (earlier input)", out.CreatedStep)
	}
	if !a.Consumed || !b.Consumed {
		t.Fatalf("inputs not consumed")
	}
	// Two in, one out: live count shrinks by one.
	if n := r.Live(); n != 1 {
		t.Fatalf("Live=%d want=1", n)
	}

	// Lineage extends the earlier input's history.
	if len(out.TypeHistory) != 2 || out.TypeHistory[0] != Green || out.TypeHistory[1] != Yellow {
		t.Fatalf("TypeHistory=%v want [green yellow]", out.TypeHistory)
	}

	// Consumed inputs cannot be transformed again.
	if _, err := r.Transform(a.ID, b.ID, 21); err != ErrUnknownWaste {
		t.Fatalf("re-transform consumed: got %v want ErrUnknownWaste", err)
	}
}

func TestRegistry_TransformRejectsMismatch(t *testing.T) {
	r := NewRegistry()
	g := r.Spawn(Green, 0)
	y := r.Spawn(Yellow, 0)
	if _, err := r.Transform(g.ID, y.ID, 1); err != ErrIncompatibleItems {
		t.Fatalf("mixed types: got %v want ErrIncompatibleItems", err)
	}

	r1 := r.Spawn(Red, 0)
	r2 := r.Spawn(Red, 0)
	if _, err := r.Transform(r1.ID, r2.ID, 1); err != ErrIncompatibleItems {
		t.Fatalf("red transform: got %v want ErrIncompatibleItems", err)
	}

	if _, err := r.Transform(g.ID, 999, 1); err != ErrUnknownWaste {
		t.Fatalf("unknown input: got %v want ErrUnknownWaste", err)
	}
}

func TestRegistry_CompleteIsIdempotentlyRejected(t *testing.T) {
	r := NewRegistry()
	w := r.Spawn(Red, 5)
	if err := r.Complete(w.ID, 40); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if w.CompletedStep != 40 {
		t.Fatalf("CompletedStep=%d want 40", w.CompletedStep)
	}
	if err := r.Complete(w.ID, 41); err != ErrAlreadyCompleted {
		t.Fatalf("second Complete: got %v want ErrAlreadyCompleted", err)
	}
	if w.CompletedStep != 40 {
		t.Fatalf("CompletedStep changed to %d on rejected call", w.CompletedStep)
	}
	if err := r.Complete(999, 41); err != ErrUnknownWaste {
		t.Fatalf("Complete unknown: got %v want ErrUnknownWaste", err)
	}
}

func TestRegistry_SnapshotSortedWithFullLineage(t *testing.T) {
	r := NewRegistry()
	a := r.Spawn(Green, 0)
	b := r.Spawn(Green, 1)
	out, _ := r.Transform(a.ID, b.ID, 5)
	_ = r.Complete(out.ID, 9) // not a drop-column deposit, but the registry does not care

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot len=%d want=3 (consumed items stay visible)", len(snap))
	}
	for i := 1; i < len(snap); i++ {
		if snap[i-1].ID >= snap[i].ID {
			t.Fatalf("snapshot not sorted by id: %v", snap)
		}
	}
	last := snap[2]
	if last.ID != out.ID || last.CompletedStep != 9 || last.CreatedStep != 0 {
		t.Fatalf("output record=%+v", last)
	}
}

func TestRegistry_LiveByType(t *testing.T) {
	r := NewRegistry()
	r.Spawn(Green, 0)
	r.Spawn(Green, 0)
	r.Spawn(Yellow, 0)
	red := r.Spawn(Red, 0)
	_ = r.Complete(red.ID, 1)

	counts := r.LiveByType()
	if counts != [3]int{2, 1, 0} {
		t.Fatalf("LiveByType=%v want [2 1 0]", counts)
	}
}
