package world

import (
	"sort"

	"dronegrid/internal/protocol"
)

// WasteType is the processing stage of a waste item.
type WasteType int

const (
	Green WasteType = iota
	Yellow
	Red
)

func (t WasteType) String() string {
	switch t {
	case Green:
		return "green"
	case Yellow:
		return "yellow"
	case Red:
		return "red"
	}
	return "unknown"
}

// Waste is one unit of material moving through the pipeline.
type Waste struct {
	ID            int
	Type          WasteType
	TypeHistory   []WasteType
	CreatedStep   uint64
	CompletedStep int64 // -1 while in transit
	Consumed      bool  // destroyed as a transform input
}

func (w *Waste) Completed() bool { return w.CompletedStep >= 0 }

// Registry owns waste identity and lifecycle timestamps. Items are
// never deleted: transform inputs are marked consumed and deposited
// items completed, so the full lineage stays available for export.
type Registry struct {
	items  map[int]*Waste
	nextID int
}

func NewRegistry() *Registry {
	return &Registry{items: map[int]*Waste{}}
}

// Spawn creates a new item, either seeded onto the grid or produced by
// a transformation.
func (r *Registry) Spawn(t WasteType, step uint64) *Waste {
	r.nextID++
	w := &Waste{
		ID:            r.nextID,
		Type:          t,
		TypeHistory:   []WasteType{t},
		CreatedStep:   step,
		CompletedStep: -1,
	}
	r.items[w.ID] = w
	return w
}

func (r *Registry) Get(id int) *Waste { return r.items[id] }

// Transform destroys two items of the same type t < Red and creates
// one item of type t+1. The new item inherits the earlier CreatedStep
// of its inputs and extends that input's type lineage.
func (r *Registry) Transform(aID, bID int, step uint64) (*Waste, error) {
	a, b := r.items[aID], r.items[bID]
	if a == nil || b == nil {
		return nil, ErrUnknownWaste
	}
	if a.Consumed || b.Consumed || a.Completed() || b.Completed() {
		return nil, ErrUnknownWaste
	}
	if a.Type != b.Type || a.Type >= Red {
		return nil, ErrIncompatibleItems
	}
	earlier := a
	if b.CreatedStep < a.CreatedStep {
		earlier = b
	}
	a.Consumed = true
	b.Consumed = true

	r.nextID++
	out := &Waste{
		ID:            r.nextID,
		Type:          a.Type + 1,
		TypeHistory:   append(append([]WasteType{}, earlier.TypeHistory...), a.Type+1),
		CreatedStep:   earlier.CreatedStep,
		CompletedStep: -1,
	}
	r.items[out.ID] = out
	return out, nil
}

// Complete marks an item deposited at the drop column.
func (r *Registry) Complete(id int, step uint64) error {
	w := r.items[id]
	if w == nil {
		return ErrUnknownWaste
	}
	if w.Completed() {
		return ErrAlreadyCompleted
	}
	w.CompletedStep = int64(step)
	return nil
}

// Live counts items that are neither consumed nor completed.
func (r *Registry) Live() int {
	n := 0
	for _, w := range r.items {
		if !w.Consumed && !w.Completed() {
			n++
		}
	}
	return n
}

// LiveByType counts in-transit items per type.
func (r *Registry) LiveByType() [3]int {
	var out [3]int
	for _, w := range r.items {
		if !w.Consumed && !w.Completed() {
			out[w.Type]++
		}
	}
	return out
}

// Snapshot exports every item the registry has ever known, sorted by
// id.
func (r *Registry) Snapshot() []protocol.WasteRecord {
	out := make([]protocol.WasteRecord, 0, len(r.items))
	for _, w := range r.items {
		hist := make([]int, len(w.TypeHistory))
		for i, t := range w.TypeHistory {
			hist[i] = int(t)
		}
		out = append(out, protocol.WasteRecord{
			ID:            w.ID,
			Type:          int(w.Type),
			TypeHistory:   hist,
			CreatedStep:   w.CreatedStep,
			CompletedStep: w.CompletedStep,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
