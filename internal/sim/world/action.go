package world

import "fmt"

type ActionKind int

const (
	ActNoOp ActionKind = iota
	ActMove
	ActPick
	ActTransform
	ActDropTransfer
	ActDeposit
)

func (k ActionKind) String() string {
	switch k {
	case ActNoOp:
		return "NOOP"
	case ActMove:
		return "MOVE"
	case ActPick:
		return "PICK"
	case ActTransform:
		return "TRANSFORM"
	case ActDropTransfer:
		return "DROP_TRANSFER"
	case ActDeposit:
		return "DEPOSIT"
	}
	return "UNKNOWN"
}

// Action is the single proposal a deliberation produces. Side effects
// are applied only by the scheduler after conflict resolution.
type Action struct {
	Kind ActionKind
	To   Pos // ActMove destination
	// WasteID targets a pick, and on a move carries claim intent:
	// the agent is heading for that item and wants it reserved.
	WasteID int
	Rule    string // deliberation rule that fired
}

func (a Action) describe() string {
	switch a.Kind {
	case ActMove:
		if a.WasteID != 0 {
			return fmt.Sprintf("MOVE (%d,%d) seeking waste %d", a.To.X, a.To.Y, a.WasteID)
		}
		return fmt.Sprintf("MOVE (%d,%d)", a.To.X, a.To.Y)
	case ActPick:
		return fmt.Sprintf("PICK waste %d", a.WasteID)
	default:
		return a.Kind.String()
	}
}
