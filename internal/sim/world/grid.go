package world

// Pos is a 2D grid position.
type Pos struct {
	X int
	Y int
}

func (p Pos) Arr() [2]int { return [2]int{p.X, p.Y} }

func (p Pos) Manhattan(q Pos) int {
	return abs(p.X-q.X) + abs(p.Y-q.Y)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

type cell struct {
	agentID int // 0 = empty
	wasteID int // 0 = empty
}

// Grid owns cell occupancy and resting waste placement. It is a pure
// spatial structure: queries and validated mutations, nothing else.
// Columns split into three equal-width zones, west to east.
type Grid struct {
	width  int
	height int
	cells  []cell
}

func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, &InvariantError{Op: "NewGrid", Detail: "non-positive dimensions"}
	}
	if width%3 != 0 {
		return nil, &InvariantError{Op: "NewGrid", Detail: "width must be divisible by 3"}
	}
	return &Grid{width: width, height: height, cells: make([]cell, width*height)}, nil
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

func (g *Grid) InBounds(p Pos) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

func (g *Grid) at(p Pos) *cell { return &g.cells[p.Y*g.width+p.X] }

// CellAt reports the agent and waste occupying p (0 = none).
func (g *Grid) CellAt(p Pos) (agentID, wasteID int, err error) {
	if !g.InBounds(p) {
		return 0, 0, ErrOutOfBounds
	}
	c := g.at(p)
	return c.agentID, c.wasteID, nil
}

// PlaceAgent puts an agent on an unoccupied cell.
func (g *Grid) PlaceAgent(id int, p Pos) error {
	if !g.InBounds(p) {
		return ErrOutOfBounds
	}
	c := g.at(p)
	if c.agentID != 0 {
		return ErrCellOccupied
	}
	c.agentID = id
	return nil
}

// MoveAgent relocates an agent. The destination must be in bounds and
// free of other agents; a resting waste item does not block movement.
func (g *Grid) MoveAgent(id int, from, to Pos) error {
	if !g.InBounds(from) || !g.InBounds(to) {
		return ErrOutOfBounds
	}
	src := g.at(from)
	if src.agentID != id {
		return &InvariantError{Op: "MoveAgent", Detail: "agent not at source cell"}
	}
	if from == to {
		return nil
	}
	dst := g.at(to)
	if dst.agentID != 0 {
		return ErrCellOccupied
	}
	src.agentID = 0
	dst.agentID = id
	return nil
}

// PlaceWaste rests a waste item on a cell. At most one resting item
// per cell; placing onto an occupied cell fails rather than stacking.
func (g *Grid) PlaceWaste(id int, p Pos) error {
	if !g.InBounds(p) {
		return ErrOutOfBounds
	}
	c := g.at(p)
	if c.wasteID != 0 {
		return ErrCellOccupied
	}
	c.wasteID = id
	return nil
}

// RemoveWaste clears and returns the resting waste at p.
func (g *Grid) RemoveWaste(p Pos) (int, error) {
	if !g.InBounds(p) {
		return 0, ErrOutOfBounds
	}
	c := g.at(p)
	if c.wasteID == 0 {
		return 0, ErrEmptyCell
	}
	id := c.wasteID
	c.wasteID = 0
	return id, nil
}

func (g *Grid) ZoneWidth() int { return g.width / 3 }

// ZoneOf classifies a column into zone 0..2.
func (g *Grid) ZoneOf(x int) int {
	z := x / g.ZoneWidth()
	if z < 0 {
		return 0
	}
	if z > 2 {
		return 2
	}
	return z
}

// TransferColumn is the easternmost column of a zone. For zone 2 this
// coincides with the drop column, which is a terminal deposit area
// rather than a transfer point.
func (g *Grid) TransferColumn(zone int) int {
	return (zone+1)*g.ZoneWidth() - 1
}

func (g *Grid) DropColumn() int { return g.width - 1 }

func (g *Grid) IsTransferColumn(x int) bool {
	return x != g.DropColumn() && x == g.TransferColumn(g.ZoneOf(x))
}

func (g *Grid) IsDropColumn(x int) bool { return x == g.DropColumn() }

// Neighbors4 returns the in-bounds 4-connected neighbors of p.
func (g *Grid) Neighbors4(p Pos) []Pos {
	candidates := [4]Pos{
		{p.X + 1, p.Y},
		{p.X - 1, p.Y},
		{p.X, p.Y + 1},
		{p.X, p.Y - 1},
	}
	out := make([]Pos, 0, 4)
	for _, q := range candidates {
		if g.InBounds(q) {
			out = append(out, q)
		}
	}
	return out
}
