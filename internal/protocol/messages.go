package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	WorldParams     WorldParams `json:"world_params"`
	Tick            uint64      `json:"tick"`
}

type WorldParams struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Seed       int64  `json:"seed"`
	ZoneAgents [3]int `json:"zone_agents"`
	ZoneWaste  [3]int `json:"zone_waste"`
}

// CMD (client -> server)
type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Op              string `json:"op"`
	Ticks           int    `json:"ticks,omitempty"`
}

// Command operations.
const (
	OpStep     = "STEP"
	OpRun      = "RUN"
	OpPause    = "PAUSE"
	OpResume   = "RESUME"
	OpReset    = "RESET"
	OpSnapshot = "SNAPSHOT"
	OpStop     = "STOP"
)

// TICK (server -> client)
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	TickReport
}

// TickReport is the per-tick result the core hands to its callers.
type TickReport struct {
	Tick        uint64       `json:"tick"`
	Agents      []AgentState `json:"agents"`
	WasteEvents []WasteEvent `json:"waste_events,omitempty"`
	ZoneCounts  [3]int       `json:"zone_counts"`
	Digest      string       `json:"digest"`
}

type AgentState struct {
	ID        int        `json:"id"`
	Zone      int        `json:"zone"`
	Pos       [2]int     `json:"pos"`
	Inventory []WasteRef `json:"inventory,omitempty"`
	Status    string     `json:"status"`
	Action    string     `json:"action"`
	History   []string   `json:"history,omitempty"`
}

type WasteRef struct {
	ID   int `json:"id"`
	Type int `json:"waste_type"`
}

// Waste event kinds.
const (
	EventSpawned     = "SPAWNED"
	EventClaimed     = "CLAIMED"
	EventPicked      = "PICKED"
	EventTransformed = "TRANSFORMED"
	EventDropped     = "DROPPED"
	EventDeposited   = "DEPOSITED"
)

type WasteEvent struct {
	Kind    string `json:"kind"`
	WasteID int    `json:"waste_id"`
	AgentID int    `json:"agent_id,omitempty"`
	Pos     [2]int `json:"pos"`
	Type    int    `json:"waste_type"`
}

// SNAPSHOT (server -> client)
type SnapshotMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Tick            uint64        `json:"tick"`
	Grid            GridSnapshot  `json:"grid"`
	Registry        []WasteRecord `json:"registry"`
}

type GridSnapshot struct {
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Agents []AgentState `json:"agents"`
	Wastes []WasteAt    `json:"wastes"`
}

type WasteAt struct {
	ID   int    `json:"id"`
	Type int    `json:"waste_type"`
	Pos  [2]int `json:"pos"`
}

// WasteRecord is the per-item lifecycle row exported for the batch
// driver: full type lineage plus creation/completion ticks.
type WasteRecord struct {
	ID            int    `json:"id"`
	Type          int    `json:"waste_type"`
	TypeHistory   []int  `json:"type_history"`
	CreatedStep   uint64 `json:"created_step"`
	CompletedStep int64  `json:"completed_step"` // -1 while in transit
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Detail          string `json:"detail,omitempty"`
}
