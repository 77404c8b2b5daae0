package protocol

import "encoding/json"

// hello (client -> server): session handshake. A non-empty resume token
// re-attaches to an existing participant instead of spawning a new one.
type HelloMsg struct {
	Type   string `json:"type"`
	Name   string `json:"name"`
	Map    string `json:"map,omitempty"`
	Resume string `json:"resume,omitempty"`
}

// welcome (server -> client)
type WelcomeMsg struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	SessionID  string `json:"session"`
	Resume     string `json:"resume"`
	Map        string `json:"map"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	TickRateHz int    `json:"tick_rate_hz"`
	ViewWidth  int    `json:"view_w"`
	ViewHeight int    `json:"view_h"`
}

// h / m (client -> server): movement intents. The client reports where it
// believes it stands and the direction it wants; the server never trusts a
// destination.
type IntentMsg struct {
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	D    int    `json:"d"`
}

// pos (server -> client): authoritative correction for the receiver's own
// position. T=1 marks a map-transition reset.
type PosMsg struct {
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	T    int    `json:"t,omitempty"`
}

// move (server -> client): another participant stepped to (x, y).
type StepMsg struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// p (server -> client): entity state update. Identity is id plus ch (entity
// class); the remaining fields are pointers so that a delta carrying only
// the changed fields omits the rest entirely.
type EntityMsg struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Ch   string `json:"ch"`
	S    *int   `json:"s,omitempty"` // effective traversal duration, ms
	D    *int   `json:"d,omitempty"` // facing
	X    *int   `json:"x,omitempty"`
	Y    *int   `json:"y,omitempty"`
}

// pl (server -> client): batched roster snapshot of nearby entities.
type RosterMsg struct {
	Type string      `json:"type"`
	Data []EntityMsg `json:"data"`
}

// pkg (server -> client): several small messages coalesced into one frame.
// Entries are pre-encoded envelopes of any other outbound type.
type BatchMsg struct {
	Type string            `json:"type"`
	Data []json.RawMessage `json:"data"`
}

func IntPtr(v int) *int { return &v }
