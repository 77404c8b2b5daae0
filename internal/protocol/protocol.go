package protocol

import "encoding/json"

// Message types. The envelope is a JSON object with a short "type" tag; the
// movement-path tags are one letter to keep the hottest messages small.
const (
	// Client -> server.
	TypeHello = "hello"
	TypeMove  = "h" // move-start intent
	TypeFace  = "m" // face-only intent

	// Server -> client.
	TypeWelcome = "welcome"
	TypePos     = "pos" // authoritative position correction
	TypeStep    = "move"
	TypeEntity  = "p"
	TypeRoster  = "pl"
	TypeBatch   = "pkg"
)

// Facing direction codes. Valid values are 0..3.
const (
	DirUp = iota
	DirRight
	DirDown
	DirLeft
)

// ValidDir reports whether d is one of the four direction codes.
func ValidDir(d int) bool { return d >= DirUp && d <= DirLeft }

// DirVector returns the tile delta for a direction code.
func DirVector(d int) (dx, dy int) {
	switch d {
	case DirUp:
		return 0, -1
	case DirRight:
		return 1, 0
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	}
	return 0, 0
}

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
