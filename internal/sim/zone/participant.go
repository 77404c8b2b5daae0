package zone

import "time"

// Entity classes on the wire ("ch" field).
const (
	ChPlayer = "player"
	ChMob    = "mob"
	ChNPC    = "npc"
)

// Participant is one entity occupying exactly one tile on exactly one map.
// Position is mutated only by the movement validator during a tick.
type Participant struct {
	ID    string
	Name  string
	Ch    string
	MapID string

	X, Y int

	// FromX/FromY hold the pre-move tile until the traversal completes.
	// They are interpolation hints only, never authority.
	FromX, FromY int

	Dir int

	// BaseStepMs is the base tile-traversal duration; StepMs is the
	// effective duration after the current tile's modifier, floor-clamped.
	BaseStepMs int
	StepMs     int

	Moving bool

	// LastMoveAt is the timestamp of the last accepted move; InputSeq
	// counts accepted inputs.
	LastMoveAt time.Time
	InputSeq   uint64

	Resume string

	joinSeq uint64
}
