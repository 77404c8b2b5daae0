package zone

// Violation kinds.
const (
	ViolationSpeed    = "speed"
	ViolationTeleport = "teleport"
)

type RecordedJoin struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RecordedMove struct {
	ID  string `json:"id"`
	X   int    `json:"x"`
	Y   int    `json:"y"`
	Dir int    `json:"dir"`
}

// TickLogEntry is one journal line per tick: what changed plus a digest of
// authoritative positions for desync forensics.
type TickLogEntry struct {
	Tick       uint64         `json:"tick"`
	Joins      []RecordedJoin `json:"joins,omitempty"`
	Leaves     []string       `json:"leaves,omitempty"`
	Moves      []RecordedMove `json:"moves,omitempty"`
	Violations int            `json:"violations,omitempty"`
	Digest     string         `json:"digest"`
}

// AuditEntry records one counted anti-cheat violation.
type AuditEntry struct {
	Tick          uint64 `json:"tick"`
	ParticipantID string `json:"participant_id"`
	Kind          string `json:"kind"`
	Detail        string `json:"detail,omitempty"`
	X             int    `json:"x"`
	Y             int    `json:"y"`
	Violations    int    `json:"violations"`
	AtUnixMs      int64  `json:"at_unix_ms"`
}

// Checkpoint is a persisted participant position.
type Checkpoint struct {
	ParticipantID string
	MapID         string
	X, Y          int
	Tick          uint64
}

// Sinks are nil-able and must never block a tick; implementations live in
// internal/persistence.
type TickJournal interface {
	WriteTick(TickLogEntry) error
}

type AuditTrail interface {
	WriteAudit(AuditEntry) error
}

type Store interface {
	Checkpoint(Checkpoint)
	RecordViolation(AuditEntry)
}
