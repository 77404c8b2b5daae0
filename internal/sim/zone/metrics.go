package zone

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Join  int `json:"join"`
	Leave int `json:"leave"`
}

// ZoneMetrics is the read-model published after every tick. It may be read
// from any goroutine.
type ZoneMetrics struct {
	Tick         uint64      `json:"tick"`
	Participants int         `json:"participants"`
	Clients      int         `json:"clients"`
	QueueDepths  QueueDepths `json:"queue_depths"`
	StepMS       float64     `json:"step_ms"`

	AcceptedMoves      uint64 `json:"accepted_moves"`
	FaceChanges        uint64 `json:"face_changes"`
	BlockedMoves       uint64 `json:"blocked_moves"`
	Corrections        uint64 `json:"corrections"`
	DroppedIntents     uint64 `json:"dropped_intents"`
	DiscardedBusy      uint64 `json:"discarded_busy"`
	SpeedViolations    uint64 `json:"speed_violations"`
	TeleportViolations uint64 `json:"teleport_violations"`
	Kicks              uint64 `json:"kicks"`
	MessagesSent       uint64 `json:"messages_sent"`
	Snapshots          uint64 `json:"snapshots"`
}

type counters struct {
	accepted           uint64
	faceChanges        uint64
	blockedMoves       uint64
	corrections        uint64
	droppedIntents     uint64
	discardedBusy      uint64
	speedViolations    uint64
	teleportViolations uint64
	kicks              uint64
	messagesSent       uint64
	snapshots          uint64
}

func (z *Zone) Metrics() ZoneMetrics {
	m, _ := z.metrics.Load().(ZoneMetrics)
	return m
}

func (z *Zone) publishMetrics(stepMS float64) {
	c := z.counters
	z.metrics.Store(ZoneMetrics{
		Tick:         z.tick.Load(),
		Participants: len(z.participants),
		Clients:      len(z.clients),
		QueueDepths: QueueDepths{
			Inbox: len(z.inbox),
			Join:  len(z.join),
			Leave: len(z.leave),
		},
		StepMS:             stepMS,
		AcceptedMoves:      c.accepted,
		FaceChanges:        c.faceChanges,
		BlockedMoves:       c.blockedMoves,
		Corrections:        c.corrections,
		DroppedIntents:     c.droppedIntents,
		DiscardedBusy:      c.discardedBusy,
		SpeedViolations:    c.speedViolations,
		TeleportViolations: c.teleportViolations,
		Kicks:              c.kicks,
		MessagesSent:       c.messagesSent,
		Snapshots:          c.snapshots,
	})
}
