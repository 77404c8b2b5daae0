package api

import (
	"github.com/prometheus/client_golang/prometheus"

	"tilerealm.gg/internal/sim/zone"
)

// RegisterZoneMetrics exposes the zone's lock-free read model through
// prometheus pull functions. All series are bounded: no per-participant
// labels.
func RegisterZoneMetrics(z *zone.Zone) {
	gauge := func(name, help string, get func(zone.ZoneMetrics) float64) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			return get(z.Metrics())
		})
	}
	counter := func(name, help string, get func(zone.ZoneMetrics) float64) prometheus.CounterFunc {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{Name: name, Help: help}, func() float64 {
			return get(z.Metrics())
		})
	}

	prometheus.MustRegister(
		gauge("zone_tick", "Current simulation tick",
			func(m zone.ZoneMetrics) float64 { return float64(m.Tick) }),
		gauge("zone_participants", "Participants in the zone",
			func(m zone.ZoneMetrics) float64 { return float64(m.Participants) }),
		gauge("zone_clients_connected", "Connected clients",
			func(m zone.ZoneMetrics) float64 { return float64(m.Clients) }),
		gauge("zone_tick_step_ms", "Duration of the last tick step in milliseconds",
			func(m zone.ZoneMetrics) float64 { return m.StepMS }),
		gauge("zone_inbox_depth", "Intents waiting in the zone inbox channel",
			func(m zone.ZoneMetrics) float64 { return float64(m.QueueDepths.Inbox) }),

		counter("zone_moves_accepted_total", "Movement intents accepted by the validator",
			func(m zone.ZoneMetrics) float64 { return float64(m.AcceptedMoves) }),
		counter("zone_face_changes_total", "Facing-only intents applied",
			func(m zone.ZoneMetrics) float64 { return float64(m.FaceChanges) }),
		counter("zone_moves_blocked_total", "Moves degraded to face-only by collision or occupancy",
			func(m zone.ZoneMetrics) float64 { return float64(m.BlockedMoves) }),
		counter("zone_corrections_total", "Authoritative position corrections sent",
			func(m zone.ZoneMetrics) float64 { return float64(m.Corrections) }),
		counter("zone_intents_dropped_total", "Intents dropped because a participant queue was full",
			func(m zone.ZoneMetrics) float64 { return float64(m.DroppedIntents) }),
		counter("zone_intents_discarded_busy_total", "Intents discarded while a step was in flight",
			func(m zone.ZoneMetrics) float64 { return float64(m.DiscardedBusy) }),
		counter("zone_violations_speed_total", "Speed violations flagged",
			func(m zone.ZoneMetrics) float64 { return float64(m.SpeedViolations) }),
		counter("zone_violations_teleport_total", "Teleport violations flagged",
			func(m zone.ZoneMetrics) float64 { return float64(m.TeleportViolations) }),
		counter("zone_kicks_total", "Participants kicked for repeated violations",
			func(m zone.ZoneMetrics) float64 { return float64(m.Kicks) }),
		counter("zone_messages_sent_total", "Messages queued to client connections",
			func(m zone.ZoneMetrics) float64 { return float64(m.MessagesSent) }),
		counter("zone_snapshots_total", "Periodic roster snapshots emitted",
			func(m zone.ZoneMetrics) float64 { return float64(m.Snapshots) }),
	)
}
