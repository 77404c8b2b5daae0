package zone

import (
	"fmt"
	"time"

	"tilerealm.gg/internal/protocol"
)

// applyIntent runs one queued intent through the movement validator. It is
// the only code path that mutates participant position.
func (z *Zone) applyIntent(p *Participant, in Intent, now time.Time) {
	switch in.Kind {
	case IntentFace:
		z.applyFace(p, in)
	case IntentMove:
		z.applyMove(p, in, now)
	}
}

// applyFace validates the direction only: update facing, broadcast an entity
// update, never touch position.
func (z *Zone) applyFace(p *Participant, in Intent) {
	if !protocol.ValidDir(in.Dir) {
		z.sendPos(p)
		z.counters.corrections++
		return
	}
	p.Dir = in.Dir
	z.broadcastEntity(p)
	z.counters.faceChanges++
}

func (z *Zone) applyMove(p *Participant, in Intent, now time.Time) {
	if !protocol.ValidDir(in.Dir) {
		z.sendPos(p)
		z.counters.corrections++
		return
	}
	if p.Moving {
		// Mid-traversal intents are ignored; queued follow-ups are simply
		// processed on the next eligible tick.
		return
	}

	// The client's claimed position is checked against authority. Beyond
	// the teleport tolerance it is a counted violation; within it, a
	// corrective pos is sent and processing continues with the server's
	// position.
	dist := manhattan(in.X, in.Y, p.X, p.Y)
	if DetectTeleport(in.X, in.Y, p.X, p.Y, z.cfg.Tuning.MaxTeleportDist) {
		z.flagViolation(p, ViolationTeleport, now,
			fmt.Sprintf("claimed (%d,%d) vs (%d,%d)", in.X, in.Y, p.X, p.Y))
		return
	}
	if dist > 0 {
		z.sendPos(p)
		z.counters.corrections++
	}

	dx, dy := protocol.DirVector(in.Dir)
	tx, ty := p.X+dx, p.Y+dy

	m := z.mapFor(p.MapID)
	occupant := z.occupantAt(p.MapID, tx, ty)
	if !m.Walkable(tx, ty) || (occupant != "" && occupant != p.ID) {
		// Collision conflicts degrade to a facing-only update.
		p.Dir = in.Dir
		z.broadcastEntity(p)
		z.counters.blockedMoves++
		return
	}

	if z.monitor.DetectSpeedHack(p.ID, now, p.StepMs, z.cfg.Tuning.SpeedHackTolerance) {
		z.flagViolation(p, ViolationSpeed, now,
			fmt.Sprintf("interval below %dms effective", p.StepMs))
		return
	}

	// Accept. The destination tile becomes occupied now, not at traversal
	// completion, so two participants cannot both win the same free tile
	// within one tick.
	p.Dir = in.Dir
	p.FromX, p.FromY = p.X, p.Y
	z.clearOccupant(p.MapID, p.X, p.Y, p.ID)
	z.setOccupant(p.MapID, tx, ty, p.ID)
	p.X, p.Y = tx, ty
	p.Moving = true

	p.StepMs = p.BaseStepMs + m.SpeedModifierAt(tx, ty)
	if p.StepMs < z.cfg.Tuning.MinStepMs {
		p.StepMs = z.cfg.Tuning.MinStepMs
	}
	p.LastMoveAt = now
	p.InputSeq++
	z.pending[p.ID] = now.Add(time.Duration(p.StepMs) * time.Millisecond)
	z.monitor.RecordMove(p.ID, tx, ty, now)

	z.broadcastStep(p)
	z.counters.accepted++
	z.tickMoves = append(z.tickMoves, RecordedMove{ID: p.ID, X: tx, Y: ty, Dir: p.Dir})
}

// flagViolation counts a security violation, records it for audit, corrects
// the client, and signals a kick once the threshold is crossed.
func (z *Zone) flagViolation(p *Participant, kind string, now time.Time, detail string) {
	n := z.monitor.AddViolation(p.ID)
	z.tickViolations++
	switch kind {
	case ViolationSpeed:
		z.counters.speedViolations++
	case ViolationTeleport:
		z.counters.teleportViolations++
	}

	entry := AuditEntry{
		Tick:          z.tick.Load(),
		ParticipantID: p.ID,
		Kind:          kind,
		Detail:        detail,
		X:             p.X,
		Y:             p.Y,
		Violations:    n,
		AtUnixMs:      now.UnixMilli(),
	}
	if z.audit != nil {
		if err := z.audit.WriteAudit(entry); err != nil {
			z.log.Warnw("audit write failed", "err", err)
		}
	}
	if z.store != nil {
		z.store.RecordViolation(entry)
	}

	z.sendPos(p)
	z.counters.corrections++

	if z.monitor.ShouldKick(p.ID, z.cfg.Tuning.KickThreshold) {
		z.toKick = append(z.toKick, p.ID)
	}
}
