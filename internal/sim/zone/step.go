package zone

import "time"

// stepInternal advances the simulation by one tick. Ordering is fixed:
// leaves, joins, transfers, spawns at the boundary; then one intent per
// participant in join order; then pending-move completion; then the
// broadcaster's periodic snapshot; then flush, journal and metrics.
func (z *Zone) stepInternal(now time.Time, joins []JoinRequest, leaves []LeaveRequest, transfers []TransferRequest, spawns []SpawnRequest) {
	stepStart := time.Now()
	nowTick := z.tick.Load()

	z.tickMoves = z.tickMoves[:0]
	z.tickViolations = 0

	// A leave with a connection detaches it; the participant lingers for
	// the disconnect window so a resume can re-attach. A connection-less
	// leave (admin removal) is immediate.
	recordedLeaves := make([]string, 0, len(leaves))
	for _, req := range leaves {
		if z.participants[req.ID] == nil {
			continue
		}
		if req.Out == nil {
			z.removeParticipant(req.ID)
			recordedLeaves = append(recordedLeaves, req.ID)
			continue
		}
		z.detachClient(req, now)
	}

	if linger := time.Duration(z.cfg.Tuning.DisconnectLingerMs) * time.Millisecond; linger > 0 {
		for id, at := range z.detached {
			if now.Sub(at) >= linger {
				z.removeParticipant(id)
				recordedLeaves = append(recordedLeaves, id)
			}
		}
	}

	recordedJoins := make([]RecordedJoin, 0, len(joins))
	for _, req := range joins {
		z.handleJoin(req)
		id := z.order[len(z.order)-1]
		recordedJoins = append(recordedJoins, RecordedJoin{ID: id, Name: req.Name})
	}

	for _, req := range transfers {
		z.handleTransfer(req)
	}
	for _, req := range spawns {
		z.handleSpawn(req)
	}

	// One intent per participant per tick, in join order. A participant
	// still mid-traversal has its queued intent discarded, not retried.
	for _, id := range append([]string(nil), z.order...) {
		in, ok := z.queues.PopOne(id)
		if !ok {
			continue
		}
		p := z.participants[id]
		if p == nil {
			continue
		}
		if p.Moving {
			z.counters.discardedBusy++
			continue
		}
		z.applyIntent(p, in, now)
	}

	// Finalize traversals whose completion time has elapsed.
	for _, id := range z.order {
		t, ok := z.pending[id]
		if !ok || now.Before(t) {
			continue
		}
		p := z.participants[id]
		if p != nil {
			p.Moving = false
			p.FromX, p.FromY = p.X, p.Y
		}
		delete(z.pending, id)
	}

	if n := uint64(z.cfg.Tuning.SnapshotEveryTicks); n > 0 && nowTick > 0 && nowTick%n == 0 {
		z.snapshotStep()
	}

	if z.store != nil {
		if n := uint64(z.cfg.Tuning.CheckpointEveryTicks); n > 0 && nowTick > 0 && nowTick%n == 0 {
			for _, id := range z.order {
				p := z.participants[id]
				z.store.Checkpoint(Checkpoint{ParticipantID: id, MapID: p.MapID, X: p.X, Y: p.Y, Tick: nowTick})
			}
		}
	}

	z.flushOutboxes()

	// Kicks take effect after the final correction has been flushed;
	// removal is atomic within this tick.
	if len(z.toKick) > 0 {
		for _, id := range z.toKick {
			if z.participants[id] == nil {
				continue
			}
			z.log.Infow("kicking participant", "participant", id, "violations", z.monitor.Violations(id))
			z.removeParticipant(id)
			z.counters.kicks++
		}
		z.toKick = z.toKick[:0]
	}

	if z.journal != nil {
		entry := TickLogEntry{
			Tick:       nowTick,
			Joins:      recordedJoins,
			Leaves:     recordedLeaves,
			Moves:      append([]RecordedMove(nil), z.tickMoves...),
			Violations: z.tickViolations,
			Digest:     z.stateDigest(),
		}
		if err := z.journal.WriteTick(entry); err != nil {
			z.log.Warnw("tick journal write failed", "err", err)
		}
	}

	z.tick.Add(1)
	z.publishMetrics(float64(time.Since(stepStart).Microseconds()) / 1000.0)
}
