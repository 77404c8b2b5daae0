package zone

import (
	"encoding/json"

	"tilerealm.gg/internal/protocol"
)

// inView reports whether (x, y) falls inside the rectangular view window
// centered on (cx, cy).
func (z *Zone) inView(cx, cy, x, y int) bool {
	return abs(x-cx) <= z.cfg.Tuning.ViewWidth/2 && abs(y-cy) <= z.cfg.Tuning.ViewHeight/2
}

// observersNear returns the participants on mapID inside the window around
// (x, y), excluding excludeID, in join order.
func (z *Zone) observersNear(mapID string, x, y int, excludeID string) []*Participant {
	var out []*Participant
	for _, id := range z.order {
		if id == excludeID {
			continue
		}
		p := z.participants[id]
		if p == nil || p.MapID != mapID {
			continue
		}
		if z.inView(x, y, p.X, p.Y) {
			out = append(out, p)
		}
	}
	return out
}

// queueMsg appends one encoded message to a client's per-tick outbox. The
// outboxes are flushed once per tick, coalescing multiple messages into a
// single pkg envelope.
func (z *Zone) queueMsg(id string, v any) {
	cl := z.clients[id]
	if cl == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		z.log.Errorw("encode outbound message", "participant", id, "err", err)
		return
	}
	cl.outbox = append(cl.outbox, b)
}

// sendPos pushes an authoritative correction of the receiver's own position.
func (z *Zone) sendPos(p *Participant) {
	z.queueMsg(p.ID, protocol.PosMsg{Type: protocol.TypePos, X: p.X, Y: p.Y})
}

// broadcastStep announces an accepted move to every observer in range of the
// mover. The mover itself is excluded. Observers that have never seen the
// mover get a full entity update instead of a bare step.
func (z *Zone) broadcastStep(p *Participant) {
	step := protocol.StepMsg{Type: protocol.TypeStep, ID: p.ID, X: p.X, Y: p.Y}
	for _, o := range z.observersNear(p.MapID, p.X, p.Y, p.ID) {
		cl := z.clients[o.ID]
		if cl == nil {
			continue
		}
		prev, seen := cl.lastSent[p.ID]
		if !seen {
			if msg, changed := deltaFor(cl, p); changed {
				z.queueMsg(o.ID, msg)
			}
			continue
		}
		prev.X, prev.Y = p.X, p.Y
		cl.lastSent[p.ID] = prev
		z.queueMsg(o.ID, step)
	}
}

// broadcastEntity announces a facing/stat change to every observer in range,
// delta-compressed per observer.
func (z *Zone) broadcastEntity(p *Participant) {
	for _, o := range z.observersNear(p.MapID, p.X, p.Y, p.ID) {
		cl := z.clients[o.ID]
		if cl == nil {
			continue
		}
		if msg, changed := deltaFor(cl, p); changed {
			z.queueMsg(o.ID, msg)
		}
	}
}

// deltaFor diffs an entity's current state against the last values sent to
// this observer. The first observation sends the full state; afterwards only
// changed fields plus identity (id, ch) are included. An unchanged entity
// yields no message at all.
func deltaFor(cl *clientState, e *Participant) (protocol.EntityMsg, bool) {
	cur := entityFields{Ch: e.Ch, S: e.StepMs, D: e.Dir, X: e.X, Y: e.Y}
	prev, seen := cl.lastSent[e.ID]
	cl.lastSent[e.ID] = cur

	msg := protocol.EntityMsg{Type: protocol.TypeEntity, ID: e.ID, Ch: cur.Ch}
	if !seen {
		msg.S = protocol.IntPtr(cur.S)
		msg.D = protocol.IntPtr(cur.D)
		msg.X = protocol.IntPtr(cur.X)
		msg.Y = protocol.IntPtr(cur.Y)
		return msg, true
	}
	if prev == cur {
		return protocol.EntityMsg{}, false
	}
	if prev.S != cur.S {
		msg.S = protocol.IntPtr(cur.S)
	}
	if prev.D != cur.D {
		msg.D = protocol.IntPtr(cur.D)
	}
	if prev.X != cur.X {
		msg.X = protocol.IntPtr(cur.X)
	}
	if prev.Y != cur.Y {
		msg.Y = protocol.IntPtr(cur.Y)
	}
	return msg, true
}

// snapshotStep sends each connected participant a roster of its currently
// nearby entities, delta-compressed, to self-heal missed incremental
// updates. Delta entries for entities no longer nearby are evicted here.
func (z *Zone) snapshotStep() {
	for _, id := range z.order {
		cl := z.clients[id]
		p := z.participants[id]
		if cl == nil || p == nil {
			continue
		}

		nearby := z.observersNear(p.MapID, p.X, p.Y, p.ID)
		current := make(map[string]bool, len(nearby))
		var roster []protocol.EntityMsg
		for _, e := range nearby {
			current[e.ID] = true
			if msg, changed := deltaFor(cl, e); changed {
				roster = append(roster, msg)
			}
		}
		for eid := range cl.lastSent {
			if !current[eid] {
				delete(cl.lastSent, eid)
			}
		}
		if len(roster) > 0 {
			z.queueMsg(id, protocol.RosterMsg{Type: protocol.TypeRoster, Data: roster})
		}
	}
	z.counters.snapshots++
}

// flushOutboxes drains every client's per-tick outbox: a single message goes
// out as-is, several are coalesced into one pkg envelope. Sends never block
// the tick; a saturated client drops its oldest frame.
func (z *Zone) flushOutboxes() {
	for _, id := range z.order {
		cl := z.clients[id]
		if cl == nil || len(cl.outbox) == 0 {
			continue
		}
		var frame []byte
		if len(cl.outbox) == 1 {
			frame = cl.outbox[0]
		} else {
			batch := protocol.BatchMsg{Type: protocol.TypeBatch, Data: make([]json.RawMessage, len(cl.outbox))}
			for i, b := range cl.outbox {
				batch.Data[i] = b
			}
			var err error
			frame, err = json.Marshal(batch)
			if err != nil {
				z.log.Errorw("encode pkg", "participant", id, "err", err)
				cl.outbox = cl.outbox[:0]
				continue
			}
		}
		sendLatest(cl.Out, frame)
		cl.outbox = cl.outbox[:0]
		z.counters.messagesSent++
	}
}

// sendLatest performs a non-blocking channel send, dropping the oldest
// buffered frame once to make room.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
