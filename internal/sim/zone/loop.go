package zone

import (
	"context"
	"time"
)

// Run drives the fixed-interval tick loop until ctx is canceled or Stop is
// called. All simulation state is owned by this goroutine; everything else
// arrives through the channels drained here.
func (z *Zone) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(z.cfg.Tuning.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var joins []JoinRequest
	var leaves []LeaveRequest
	var transfers []TransferRequest
	var spawns []SpawnRequest

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-z.stop:
			return nil
		case req := <-z.join:
			joins = append(joins, req)
		case req := <-z.attach:
			z.handleAttach(req)
		case req := <-z.leave:
			leaves = append(leaves, req)
		case req := <-z.transfer:
			transfers = append(transfers, req)
		case req := <-z.spawn:
			spawns = append(spawns, req)
		case env := <-z.inbox:
			z.acceptIntent(env)
		case <-ticker.C:
			z.safeStep(z.clock(), joins, leaves, transfers, spawns)
			joins = joins[:0]
			leaves = leaves[:0]
			transfers = transfers[:0]
			spawns = spawns[:0]
		}
	}
}

func (z *Zone) Stop() { close(z.stop) }

// acceptIntent deposits a network intent into the participant's bounded
// queue. Overflow drops the intent; that is the flood control, not an error.
func (z *Zone) acceptIntent(env IntentEnvelope) {
	if z.participants[env.ParticipantID] == nil {
		return
	}
	if !z.queues.Enqueue(env.ParticipantID, env.Intent) {
		z.counters.droppedIntents++
		z.log.Debugw("input queue full, intent dropped", "participant", env.ParticipantID)
	}
}

// safeStep contains tick failures: an unexpected panic is logged and the
// next tick proceeds. No tick is retried or skipped because of it.
func (z *Zone) safeStep(now time.Time, joins []JoinRequest, leaves []LeaveRequest, transfers []TransferRequest, spawns []SpawnRequest) {
	defer func() {
		if r := recover(); r != nil {
			z.log.Errorw("tick step failed", "tick", z.tick.Load(), "panic", r)
			z.tick.Add(1)
		}
	}()
	z.stepInternal(now, joins, leaves, transfers, spawns)
}
