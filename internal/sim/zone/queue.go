package zone

// queueSet holds the bounded per-participant intent FIFOs. The zone
// goroutine is the only accessor: the network path reaches it exclusively
// through the inbox channel, which provides the cross-boundary exclusion.
type queueSet struct {
	max    int
	queues map[string][]Intent
}

func newQueueSet(max int) *queueSet {
	if max <= 0 {
		max = 32
	}
	return &queueSet{max: max, queues: make(map[string][]Intent)}
}

// Enqueue appends an intent in arrival order. It reports false when the
// participant's queue is full; the intent is dropped (flood control).
func (q *queueSet) Enqueue(id string, in Intent) bool {
	buf := q.queues[id]
	if len(buf) >= q.max {
		return false
	}
	q.queues[id] = append(buf, in)
	return true
}

// PopOne removes and returns the oldest queued intent.
func (q *queueSet) PopOne(id string) (Intent, bool) {
	buf := q.queues[id]
	if len(buf) == 0 {
		return Intent{}, false
	}
	in := buf[0]
	rest := buf[1:]
	if len(rest) == 0 {
		delete(q.queues, id)
	} else {
		q.queues[id] = rest
	}
	return in, true
}

// Drain removes and returns all queued intents in arrival order.
func (q *queueSet) Drain(id string) []Intent {
	buf := q.queues[id]
	delete(q.queues, id)
	return buf
}

// Remove discards a participant's queue on disconnect.
func (q *queueSet) Remove(id string) {
	delete(q.queues, id)
}

func (q *queueSet) Len(id string) int {
	return len(q.queues[id])
}
