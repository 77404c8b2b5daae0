package zone

import "time"

const historySize = 16

type moveSample struct {
	X, Y int
	At   time.Time
}

// History is the per-participant anti-cheat record: a bounded ring of recent
// accepted-move samples and a violation counter.
type History struct {
	samples    [historySize]moveSample
	head       int
	count      int
	Violations int
}

func (h *History) push(s moveSample) {
	h.samples[h.head] = s
	h.head = (h.head + 1) % historySize
	if h.count < historySize {
		h.count++
	}
}

func (h *History) latest() (moveSample, bool) {
	if h.count == 0 {
		return moveSample{}, false
	}
	return h.samples[(h.head+historySize-1)%historySize], true
}

// Samples returns the recorded samples, oldest first.
func (h *History) Samples() []moveSample {
	out := make([]moveSample, 0, h.count)
	start := (h.head + historySize - h.count) % historySize
	for i := 0; i < h.count; i++ {
		out = append(out, h.samples[(start+i)%historySize])
	}
	return out
}

// Monitor is pure bookkeeping consulted by the movement validator. It never
// acts on its own; the kick decision is signalled, not executed, here.
type Monitor struct {
	histories map[string]*History
}

func NewMonitor() *Monitor {
	return &Monitor{histories: make(map[string]*History)}
}

func (m *Monitor) history(id string) *History {
	h := m.histories[id]
	if h == nil {
		h = &History{}
		m.histories[id] = h
	}
	return h
}

// RecordMove adds one sample per accepted move.
func (m *Monitor) RecordMove(id string, x, y int, at time.Time) {
	m.history(id).push(moveSample{X: x, Y: y, At: at})
}

// DetectSpeedHack reports whether a move arriving at now comes sooner after
// the previous accepted move than the tolerance-adjusted effective traversal
// duration allows. No recorded move means no violation.
func (m *Monitor) DetectSpeedHack(id string, now time.Time, effectiveMs int, tolerance float64) bool {
	h := m.histories[id]
	if h == nil {
		return false
	}
	last, ok := h.latest()
	if !ok {
		return false
	}
	minInterval := time.Duration(float64(effectiveMs) * (1 - tolerance) * float64(time.Millisecond))
	return now.Sub(last.At) < minInterval
}

// DetectTeleport reports whether a claimed position is farther from the
// authoritative one than the per-move maximum (Manhattan distance).
func DetectTeleport(claimedX, claimedY, authX, authY, maxDist int) bool {
	return manhattan(claimedX, claimedY, authX, authY) > maxDist
}

// AddViolation increments and returns the participant's violation counter.
func (m *Monitor) AddViolation(id string) int {
	h := m.history(id)
	h.Violations++
	return h.Violations
}

func (m *Monitor) Violations(id string) int {
	if h := m.histories[id]; h != nil {
		return h.Violations
	}
	return 0
}

// ShouldKick is true once the violation count reaches the threshold. Acting
// on it is the transport's call.
func (m *Monitor) ShouldKick(id string, threshold int) bool {
	return m.Violations(id) >= threshold
}

func (m *Monitor) Remove(id string) {
	delete(m.histories, id)
}
