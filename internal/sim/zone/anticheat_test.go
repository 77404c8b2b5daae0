package zone

import (
	"testing"
	"time"
)

func TestHistoryRingKeepsNewestSamples(t *testing.T) {
	var h History
	base := time.Unix(0, 0)
	for i := 0; i < historySize+4; i++ {
		h.push(moveSample{X: i, At: base.Add(time.Duration(i) * time.Second)})
	}
	got := h.Samples()
	if len(got) != historySize {
		t.Fatalf("len=%d want=%d", len(got), historySize)
	}
	if got[0].X != 4 || got[len(got)-1].X != historySize+3 {
		t.Fatalf("ring order: first=%d last=%d", got[0].X, got[len(got)-1].X)
	}
	last, ok := h.latest()
	if !ok || last.X != historySize+3 {
		t.Fatalf("latest=%v ok=%v", last, ok)
	}
}

func TestDetectSpeedHackBoundary(t *testing.T) {
	m := NewMonitor()
	base := time.Unix(1000, 0)
	m.RecordMove("a", 1, 1, base)

	// Effective 750ms at tolerance 0.15 gives a 637.5ms floor.
	if !m.DetectSpeedHack("a", base.Add(600*time.Millisecond), 750, 0.15) {
		t.Fatalf("600ms after a 750ms step must be a violation")
	}
	if m.DetectSpeedHack("a", base.Add(650*time.Millisecond), 750, 0.15) {
		t.Fatalf("650ms after a 750ms step must be allowed")
	}
}

func TestDetectSpeedHackNoHistory(t *testing.T) {
	m := NewMonitor()
	if m.DetectSpeedHack("ghost", time.Unix(1000, 0), 250, 0.15) {
		t.Fatalf("first move can never be a speed violation")
	}
}

func TestDetectTeleportThreshold(t *testing.T) {
	if DetectTeleport(5, 5, 4, 6, 2) {
		t.Fatalf("manhattan distance 2 is within tolerance")
	}
	if !DetectTeleport(5, 5, 3, 7, 2) {
		t.Fatalf("manhattan distance 4 must be a violation")
	}
	if !DetectTeleport(5, 8, 5, 5, 2) {
		t.Fatalf("manhattan distance 3 must be a violation")
	}
}

func TestShouldKickAtThreshold(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < 9; i++ {
		m.AddViolation("a")
	}
	if m.ShouldKick("a", 10) {
		t.Fatalf("9 violations must not kick at threshold 10")
	}
	m.AddViolation("a")
	if !m.ShouldKick("a", 10) {
		t.Fatalf("10 violations must kick at threshold 10")
	}
}

func TestMonitorRemoveResets(t *testing.T) {
	m := NewMonitor()
	m.AddViolation("a")
	m.RecordMove("a", 0, 0, time.Unix(0, 0))
	m.Remove("a")
	if m.Violations("a") != 0 {
		t.Fatalf("violations survive removal")
	}
	if m.DetectSpeedHack("a", time.Unix(1, 0), 250, 0.15) {
		t.Fatalf("history survives removal")
	}
}
