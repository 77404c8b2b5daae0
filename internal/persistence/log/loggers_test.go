package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"tilerealm.gg/internal/sim/zone"
)

func readSegment(t *testing.T, path string) [][]byte {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open segment: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()

	var lines [][]byte
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		lines = append(lines, append([]byte(nil), sc.Bytes()...))
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return lines
}

func TestTickLoggerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)

	entries := []zone.TickLogEntry{
		{Tick: 1, Joins: []zone.RecordedJoin{{ID: "P000001", Name: "alice"}}, Digest: "d1"},
		{Tick: 2, Moves: []zone.RecordedMove{{ID: "P000001", X: 5, Y: 4, Dir: 1}}, Digest: "d2"},
	}
	for _, e := range entries {
		if err := l.WriteTick(e); err != nil {
			t.Fatalf("WriteTick: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	day := time.Now().UTC().Format("2006-01-02")
	path := filepath.Join(dir, "ticks", "ticks-"+day+".jsonl.zst")
	lines := readSegment(t, path)
	if len(lines) != 2 {
		t.Fatalf("lines=%d want=2", len(lines))
	}

	var got zone.TickLogEntry
	if err := json.Unmarshal(lines[1], &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Tick != 2 || len(got.Moves) != 1 || got.Moves[0].X != 5 || got.Digest != "d2" {
		t.Fatalf("entry mismatch: %+v", got)
	}
}

func TestAuditLoggerAppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	l := NewAuditLogger(dir)
	if err := l.WriteAudit(zone.AuditEntry{Tick: 1, ParticipantID: "P000001", Kind: zone.ViolationSpeed}); err != nil {
		t.Fatalf("WriteAudit: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// A restart appends to the same day's segment.
	l = NewAuditLogger(dir)
	if err := l.WriteAudit(zone.AuditEntry{Tick: 2, ParticipantID: "P000001", Kind: zone.ViolationTeleport}); err != nil {
		t.Fatalf("WriteAudit: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	day := time.Now().UTC().Format("2006-01-02")
	lines := readSegment(t, filepath.Join(dir, "audit", "audit-"+day+".jsonl.zst"))
	if len(lines) != 2 {
		t.Fatalf("lines=%d want=2", len(lines))
	}
	var got zone.AuditEntry
	if err := json.Unmarshal(lines[1], &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Kind != zone.ViolationTeleport || got.Tick != 2 {
		t.Fatalf("entry mismatch: %+v", got)
	}
}

func TestSegmentRotatesByDay(t *testing.T) {
	dir := t.TempDir()
	w := newSegmentWriter(dir, "test")

	cur := time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return cur }

	if err := w.Append(map[string]int{"n": 1}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	cur = cur.Add(2 * time.Hour)
	if err := w.Append(map[string]int{"n": 2}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, day := range []string{"2026-01-01", "2026-01-02"} {
		lines := readSegment(t, filepath.Join(dir, "test-"+day+".jsonl.zst"))
		if len(lines) != 1 {
			t.Fatalf("%s: lines=%d want=1", day, len(lines))
		}
	}
}
