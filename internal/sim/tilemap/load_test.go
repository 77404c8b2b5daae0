package tilemap

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleMap = `
id: arena
width: 4
height: 3
wall: 1
speed:
  2: 150
spawn: [1, 1]
tiles:
  - [1, 1, 1, 1]
  - [1, 0, 2, 1]
  - [1, 1, 1, 1]
objects:
  - { x: 2, y: 1, template: "crate", blocks: true }
`

func writeMap(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write map: %v", err)
	}
	return p
}

func TestLoad(t *testing.T) {
	p := writeMap(t, t.TempDir(), "arena.yaml", sampleMap)
	m, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.ID != "arena" || m.Width != 4 || m.Height != 3 {
		t.Fatalf("header mismatch: %s %dx%d", m.ID, m.Width, m.Height)
	}
	if m.SpawnX != 1 || m.SpawnY != 1 {
		t.Fatalf("spawn=(%d,%d) want=(1,1)", m.SpawnX, m.SpawnY)
	}
	if !m.Walkable(1, 1) {
		t.Fatalf("(1,1) must be walkable")
	}
	if m.Walkable(0, 0) {
		t.Fatalf("wall tile must not be walkable")
	}
	if m.Walkable(2, 1) {
		t.Fatalf("crate tile must not be walkable")
	}
	if got := m.SpeedModifierAt(2, 1); got != 150 {
		t.Fatalf("modifier=%d want=150", got)
	}
}

func TestLoadRejectsBadShapes(t *testing.T) {
	dir := t.TempDir()
	bad := []string{
		"id: a\nwidth: 0\nheight: 3\ntiles: []\n",
		"id: a\nwidth: 2\nheight: 2\ntiles:\n  - [0, 0]\n",
		"id: a\nwidth: 2\nheight: 1\ntiles:\n  - [0]\n",
		"id: a\nwidth: 2\nheight: 10001\ntiles: []\n",
	}
	for i, body := range bad {
		p := writeMap(t, dir, "bad.yaml", body)
		if _, err := Load(p); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestLoadDirKeysByID(t *testing.T) {
	dir := t.TempDir()
	writeMap(t, dir, "a.yaml", "id: alpha\nwidth: 2\nheight: 1\ntiles:\n  - [0, 0]\n")
	writeMap(t, dir, "b.yaml", "width: 2\nheight: 1\ntiles:\n  - [0, 0]\n")
	writeMap(t, dir, "notes.txt", "ignored")

	maps, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(maps) != 2 {
		t.Fatalf("len=%d want=2", len(maps))
	}
	if maps["alpha"] == nil {
		t.Fatalf("missing map keyed by explicit id")
	}
	// Missing id falls back to the file name.
	if maps["b"] == nil {
		t.Fatalf("missing map keyed by file name")
	}
}
