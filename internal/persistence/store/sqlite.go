package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"tilerealm.gg/internal/sim/zone"
)

// SQLiteStore persists participant checkpoints and violation records.
// Writes go through a buffered channel drained by a single goroutine so
// the simulation never waits on sqlite.
type SQLiteStore struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropCheckpoint atomic.Uint64
	dropViolation  atomic.Uint64
}

type reqKind int

const (
	reqCheckpoint reqKind = iota + 1
	reqViolation
)

type req struct {
	kind reqKind

	checkpoint zone.Checkpoint
	violation  zone.AuditEntry
}

func Open(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore{
		db: db,
		// Checkpoint bursts scale with the participant count on the
		// checkpoint tick; size for a few thousand participants.
		ch: make(chan req, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits an append-style workload.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS checkpoints (
			participant_id TEXT PRIMARY KEY,
			map_id TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			tick INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS violations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			participant_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			total INTEGER NOT NULL,
			at_unix_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_violations_participant
			ON violations(participant_id, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Checkpoint enqueues an upsert of the participant's last known position.
// Dropped (and counted) when the queue is full.
func (s *SQLiteStore) Checkpoint(c zone.Checkpoint) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqCheckpoint, checkpoint: c}:
	default:
		s.dropCheckpoint.Add(1)
	}
}

func (s *SQLiteStore) RecordViolation(a zone.AuditEntry) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqViolation, violation: a}:
	default:
		s.dropViolation.Add(1)
	}
}

// LoadCheckpoint returns the stored position for a participant, or ok=false.
func (s *SQLiteStore) LoadCheckpoint(participantID string) (zone.Checkpoint, bool, error) {
	var c zone.Checkpoint
	row := s.db.QueryRow(
		`SELECT participant_id, map_id, x, y, tick FROM checkpoints WHERE participant_id=?`,
		participantID)
	if err := row.Scan(&c.ParticipantID, &c.MapID, &c.X, &c.Y, &c.Tick); err != nil {
		if err == sql.ErrNoRows {
			return zone.Checkpoint{}, false, nil
		}
		return zone.Checkpoint{}, false, err
	}
	return c, true, nil
}

type Stats struct {
	QueueDepth     int    `json:"queue_depth"`
	QueueCapacity  int    `json:"queue_capacity"`
	DropCheckpoint uint64 `json:"drop_checkpoint_total"`
	DropViolation  uint64 `json:"drop_violation_total"`
}

func (s *SQLiteStore) Stats() Stats {
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropCheckpoint: s.dropCheckpoint.Load(),
		DropViolation:  s.dropViolation.Load(),
	}
}

func (s *SQLiteStore) loop() {
	for r := range s.ch {
		switch r.kind {
		case reqCheckpoint:
			s.writeCheckpoint(r.checkpoint)
		case reqViolation:
			s.writeViolation(r.violation)
		}
	}
}

func (s *SQLiteStore) writeCheckpoint(c zone.Checkpoint) {
	_, _ = s.db.Exec(
		`INSERT INTO checkpoints(participant_id, map_id, x, y, tick)
		 VALUES(?,?,?,?,?)
		 ON CONFLICT(participant_id) DO UPDATE SET
			map_id=excluded.map_id,
			x=excluded.x,
			y=excluded.y,
			tick=excluded.tick`,
		c.ParticipantID, c.MapID, c.X, c.Y, c.Tick)
}

func (s *SQLiteStore) writeViolation(a zone.AuditEntry) {
	_, _ = s.db.Exec(
		`INSERT INTO violations(tick, participant_id, kind, detail, x, y, total, at_unix_ms)
		 VALUES(?,?,?,?,?,?,?,?)`,
		a.Tick, a.ParticipantID, a.Kind, a.Detail, a.X, a.Y, a.Violations, a.AtUnixMs)
}
