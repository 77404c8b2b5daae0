package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"tilerealm.gg/internal/sim/zone"
)

// segmentWriter appends JSON lines to zstd-compressed segment files,
// rotating to a new segment per UTC day.
type segmentWriter struct {
	dir    string
	prefix string
	now    func() time.Time

	mu     sync.Mutex
	curDay string
	f      *os.File
	enc    *zstd.Encoder
	buf    *bufio.Writer
}

func newSegmentWriter(dir, prefix string) *segmentWriter {
	return &segmentWriter{dir: dir, prefix: prefix, now: time.Now}
}

func (w *segmentWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *segmentWriter) Append(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	day := w.now().UTC().Format("2006-01-02")
	if day != w.curDay {
		if err := w.openSegment(day); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.buf.Write(b); err != nil {
		return err
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return err
	}
	return w.buf.Flush()
}

func (w *segmentWriter) openSegment(day string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	name := filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, day))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.buf = bufio.NewWriterSize(enc, 64*1024)
	w.curDay = day
	return nil
}

func (w *segmentWriter) closeLocked() error {
	var errEnc error
	if w.buf != nil {
		_ = w.buf.Flush()
	}
	if w.enc != nil {
		errEnc = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.buf = nil
	return errEnc
}

// TickLogger records one entry per simulation tick.
type TickLogger struct{ w *segmentWriter }

func NewTickLogger(dataDir string) *TickLogger {
	return &TickLogger{w: newSegmentWriter(filepath.Join(dataDir, "ticks"), "ticks")}
}

func (l *TickLogger) WriteTick(v zone.TickLogEntry) error { return l.w.Append(v) }
func (l *TickLogger) Close() error                        { return l.w.Close() }

// AuditLogger records anti-cheat audit entries.
type AuditLogger struct{ w *segmentWriter }

func NewAuditLogger(dataDir string) *AuditLogger {
	return &AuditLogger{w: newSegmentWriter(filepath.Join(dataDir, "audit"), "audit")}
}

func (l *AuditLogger) WriteAudit(v zone.AuditEntry) error { return l.w.Append(v) }
func (l *AuditLogger) Close() error                       { return l.w.Close() }
