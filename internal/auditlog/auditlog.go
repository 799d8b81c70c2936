package auditlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/safedep/blpfs/label"
)

// The audit log is the authoritative journal of policy decisions: one
// line per mediated decision, append-only. Records are fsync'ed as they
// are written so a crash after an operation completes cannot lose the
// record of that operation.

// Status values recorded per decision.
const (
	StatusGranted = "GRANTED"
	StatusDenied  = "DENIED"
	StatusError   = "ERROR"
)

// Record is one audit entry.
type Record struct {
	Timestamp time.Time
	User      string
	Level     label.Sensitivity
	Action    string
	Path      string
	Status    string

	// Extra annotates the status: the denial reason, the downgrade
	// pair, or a substrate error description.
	Extra string
}

// Line renders the record in the on-disk format:
// <RFC3339 timestamp> | <user> - <level> | <action> | <path> | <status>
func (r Record) Line() string {
	status := r.Status
	if r.Extra != "" {
		status = fmt.Sprintf("%s (%s)", r.Status, r.Extra)
	}

	return fmt.Sprintf("%s | %s - %s | %s | %s | %s",
		r.Timestamp.Format(time.RFC3339), r.User, r.Level, r.Action, r.Path, status)
}

// Logger appends audit records to a file.
type Logger struct {
	file   *os.File
	mu     sync.Mutex
	active bool
}

// Open creates (or appends to) the audit log at path.
func Open(path string) (*Logger, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create audit log directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	return &Logger{file: file, active: true}, nil
}

// Log appends one record. The write is flushed to stable storage before
// returning: the mediator reports an operation's outcome to the caller
// only after its record is durable.
func (l *Logger) Log(record Record) error {
	if l == nil || !l.active {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	if _, err := l.file.WriteString(record.Line() + "\n"); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}

	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit log: %w", err)
	}

	return nil
}

// Close closes the underlying file. Further Log calls become no-ops.
func (l *Logger) Close() error {
	if l == nil || !l.active {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.active = false
	return l.file.Close()
}
