// Package eventlog provides append-only, structured JSON-lines event
// logging for the service's domain events: catalog syncs, link insertions,
// dismissals, and audit classifications. It is the teacher's compliance
// audit logger (pkg/audit/audit.go) stripped of the GDPR/HIPAA/SOC2
// machinery — that belongs to a graph database handling PHI/PII, not a
// content-site linking service — keeping only what SPEC_FULL.md exercises:
// an immutable, thread-safe, append-only event stream a reader can replay.
package eventlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType classifies one domain event.
type EventType string

const (
	EventCatalogSync      EventType = "catalog_sync"
	EventCatalogDelete    EventType = "catalog_delete"
	EventLinkInserted     EventType = "link_inserted"
	EventLinkDismissed    EventType = "link_dismissed"
	EventLinkRestored     EventType = "link_restored"
	EventAuditClassified  EventType = "audit_classified"
)

// Event is one append-only log entry.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	Resource  string            `json:"resource,omitempty"`   // e.g. "article"
	ResourceID string           `json:"resourceId,omitempty"` // postId, stringified
	Action    string            `json:"action,omitempty"`
	Success   bool              `json:"success"`
	Reason    string            `json:"reason,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Config configures the event logger.
type Config struct {
	Enabled    bool
	LogPath    string
	SyncWrites bool
}

// DefaultConfig returns sensible defaults: enabled, writing to
// ./logs/events.log, fsync after every write.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		LogPath:    "./logs/events.log",
		SyncWrites: true,
	}
}

// Logger appends Events to a JSON-lines file. Safe for concurrent use.
type Logger struct {
	mu       sync.Mutex
	writer   io.Writer
	file     *os.File
	config   Config
	sequence uint64
}

// NewLogger opens (creating if absent) the log file at config.LogPath. If
// config.Enabled is false, it returns a logger that discards every event.
func NewLogger(config Config) (*Logger, error) {
	if !config.Enabled {
		return NewLoggerWithWriter(io.Discard, config), nil
	}
	if dir := filepath.Dir(config.LogPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("eventlog: create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(config.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open log file: %w", err)
	}
	l := NewLoggerWithWriter(f, config)
	l.file = f
	return l, nil
}

// NewLoggerWithWriter builds a Logger over an arbitrary writer, useful for
// tests (bytes.Buffer) or discarding output entirely.
func NewLoggerWithWriter(writer io.Writer, config Config) *Logger {
	return &Logger{writer: writer, config: config}
}

// Log appends event, filling ID/Timestamp if unset.
func (l *Logger) Log(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sequence++
	if event.ID == "" {
		event.ID = fmt.Sprintf("%d-%d", time.Now().UnixNano(), l.sequence)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("eventlog: marshal event: %w", err)
	}
	line = append(line, '\n')
	if _, err := l.writer.Write(line); err != nil {
		return fmt.Errorf("eventlog: write event: %w", err)
	}
	if l.config.SyncWrites && l.file != nil {
		return l.file.Sync()
	}
	return nil
}

// LogCatalogSync records a catalog-sync create/update/delete.
func (l *Logger) LogCatalogSync(action string, postID int64, success bool, reason string) error {
	return l.Log(Event{
		Type:       EventCatalogSync,
		Resource:   "article",
		ResourceID: fmt.Sprintf("%d", postID),
		Action:     action,
		Success:    success,
		Reason:     reason,
	})
}

// LogLinkInserted records a successful auto-insert.
func (l *Logger) LogLinkInserted(sourceID, targetID int64, anchorText string) error {
	return l.Log(Event{
		Type:       EventLinkInserted,
		Resource:   "link",
		ResourceID: fmt.Sprintf("%d->%d", sourceID, targetID),
		Action:     "insert",
		Success:    true,
		Metadata:   map[string]string{"anchorText": anchorText},
	})
}

// LogDismiss records a dismiss/restore mutation.
func (l *Logger) LogDismiss(sourceID, targetID int64, action, reason string) error {
	eventType := EventLinkDismissed
	if action == "restore" {
		eventType = EventLinkRestored
	}
	return l.Log(Event{
		Type:       eventType,
		Resource:   "link",
		ResourceID: fmt.Sprintf("%d->%d", sourceID, targetID),
		Action:     action,
		Success:    true,
		Reason:     reason,
	})
}

// Close flushes and closes the underlying file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
