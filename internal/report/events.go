package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of maintenance event
type EventType string

const (
	EventDelete       EventType = "delete"
	EventPrune        EventType = "prune"
	EventImport       EventType = "import"
	EventVaultExport  EventType = "vault_export"
	EventVaultRestore EventType = "vault_restore"
	EventClearCache   EventType = "clear_cache"
	EventError        EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event is one audit record of a destructive or bulk operation.
// Deletes are irreversible, so the engine keeps a trail of what it
// removed and why.
type Event struct {
	Timestamp time.Time         `json:"ts"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	Entity    string            `json:"entity,omitempty"` // session, track, folder, ...
	EntityID  string            `json:"entity_id,omitempty"`
	Records   int               `json:"records,omitempty"`
	Blobs     int               `json:"blobs,omitempty"`
	Bytes     int64             `json:"bytes,omitempty"`
	Duration  int64             `json:"duration_ms,omitempty"`
	Path      string            `json:"path,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	path := filepath.Join(outputDir, fmt.Sprintf("events-%s.jsonl", timestamp))

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogDelete logs a cascade delete
func (l *EventLogger) LogDelete(entity, entityID string, records, blobs int) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventDelete,
		Entity:   entity,
		EntityID: entityID,
		Records:  records,
		Blobs:    blobs,
	})
}

// LogPrune logs a retention-pruner run
func (l *EventLogger) LogPrune(deleted, batches int, cutoff int64, duration time.Duration) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventPrune,
		Records:  deleted,
		Duration: duration.Milliseconds(),
		Extra: map[string]string{
			"batches": fmt.Sprintf("%d", batches),
			"cutoff":  fmt.Sprintf("%d", cutoff),
		},
	})
}

// LogImport logs a local file import
func (l *EventLogger) LogImport(path string, trackID int64, bytes int64) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventImport,
		Entity:   "track",
		EntityID: fmt.Sprintf("%d", trackID),
		Bytes:    bytes,
		Path:     path,
	})
}

// LogVault logs a vault export or restore
func (l *EventLogger) LogVault(event EventType, path string, records int) error {
	return l.Log(&Event{
		Level:   LevelInfo,
		Event:   event,
		Records: records,
		Path:    path,
	})
}

// LogClearCache logs the cached-audio wipe
func (l *EventLogger) LogClearCache(blobs int, bytes int64, sessions int) error {
	return l.Log(&Event{
		Level:   LevelInfo,
		Event:   EventClearCache,
		Records: sessions,
		Blobs:   blobs,
		Bytes:   bytes,
	})
}

// LogError logs a failed operation
func (l *EventLogger) LogError(event EventType, entityID string, err error) error {
	return l.Log(&Event{
		Level:    LevelError,
		Event:    event,
		EntityID: entityID,
		Error:    err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
