// Package diaglog provides structured NDJSON diagnostic logging for meetsense.
// Activated by MEETSENSE_DEBUG=true. When the env var is absent, all Log
// calls are no-ops and no file is created.
package diaglog

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// ── Component labels ─────────────────────────────────────────────────────────

const (
	ComponentEngine    = "polling-engine"
	ComponentCollector = "signal-collector"
	ComponentConfig    = "config-watcher"
	ComponentEventHub  = "event-hub"
	ComponentDaemon    = "meetingd"
)

// ── Event names ──────────────────────────────────────────────────────────────

const (
	EventMeetingStart      = "meeting_start"
	EventMeetingEnd        = "meeting_end"
	EventCallbackFailure   = "callback_failure"
	EventCollectionFailure = "collection_failure"
	EventTickSkipped       = "tick_skipped"
	EventFirstPoll         = "first_poll"
	EventConfigReload      = "config_reload"
	EventConfigRejected    = "config_rejected"
	EventClientConnected   = "client_connected"
	EventSessionOpened     = "session_opened"
	EventSessionClosed     = "session_closed"
)

// DefaultMaxSize caps the log file before it is truncated
const DefaultMaxSize = 10 * 1024 * 1024

// ── LogEntry ─────────────────────────────────────────────────────────────────

// LogEntry is one structured event record written as a single JSON line.
type LogEntry struct {
	Timestamp string      `json:"ts"`                   // RFC3339Nano
	Component string      `json:"component"`            // see Component* constants
	Event     string      `json:"event"`                // see Event* constants
	SessionID string      `json:"session_id,omitempty"` // meeting session, when known
	Reason    string      `json:"reason,omitempty"`     // detection reason
	Payload   interface{} `json:"payload,omitempty"`    // redacted before write
}

// ── Logger ───────────────────────────────────────────────────────────────────

// Logger writes LogEntry values to a rolling NDJSON file. When debug mode is
// disabled every Log call is a no-op. A nil *Logger is valid and disabled.
type Logger struct {
	rw      *rollingWriter
	mu      sync.Mutex
	enabled bool
}

// New opens (or creates) the NDJSON log file at path. If debug mode is
// disabled, path is ignored and a no-op logger is returned.
func New(path string) (*Logger, error) {
	if !IsDebugEnabled() {
		return &Logger{enabled: false}, nil
	}
	return Open(path, DefaultMaxSize)
}

// Open creates an enabled logger regardless of MEETSENSE_DEBUG.
func Open(path string, maxSize int64) (*Logger, error) {
	rw, err := newRollingWriter(path, maxSize)
	if err != nil {
		return nil, err
	}
	return &Logger{rw: rw, enabled: true}, nil
}

// Enabled reports whether entries are written
func (l *Logger) Enabled() bool {
	return l != nil && l.enabled
}

// Log serialises entry to JSON, appends a newline, and writes to the rolling
// file. Sensitive payload fields are redacted before serialisation.
func (l *Logger) Log(entry LogEntry) {
	if !l.Enabled() {
		return
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if entry.Payload != nil {
		entry.Payload = Redact(entry.Payload)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.rw.Write(data)
}

// Close flushes and closes the underlying file. Safe on nil/disabled logger.
func (l *Logger) Close() error {
	if !l.Enabled() || l.rw == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rw.close()
}

// IsDebugEnabled reports whether MEETSENSE_DEBUG is set to "true".
func IsDebugEnabled() bool {
	return os.Getenv("MEETSENSE_DEBUG") == "true"
}

// NewNoOp returns a logger where every Log call is a no-op. Use as a safe
// fallback when New fails (e.g., disk full, permissions error).
func NewNoOp() *Logger {
	return &Logger{enabled: false}
}
