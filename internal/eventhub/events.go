package eventhub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tiroq/meetsense/internal/detector"
	"github.com/tiroq/meetsense/internal/diaglog"
)

// EventType identifies the kind of WebSocket event
type EventType string

const (
	EventStatus       EventType = "status"
	EventMeetingStart EventType = "meeting_start"
	EventMeetingEnd   EventType = "meeting_end"
)

// Event is the envelope of every message sent to clients. Result is nil in
// a status event sent before the first poll.
type Event struct {
	Type      EventType                 `json:"type"`
	TS        string                    `json:"ts"`
	SessionID string                    `json:"session_id,omitempty"`
	Result    *detector.DetectionResult `json:"result"`
}

// NowTS returns the current UTC time in RFC 3339 nano format
func NowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Broadcaster is the part of Hub the publisher needs
type Broadcaster interface {
	BroadcastJSON(v any)
}

// Publisher turns engine transitions into events. A session id is minted
// on every start and carried by the matching end. A meeting already running
// when detection began gets its id from the first status or end event.
type Publisher struct {
	out  Broadcaster
	diag *diaglog.Logger

	mu      sync.Mutex
	session string
}

// NewPublisher returns a publisher writing to out. diag may be nil.
func NewPublisher(out Broadcaster, diag *diaglog.Logger) *Publisher {
	return &Publisher{out: out, diag: diag}
}

// MeetingStarted is an engine start callback
func (p *Publisher) MeetingStarted(r detector.DetectionResult) {
	p.mu.Lock()
	p.session = uuid.New().String()
	id := p.session
	p.mu.Unlock()

	p.logSession(diaglog.EventSessionOpened, id, r)
	p.out.BroadcastJSON(Event{Type: EventMeetingStart, TS: NowTS(), SessionID: id, Result: &r})
}

// MeetingEnded is an engine end callback
func (p *Publisher) MeetingEnded(r detector.DetectionResult) {
	p.mu.Lock()
	id := p.session
	if id == "" {
		id = uuid.New().String()
	}
	p.session = ""
	p.mu.Unlock()

	p.logSession(diaglog.EventSessionClosed, id, r)
	p.out.BroadcastJSON(Event{Type: EventMeetingEnd, TS: NowTS(), SessionID: id, Result: &r})
}

func (p *Publisher) logSession(event, id string, r detector.DetectionResult) {
	p.diag.Log(diaglog.LogEntry{
		Component: diaglog.ComponentEventHub,
		Event:     event,
		SessionID: id,
		Reason:    r.Reason,
	})
}

// SessionID returns the id of the meeting in progress, if any
func (p *Publisher) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Status builds the event sent to newly connected clients. An active
// result without a session opens one.
func (p *Publisher) Status(r *detector.DetectionResult) Event {
	p.mu.Lock()
	opened := false
	if r != nil && r.Active && p.session == "" {
		p.session = uuid.New().String()
		opened = true
	}
	id := p.session
	p.mu.Unlock()

	if opened {
		p.logSession(diaglog.EventSessionOpened, id, *r)
	}
	return Event{Type: EventStatus, TS: NowTS(), SessionID: id, Result: r}
}
