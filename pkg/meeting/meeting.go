// Package meeting is the public entry point of meetsense. Init starts a
// single background poll loop; the query functions read the last completed
// result and never block on OS calls.
//
//	if err := meeting.Init(); err != nil {
//		log.Fatal(err)
//	}
//	meeting.OnMeetingStart(func(r meeting.DetectionResult) {
//		log.Printf("meeting started: %s", r.Reason)
//	})
package meeting

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tiroq/meetsense/internal/collector"
	"github.com/tiroq/meetsense/internal/config"
	"github.com/tiroq/meetsense/internal/detector"
	"github.com/tiroq/meetsense/internal/diaglog"
	"github.com/tiroq/meetsense/internal/engine"
	"github.com/tiroq/meetsense/internal/metrics"
)

// Re-exported so callers need not import internal packages
type (
	DetectionResult    = detector.DetectionResult
	SignalsBreakdown   = detector.SignalsBreakdown
	SignalDetails      = detector.SignalDetails
	Rules              = detector.Rules
	Collector          = detector.Collector
	ConfigurationError = config.ConfigurationError
)

// Callback receives the result that caused a transition
type Callback func(DetectionResult)

// ErrNotInitialized is returned by operations that need a running engine
var ErrNotInitialized = errors.New("meeting: Init has not completed")

type settings struct {
	ctx            context.Context
	collector      detector.Collector
	pollInterval   time.Duration
	collectTimeout time.Duration
	rules          *detector.Rules
	logger         *log.Logger
	diag           *diaglog.Logger
	metrics        *metrics.Metrics
}

// Option customises Init
type Option func(*settings)

// WithContext bounds the poll loop; by default it runs for process lifetime
func WithContext(ctx context.Context) Option {
	return func(s *settings) { s.ctx = ctx }
}

// WithCollector replaces the platform collector
func WithCollector(c Collector) Option {
	return func(s *settings) { s.collector = c }
}

// WithPollInterval sets the cadence (default 2s, 100ms to 60s)
func WithPollInterval(d time.Duration) Option {
	return func(s *settings) { s.pollInterval = d }
}

// WithCollectTimeout bounds the collector calls of one poll
func WithCollectTimeout(d time.Duration) Option {
	return func(s *settings) { s.collectTimeout = d }
}

// WithRules replaces the built-in process names and media domains
func WithRules(r Rules) Option {
	return func(s *settings) { s.rules = &r }
}

// WithConfig applies the detection section of a loaded config
func WithConfig(cfg config.DetectionConfig) Option {
	return func(s *settings) {
		s.pollInterval = cfg.PollInterval()
		s.collectTimeout = cfg.CollectTimeout()
		rules := cfg.DetectorRules()
		s.rules = &rules
	}
}

// WithLogger routes operational logs; discarded by default
func WithLogger(l *log.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithDiagLog enables the NDJSON diagnostic log
func WithDiagLog(l *diaglog.Logger) Option {
	return func(s *settings) { s.diag = l }
}

// WithMetrics enables Prometheus instrumentation
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

var (
	mu  sync.Mutex
	eng *engine.Engine

	// Listeners registered before Init are attached when the engine exists
	pendingStart []Callback
	pendingEnd   []Callback
)

// Init builds the engine and starts the poll loop. Calling it again after
// success is a no-op and ignores opts. A failed Init (for example a
// *ConfigurationError) leaves nothing running and may be retried.
func Init(opts ...Option) error {
	mu.Lock()
	defer mu.Unlock()

	if eng != nil {
		return nil
	}

	s := settings{
		ctx:            context.Background(),
		collectTimeout: config.DefaultCollectTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.pollInterval != 0 && s.collectTimeout > s.pollInterval {
		s.collectTimeout = s.pollInterval
	}

	if s.collector == nil {
		copts := collector.Options{DevToolsAddr: collector.DefaultDevToolsAddr}
		if s.rules != nil {
			copts.CameraProcess = s.rules.IsMeetingProcess
		}
		c, err := collector.New(copts)
		if err != nil {
			return errors.Wrap(err, "meeting: create collector")
		}
		s.collector = c
	}

	e, err := engine.New(engine.Options{
		Collector:      s.collector,
		Rules:          s.rules,
		PollInterval:   s.pollInterval,
		CollectTimeout: s.collectTimeout,
		Logger:         s.logger,
		DiagLog:        s.diag,
		Metrics:        s.metrics,
	})
	if err != nil {
		return err
	}

	for _, cb := range pendingStart {
		e.OnStart(engine.Callback(cb))
	}
	for _, cb := range pendingEnd {
		e.OnEnd(engine.Callback(cb))
	}
	pendingStart, pendingEnd = nil, nil

	eng = e
	eng.Start(s.ctx)
	return nil
}

func current() *engine.Engine {
	mu.Lock()
	defer mu.Unlock()
	return eng
}

// IsMeetingActive reports the verdict of the last completed poll. It is
// false before Init or before the first poll completes.
func IsMeetingActive() bool {
	e := current()
	return e != nil && e.IsActive()
}

// LastDetectionDetails returns a copy of the last completed result, or nil
// when no poll has completed yet
func LastDetectionDetails() *DetectionResult {
	e := current()
	if e == nil {
		return nil
	}
	r, ok := e.Current()
	if !ok {
		return nil
	}
	return &r
}

// OnMeetingStart registers cb for inactive to active transitions. A
// listener registered during a poll takes effect from the next poll.
func OnMeetingStart(cb Callback) {
	if cb == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	if eng == nil {
		pendingStart = append(pendingStart, cb)
		return
	}
	eng.OnStart(engine.Callback(cb))
}

// OnMeetingEnd registers cb for active to inactive transitions
func OnMeetingEnd(cb Callback) {
	if cb == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	if eng == nil {
		pendingEnd = append(pendingEnd, cb)
		return
	}
	eng.OnEnd(engine.Callback(cb))
}

// UpdateRules swaps the detection rules used from the next poll on
func UpdateRules(r Rules) error {
	e := current()
	if e == nil {
		return ErrNotInitialized
	}
	e.SetRules(r)
	return nil
}

// PollInterval returns the cadence fixed at Init, or 0 before Init
func PollInterval() time.Duration {
	e := current()
	if e == nil {
		return 0
	}
	return e.PollInterval()
}

// DefaultRules returns the built-in rules
func DefaultRules() Rules {
	return detector.DefaultRules()
}
