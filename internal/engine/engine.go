// Package engine runs the background poll loop: it collects a snapshot,
// evaluates it with the two-tier detector and dispatches edge-triggered
// start/end callbacks.
package engine

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tiroq/meetsense/internal/config"
	"github.com/tiroq/meetsense/internal/detector"
	"github.com/tiroq/meetsense/internal/diaglog"
	"github.com/tiroq/meetsense/internal/metrics"
)

// Callback receives the result that caused a transition
type Callback func(detector.DetectionResult)

// Event names used for callback dispatch
const (
	EventStart = "start"
	EventEnd   = "end"
)

// State of the poll loop
type State int

const (
	StateIdle     State = iota // no poll has completed
	StateTracking              // a previous result exists
)

func (s State) String() string {
	if s == StateTracking {
		return "tracking"
	}
	return "idle"
}

// CallbackFailure is a recovered panic from a registered listener
type CallbackFailure struct {
	Event string
	Index int
	Panic interface{}
}

func (f CallbackFailure) Error() string {
	return fmt.Sprintf("%s callback #%d panicked: %v", f.Event, f.Index, f.Panic)
}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Collector      detector.Collector
	Rules          *detector.Rules // nil selects detector.DefaultRules
	PollInterval   time.Duration   // 0 selects config.DefaultPollInterval
	CollectTimeout time.Duration   // 0 disables the per-poll deadline
	Logger         *log.Logger
	DiagLog        *diaglog.Logger
	Metrics        *metrics.Metrics
	Clock          func() time.Time
}

// Engine owns the detection state. Only the poll path writes it.
type Engine struct {
	collector      detector.Collector
	pollInterval   time.Duration
	collectTimeout time.Duration
	logger         *log.Logger
	diag           *diaglog.Logger
	metrics        *metrics.Metrics
	now            func() time.Time

	det atomic.Pointer[detector.Detector]

	mu       sync.RWMutex
	state    State
	previous detector.DetectionResult
	current  detector.DetectionResult

	cbMu    sync.Mutex
	onStart []Callback
	onEnd   []Callback

	busy      atomic.Bool
	startOnce sync.Once
	started   atomic.Bool

	// Signals that failed on the previous poll, used to log only changes
	failing map[string]bool
}

// New validates opts and returns an idle engine
func New(opts Options) (*Engine, error) {
	interval := opts.PollInterval
	if interval == 0 {
		interval = config.DefaultPollInterval
	}
	if err := config.ValidateTiming(interval, opts.CollectTimeout); err != nil {
		return nil, err
	}

	e := &Engine{
		collector:      opts.Collector,
		pollInterval:   interval,
		collectTimeout: opts.CollectTimeout,
		logger:         opts.Logger,
		diag:           opts.DiagLog,
		metrics:        opts.Metrics,
		now:            opts.Clock,
		failing:        make(map[string]bool),
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard, "", 0)
	}
	if e.now == nil {
		e.now = time.Now
	}

	rules := detector.DefaultRules()
	if opts.Rules != nil {
		rules = *opts.Rules
	}
	e.det.Store(detector.New(rules))
	return e, nil
}

// PollInterval returns the fixed cadence of the loop
func (e *Engine) PollInterval() time.Duration {
	return e.pollInterval
}

// Start launches the poll loop once; later calls are no-ops. The loop polls
// immediately and then every PollInterval until ctx is done.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		e.started.Store(true)
		go e.run(ctx)
	})
}

// Started reports whether Start has launched the loop
func (e *Engine) Started() bool {
	return e.started.Load()
}

func (e *Engine) run(ctx context.Context) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	e.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			e.logger.Printf("[SHUTDOWN] Poll loop stopped: %v", ctx.Err())
			return
		case <-ticker.C:
			// time.Ticker drops ticks while Tick runs, so slow polls never stack
			e.Tick(ctx)
		}
	}
}

// Tick runs one poll. It returns false without polling when another poll
// is still in flight.
func (e *Engine) Tick(ctx context.Context) bool {
	if !e.busy.CompareAndSwap(false, true) {
		e.metrics.TickSkipped()
		e.diag.Log(diaglog.LogEntry{Component: diaglog.ComponentEngine, Event: diaglog.EventTickSkipped})
		return false
	}
	defer e.busy.Store(false)

	// Listeners registered after this point apply from the next poll
	e.cbMu.Lock()
	startCbs := append([]Callback(nil), e.onStart...)
	endCbs := append([]Callback(nil), e.onEnd...)
	e.cbMu.Unlock()

	began := e.now()

	collectCtx := ctx
	if e.collectTimeout > 0 {
		var cancel context.CancelFunc
		collectCtx, cancel = context.WithTimeout(ctx, e.collectTimeout)
		defer cancel()
	}
	snap := detector.Collect(collectCtx, e.collector)
	e.recordFailures(snap.Failures)

	result := e.det.Load().Detect(snap)

	e.mu.Lock()
	first := e.state == StateIdle
	prev := e.previous
	e.previous = result
	e.current = result
	e.state = StateTracking
	e.mu.Unlock()

	e.metrics.ObservePoll(e.now().Sub(began), result.Reason, result.Active)

	if first {
		e.logger.Printf("[STARTUP] First poll: active=%v reason=%s", result.Active, result.Reason)
		e.diag.Log(diaglog.LogEntry{
			Component: diaglog.ComponentEngine,
			Event:     diaglog.EventFirstPoll,
			Reason:    result.Reason,
			Payload:   resultPayload(result),
		})
		return true
	}

	switch {
	case !prev.Active && result.Active:
		e.logger.Printf("[EVENT] Meeting started: %s (score %d)", result.Reason, result.Score)
		e.metrics.Transition(metrics.DirectionStart)
		e.diag.Log(diaglog.LogEntry{
			Component: diaglog.ComponentEngine,
			Event:     diaglog.EventMeetingStart,
			Reason:    result.Reason,
			Payload:   resultPayload(result),
		})
		e.dispatch(EventStart, startCbs, result)

	case prev.Active && !result.Active:
		e.logger.Printf("[EVENT] Meeting ended: was %s", prev.Reason)
		e.metrics.Transition(metrics.DirectionEnd)
		e.diag.Log(diaglog.LogEntry{
			Component: diaglog.ComponentEngine,
			Event:     diaglog.EventMeetingEnd,
			Reason:    prev.Reason,
			Payload:   resultPayload(result),
		})
		e.dispatch(EventEnd, endCbs, result)
	}
	return true
}

func (e *Engine) dispatch(event string, cbs []Callback, result detector.DetectionResult) {
	for i, cb := range cbs {
		if err := invoke(event, i, cb, result); err != nil {
			e.logger.Printf("[ERROR] %v", err)
			e.metrics.CallbackFailed(event)
			e.diag.Log(diaglog.LogEntry{
				Component: diaglog.ComponentEngine,
				Event:     diaglog.EventCallbackFailure,
				Reason:    result.Reason,
				Payload: map[string]interface{}{
					"event": event,
					"index": i,
					"panic": fmt.Sprint(err.Panic),
				},
			})
		}
	}
}

func invoke(event string, index int, cb Callback, result detector.DetectionResult) (failure *CallbackFailure) {
	defer func() {
		if r := recover(); r != nil {
			failure = &CallbackFailure{Event: event, Index: index, Panic: r}
		}
	}()
	cb(result)
	return nil
}

func (e *Engine) recordFailures(failures []detector.CollectionFailure) {
	now := make(map[string]bool, len(failures))
	for _, f := range failures {
		now[f.Signal] = true
		e.metrics.CollectionFailed(f.Signal)
		e.diag.Log(diaglog.LogEntry{
			Component: diaglog.ComponentCollector,
			Event:     diaglog.EventCollectionFailure,
			Payload: map[string]interface{}{
				"signal": f.Signal,
				"error":  f.Err.Error(),
			},
		})
		if !e.failing[f.Signal] {
			e.logger.Printf("[WARN] %v (treated as no signal)", f)
		}
	}
	for signal := range e.failing {
		if !now[signal] {
			e.logger.Printf("[INFO] %s collection recovered", signal)
		}
	}
	e.failing = now
}

func resultPayload(r detector.DetectionResult) map[string]interface{} {
	p := map[string]interface{}{
		"active": r.Active,
		"score":  r.Score,
	}
	if r.AppName != "" {
		p["app_name"] = r.AppName
	}
	if r.MeetingURL != "" {
		p["meeting_url"] = r.MeetingURL
	}
	return p
}

// Current returns the last completed result. ok is false before the first
// poll completes.
func (e *Engine) Current() (result detector.DetectionResult, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state == StateIdle {
		return detector.DetectionResult{}, false
	}
	return e.current, true
}

// IsActive reports whether the last completed poll detected a meeting
func (e *Engine) IsActive() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state == StateTracking && e.current.Active
}

// State returns the loop state
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// OnStart registers a listener for inactive to active transitions
func (e *Engine) OnStart(cb Callback) {
	if cb == nil {
		return
	}
	e.cbMu.Lock()
	e.onStart = append(e.onStart, cb)
	e.cbMu.Unlock()
}

// OnEnd registers a listener for active to inactive transitions
func (e *Engine) OnEnd(cb Callback) {
	if cb == nil {
		return
	}
	e.cbMu.Lock()
	e.onEnd = append(e.onEnd, cb)
	e.cbMu.Unlock()
}

// SetRules swaps the detection rules; the next poll uses them
func (e *Engine) SetRules(rules detector.Rules) {
	e.det.Store(detector.New(rules))
}

// Rules returns the rules currently in effect
func (e *Engine) Rules() detector.Rules {
	return e.det.Load().Rules()
}
