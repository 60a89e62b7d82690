package detector

import (
	"context"
	"fmt"
	"time"
)

// Collector supplies point-in-time host observations. Implementations are
// platform specific and may block on OS calls; they should honour ctx.
type Collector interface {
	ListNetworkConnections(ctx context.Context) ([]ConnectionObservation, error)
	ForegroundAppName(ctx context.Context) (string, error)
	RunningProcesses(ctx context.Context) ([]string, error)
	BrowserTabURLs(ctx context.Context) ([]string, error)
	MicrophoneActive(ctx context.Context) (bool, error)
	CameraActive(ctx context.Context) (bool, error)
}

// Signal names used in CollectionFailure
const (
	SignalConnections = "connections"
	SignalForeground  = "foreground_app"
	SignalProcesses   = "processes"
	SignalBrowserTabs = "browser_tabs"
	SignalMicrophone  = "microphone"
	SignalCamera      = "camera"
)

// CollectionFailure records a collector call that failed or timed out.
// The affected field of the Snapshot is left empty.
type CollectionFailure struct {
	Signal string
	Err    error
}

func (f CollectionFailure) Error() string {
	return fmt.Sprintf("collect %s: %v", f.Signal, f.Err)
}

func (f CollectionFailure) Unwrap() error {
	return f.Err
}

// Snapshot is everything collected during one poll
type Snapshot struct {
	Connections   []ConnectionObservation
	ForegroundApp string
	Processes     []string
	BrowserURLs   []string
	Microphone    bool
	Camera        bool
	CollectedAt   time.Time
	Failures      []CollectionFailure
}

// Collect queries every collector method once. A failing call degrades to
// "no signal" for that field and is recorded in Snapshot.Failures; Collect
// itself never fails. A panicking collector is treated the same way.
func Collect(ctx context.Context, c Collector) Snapshot {
	snap := Snapshot{CollectedAt: time.Now()}
	if c == nil {
		return snap
	}

	fail := func(signal string, err error) {
		snap.Failures = append(snap.Failures, CollectionFailure{Signal: signal, Err: err})
	}

	if v, err := guard(func() ([]string, error) { return c.RunningProcesses(ctx) }); err != nil {
		fail(SignalProcesses, err)
	} else {
		snap.Processes = v
	}

	if v, err := guard(func() ([]ConnectionObservation, error) { return c.ListNetworkConnections(ctx) }); err != nil {
		fail(SignalConnections, err)
	} else {
		snap.Connections = v
	}

	if v, err := guard(func() (string, error) { return c.ForegroundAppName(ctx) }); err != nil {
		fail(SignalForeground, err)
	} else {
		snap.ForegroundApp = v
	}

	if v, err := guard(func() ([]string, error) { return c.BrowserTabURLs(ctx) }); err != nil {
		fail(SignalBrowserTabs, err)
	} else {
		snap.BrowserURLs = v
	}

	if v, err := guard(func() (bool, error) { return c.MicrophoneActive(ctx) }); err != nil {
		fail(SignalMicrophone, err)
	} else {
		snap.Microphone = v
	}

	if v, err := guard(func() (bool, error) { return c.CameraActive(ctx) }); err != nil {
		fail(SignalCamera, err)
	} else {
		snap.Camera = v
	}

	return snap
}

// guard runs fn, converting a panic into an error and discarding any value
// returned alongside an error
func guard[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("collector panic: %v", r)
		}
	}()
	v, err = fn()
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}
