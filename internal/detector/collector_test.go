package detector

import (
	"context"
	"errors"
	"testing"
)

type stubCollector struct {
	conns      []ConnectionObservation
	foreground string
	procs      []string
	urls       []string
	mic, cam   bool

	connsErr, foregroundErr, procsErr, urlsErr, micErr, camErr error
	panicOnURLs                                                bool
}

func (s *stubCollector) ListNetworkConnections(context.Context) ([]ConnectionObservation, error) {
	return s.conns, s.connsErr
}

func (s *stubCollector) ForegroundAppName(context.Context) (string, error) {
	return s.foreground, s.foregroundErr
}

func (s *stubCollector) RunningProcesses(context.Context) ([]string, error) {
	return s.procs, s.procsErr
}

func (s *stubCollector) BrowserTabURLs(context.Context) ([]string, error) {
	if s.panicOnURLs {
		panic("applescript exploded")
	}
	return s.urls, s.urlsErr
}

func (s *stubCollector) MicrophoneActive(context.Context) (bool, error) {
	return s.mic, s.micErr
}

func (s *stubCollector) CameraActive(context.Context) (bool, error) {
	return s.cam, s.camErr
}

func TestCollect_AllSignals(t *testing.T) {
	c := &stubCollector{
		conns:      []ConnectionObservation{zoomMedia},
		foreground: "zoom.us",
		procs:      []string{"zoom.us"},
		urls:       []string{"https://example.com"},
		mic:        true,
		cam:        true,
	}

	snap := Collect(context.Background(), c)
	if len(snap.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", snap.Failures)
	}
	if len(snap.Connections) != 1 || snap.ForegroundApp != "zoom.us" || len(snap.Processes) != 1 ||
		len(snap.BrowserURLs) != 1 || !snap.Microphone || !snap.Camera {
		t.Errorf("snapshot incomplete: %+v", snap)
	}
	if snap.CollectedAt.IsZero() {
		t.Error("collected at not set")
	}
}

func TestCollect_FailuresDegradeToNoSignal(t *testing.T) {
	boom := errors.New("lsof timed out")
	c := &stubCollector{
		conns:       []ConnectionObservation{zoomMedia},
		connsErr:    boom,
		procs:       []string{"zoom.us"},
		mic:         true,
		micErr:      errors.New("pactl missing"),
		panicOnURLs: true,
	}

	snap := Collect(context.Background(), c)

	if snap.Connections != nil {
		t.Errorf("connections should be empty after failure, got %v", snap.Connections)
	}
	if snap.Microphone {
		t.Error("microphone should default to false after failure")
	}
	if snap.BrowserURLs != nil {
		t.Error("browser urls should be empty after panic")
	}
	if len(snap.Processes) != 1 {
		t.Error("successful signals must still be collected")
	}

	signals := map[string]bool{}
	for _, f := range snap.Failures {
		signals[f.Signal] = true
	}
	for _, want := range []string{SignalConnections, SignalMicrophone, SignalBrowserTabs} {
		if !signals[want] {
			t.Errorf("missing failure for %s in %v", want, snap.Failures)
		}
	}
	if len(snap.Failures) != 3 {
		t.Errorf("got %d failures, want 3", len(snap.Failures))
	}

	var cf CollectionFailure
	if !errors.As(snap.Failures[0], &cf) {
		t.Fatal("failure should be a CollectionFailure")
	}
	if !errors.Is(snap.Failures[0], boom) {
		t.Errorf("connections failure should wrap cause, got %v", snap.Failures[0])
	}

	// Degraded tick still yields a valid, inactive verdict
	if got := Detect(snap); got.Active {
		t.Errorf("degraded snapshot should be inactive, got %+v", got)
	}
}

func TestCollect_NilCollector(t *testing.T) {
	snap := Collect(context.Background(), nil)
	if len(snap.Failures) != 0 || snap.Processes != nil {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}
