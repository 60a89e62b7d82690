package detector

import (
	"testing"
	"time"
)

var (
	zoomMedia  = ConnectionObservation{Protocol: ProtocolUDP, LocalPort: 50123, RemotePort: 8801, RemoteHost: "198.51.100.4", State: StateUnknown}
	teamsMedia = ConnectionObservation{Protocol: ProtocolUDP, LocalPort: 50124, RemotePort: 3478, RemoteHost: "52.112.0.1", State: StateEstablished}
)

func TestDetect_NativeTier(t *testing.T) {
	snap := Snapshot{
		Processes:   []string{"launchd", "zoom.us", "CptHost"},
		Connections: []ConnectionObservation{zoomMedia},
		Microphone:  true,
	}

	got := Detect(snap)
	if !got.Active {
		t.Fatal("expected active meeting")
	}
	if got.Reason != "NativeAppWithNetwork(Zoom)" {
		t.Errorf("reason = %q", got.Reason)
	}
	if got.AppName != "Zoom" {
		t.Errorf("app name = %q", got.AppName)
	}
	if got.MeetingURL != "" {
		t.Errorf("meeting url = %q, want empty", got.MeetingURL)
	}
	if got.Service != ServiceZoom {
		t.Errorf("service = %s", got.Service)
	}
	// meeting app (3) + microphone (2)
	if got.Score != 5 {
		t.Errorf("score = %d, want 5", got.Score)
	}
}

func TestDetect_NativeProcessWithoutTraffic(t *testing.T) {
	snap := Snapshot{
		Processes: []string{"zoom.us", "Microsoft Teams"},
		Connections: []ConnectionObservation{
			{Protocol: ProtocolTCP, RemotePort: 443, RemoteHost: "zoom.us", State: StateEstablished},
		},
	}

	got := Detect(snap)
	if got.Active {
		t.Fatalf("expected inactive, got %+v", got)
	}
	if got.Reason != ReasonNone {
		t.Errorf("reason = %q", got.Reason)
	}
	if !got.Signals.MeetingApp.Active {
		t.Error("meeting app signal should reflect running native client")
	}
	if got.Score != WeightMeetingApp {
		t.Errorf("score = %d, want %d", got.Score, WeightMeetingApp)
	}
}

func TestDetect_TrafficWithoutProcess(t *testing.T) {
	snap := Snapshot{
		Processes:   []string{"Google Chrome"},
		Connections: []ConnectionObservation{zoomMedia, teamsMedia},
	}
	if got := Detect(snap); got.Active {
		t.Fatalf("media traffic alone must not count, got %+v", got)
	}
}

func TestDetect_TierOneBeatsTierTwo(t *testing.T) {
	snap := Snapshot{
		Processes:   []string{"Microsoft Teams"},
		Connections: []ConnectionObservation{teamsMedia},
		BrowserURLs: []string{"https://us02web.zoom.us/j/81234567890"},
	}

	got := Detect(snap)
	if got.Reason != "NativeAppWithNetwork(Teams)" {
		t.Errorf("reason = %q, want NativeAppWithNetwork(Teams)", got.Reason)
	}
	if got.MeetingURL != "" {
		t.Errorf("meeting url = %q, want empty", got.MeetingURL)
	}
}

func TestDetect_NativePriorityOrder(t *testing.T) {
	snap := Snapshot{
		Processes:   []string{"Webex", "Microsoft Teams", "zoom.us"},
		Connections: []ConnectionObservation{zoomMedia, teamsMedia},
	}

	if got := Detect(snap); got.Reason != "NativeAppWithNetwork(Zoom)" {
		t.Errorf("reason = %q, want Zoom first", got.Reason)
	}

	// Without Zoom traffic Teams is next in line, even though Webex is also
	// satisfied by the STUN connection
	snap.Connections = []ConnectionObservation{teamsMedia}
	if got := Detect(snap); got.Reason != "NativeAppWithNetwork(Teams)" {
		t.Errorf("reason = %q, want Teams", got.Reason)
	}
}

func TestDetect_BrowserTier(t *testing.T) {
	snap := Snapshot{
		Processes: []string{"Google Chrome"},
		BrowserURLs: []string{
			"https://meet.google.com/landing",
			"https://mail.google.com/",
			"https://meet.google.com/cih-fjjf-pfd",
			"https://us02web.zoom.us/j/81234567890",
		},
		Camera: true,
	}

	got := Detect(snap)
	if !got.Active {
		t.Fatal("expected active meeting")
	}
	if got.Reason != "BrowserUrl(GoogleMeet)" {
		t.Errorf("reason = %q", got.Reason)
	}
	if got.MeetingURL != "https://meet.google.com/cih-fjjf-pfd" {
		t.Errorf("meeting url = %q", got.MeetingURL)
	}
	if got.AppName != "" {
		t.Errorf("app name = %q, want empty for browser tier", got.AppName)
	}
	// meeting app (3) + camera (1)
	if got.Score != 4 {
		t.Errorf("score = %d, want 4", got.Score)
	}
}

func TestDetect_NoMeeting(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	snap := Snapshot{
		ForegroundApp: "Zoom Meeting",
		Microphone:    true,
		Camera:        true,
		BrowserURLs:   []string{"https://meet.google.com/new"},
		CollectedAt:   now,
	}

	got := Detect(snap)
	if got.Active {
		t.Fatal("expected inactive")
	}
	if got.Reason != "NoMeetingDetected" {
		t.Errorf("reason = %q", got.Reason)
	}
	if !got.EvaluatedAt.Equal(now) {
		t.Errorf("evaluated at = %v, want %v", got.EvaluatedAt, now)
	}
	// High score, still inactive: score never decides
	if got.Score != WeightMeetingWindow+WeightMicrophone+WeightCamera {
		t.Errorf("score = %d", got.Score)
	}
	if got.Signals.MeetingApp.Weight != 3 || got.Signals.MeetingWindow.Weight != 2 ||
		got.Signals.Microphone.Weight != 2 || got.Signals.Camera.Weight != 1 {
		t.Errorf("unexpected weights: %+v", got.Signals)
	}
}

func TestDetect_EmptySnapshot(t *testing.T) {
	got := Detect(Snapshot{})
	if got.Active || got.Score != 0 || got.Reason != ReasonNone {
		t.Errorf("unexpected result for empty snapshot: %+v", got)
	}
	if got.EvaluatedAt.IsZero() {
		t.Error("evaluated at should be stamped")
	}
}

func TestDetect_CustomRules(t *testing.T) {
	rules := DefaultRules()
	rules.ProcessNames[ServiceWebex] = []string{"CiscoCollabHost"}
	d := New(rules)

	snap := Snapshot{
		Processes: []string{"CiscoCollabHost"},
		Connections: []ConnectionObservation{
			{Protocol: ProtocolTCP, RemotePort: 443, RemoteHost: "mccsjc.webex.com", State: StateEstablished},
		},
	}
	if got := d.Detect(snap); got.Reason != "NativeAppWithNetwork(Webex)" {
		t.Errorf("reason = %q", got.Reason)
	}
}

func TestNativeProcessRunning_SkipsBrowsers(t *testing.T) {
	rules := DefaultRules()
	// "Microsoft Teams" pattern must not pick up Edge's helper name
	running, name := rules.NativeProcessRunning(ServiceMicrosoftTeams, []string{"Microsoft Edge Helper", "teams-browser-chrome"})
	if running {
		t.Errorf("browser process %q treated as native Teams", name)
	}

	running, name = rules.NativeProcessRunning(ServiceMicrosoftTeams, []string{"MSTeams"})
	if !running || name != "MSTeams" {
		t.Errorf("got (%v, %q), want MSTeams", running, name)
	}
}
