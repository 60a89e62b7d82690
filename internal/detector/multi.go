package detector

import "time"

// Detector combines the native-app and browser tiers into one verdict
type Detector struct {
	rules Rules
}

// New creates a detector using rules
func New(rules Rules) *Detector {
	return &Detector{rules: rules}
}

// NewDefault creates a detector with DefaultRules
func NewDefault() *Detector {
	return New(DefaultRules())
}

// Rules returns the rules the detector was built with
func (d *Detector) Rules() Rules {
	return d.rules
}

// Detect evaluates a snapshot. Tier 1 (native app + meeting traffic) is
// checked before Tier 2 (browser tab URL); the first qualifying service wins.
// Score is informational and never affects Active.
func (d *Detector) Detect(snap Snapshot) DetectionResult {
	anyNative := false
	for _, svc := range NativeServices() {
		running, _ := d.rules.NativeProcessRunning(svc, snap.Processes)
		if running {
			anyNative = true
			break
		}
	}

	result := DetectionResult{
		Reason:      ReasonNone,
		EvaluatedAt: snap.CollectedAt,
		Signals: SignalsBreakdown{
			MeetingApp:    SignalDetails{Active: anyNative, Weight: WeightMeetingApp},
			MeetingWindow: SignalDetails{Active: d.rules.WindowMatches(snap.ForegroundApp), Weight: WeightMeetingWindow},
			Microphone:    SignalDetails{Active: snap.Microphone, Weight: WeightMicrophone},
			Camera:        SignalDetails{Active: snap.Camera, Weight: WeightCamera},
		},
	}
	if result.EvaluatedAt.IsZero() {
		result.EvaluatedAt = time.Now()
	}

	// Tier 1: native clients with live meeting traffic
	if svc, ok := d.nativeTier(snap); ok {
		result.Active = true
		result.Service = svc
		result.AppName = svc.AppName()
		result.Reason = ReasonNativeApp(svc)
	} else if url, svc, ok := d.browserTier(snap); ok {
		// Tier 2: browser tab on a meeting URL
		result.Active = true
		result.Service = svc
		result.MeetingURL = url
		result.Reason = ReasonBrowserURL(svc)
		result.Signals.MeetingApp.Active = true
	}

	result.Score = result.Signals.Score()
	return result
}

func (d *Detector) nativeTier(snap Snapshot) (Service, bool) {
	for _, svc := range NativeServices() {
		running, _ := d.rules.NativeProcessRunning(svc, snap.Processes)
		if !running {
			continue
		}
		if d.rules.EvaluateNetwork(snap.Connections, svc) {
			return svc, true
		}
	}
	return "", false
}

func (d *Detector) browserTier(snap Snapshot) (string, Service, bool) {
	for _, url := range snap.BrowserURLs {
		if svc, ok := MatchURL(url); ok {
			return url, svc, true
		}
	}
	return "", "", false
}

// Detect evaluates snap with the default rules
func Detect(snap Snapshot) DetectionResult {
	return NewDefault().Detect(snap)
}
