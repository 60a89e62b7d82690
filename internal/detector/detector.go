package detector

import (
	"fmt"
	"time"
)

// Service identifies a video conferencing service
type Service string

const (
	ServiceZoom           Service = "zoom"
	ServiceGoogleMeet     Service = "google_meet"
	ServiceMicrosoftTeams Service = "teams"
	ServiceWebex          Service = "webex"
)

// Services returns every service in browser-tier priority order
func Services() []Service {
	return []Service{ServiceZoom, ServiceGoogleMeet, ServiceMicrosoftTeams, ServiceWebex}
}

// NativeServices returns the services that ship a desktop client, in
// native-tier priority order
func NativeServices() []Service {
	return []Service{ServiceZoom, ServiceMicrosoftTeams, ServiceWebex}
}

// ParseService maps a config identifier ("zoom", "teams", ...) to a Service
func ParseService(s string) (Service, bool) {
	for _, svc := range Services() {
		if string(svc) == s {
			return svc, true
		}
	}
	return "", false
}

// ReasonName is the token embedded in DetectionResult.Reason
func (s Service) ReasonName() string {
	switch s {
	case ServiceZoom:
		return "Zoom"
	case ServiceGoogleMeet:
		return "GoogleMeet"
	case ServiceMicrosoftTeams:
		return "Teams"
	case ServiceWebex:
		return "Webex"
	}
	return "Unknown"
}

// AppName is the human readable client name reported as DetectionResult.AppName
func (s Service) AppName() string {
	switch s {
	case ServiceZoom:
		return "Zoom"
	case ServiceGoogleMeet:
		return "Google Meet"
	case ServiceMicrosoftTeams:
		return "Microsoft Teams"
	case ServiceWebex:
		return "Webex"
	}
	return ""
}

// IsNative reports whether the service has a native-app detection tier
func (s Service) IsNative() bool {
	return s == ServiceZoom || s == ServiceMicrosoftTeams || s == ServiceWebex
}

// Protocol is the transport of an observed connection
type Protocol string

const (
	ProtocolTCP Protocol = "TCP"
	ProtocolUDP Protocol = "UDP"
)

// ConnState is the socket state of an observed connection
type ConnState string

const (
	StateUnknown     ConnState = "UNKNOWN"
	StateEstablished ConnState = "ESTABLISHED"
	StateClosed      ConnState = "CLOSED"
)

// ConnectionObservation is one socket seen during a poll
type ConnectionObservation struct {
	Protocol   Protocol  `json:"protocol"`
	LocalPort  int       `json:"local_port"`
	RemotePort int       `json:"remote_port"`
	RemoteHost string    `json:"remote_host,omitempty"` // hostname or IP, empty when unknown
	State      ConnState `json:"state"`
}

func (c ConnectionObservation) String() string {
	host := c.RemoteHost
	if host == "" {
		host = "*"
	}
	return fmt.Sprintf("%s :%d->%s:%d (%s)", c.Protocol, c.LocalPort, host, c.RemotePort, c.State)
}

// Signal weights. Fixed; they only feed the informational score.
const (
	WeightMeetingApp    = 3
	WeightMeetingWindow = 2
	WeightMicrophone    = 2
	WeightCamera        = 1
)

// SignalDetails is the on/off state of one contributing signal
type SignalDetails struct {
	Active bool `json:"active"`
	Weight int  `json:"weight"`
}

// SignalsBreakdown explains a DetectionResult. It never decides activity.
type SignalsBreakdown struct {
	MeetingApp    SignalDetails `json:"meeting_app"`
	MeetingWindow SignalDetails `json:"meeting_window"`
	Microphone    SignalDetails `json:"microphone"`
	Camera        SignalDetails `json:"camera"`
}

// Score sums the weights of the active signals
func (b SignalsBreakdown) Score() int {
	score := 0
	for _, s := range []SignalDetails{b.MeetingApp, b.MeetingWindow, b.Microphone, b.Camera} {
		if s.Active {
			score += s.Weight
		}
	}
	return score
}

// Reason strings
const (
	ReasonNone = "NoMeetingDetected"
)

// ReasonNativeApp formats the Tier 1 reason for svc
func ReasonNativeApp(svc Service) string {
	return "NativeAppWithNetwork(" + svc.ReasonName() + ")"
}

// ReasonBrowserURL formats the Tier 2 reason for svc
func ReasonBrowserURL(svc Service) string {
	return "BrowserUrl(" + svc.ReasonName() + ")"
}

// DetectionResult is the verdict of a single poll
type DetectionResult struct {
	Active      bool             `json:"active"`
	Score       int              `json:"score"`                 // Diagnostics only
	AppName     string           `json:"app_name,omitempty"`    // Native client, Tier 1 only
	Reason      string           `json:"reason"`                // e.g. NativeAppWithNetwork(Zoom)
	MeetingURL  string           `json:"meeting_url,omitempty"` // Tier 2 only
	Service     Service          `json:"service,omitempty"`     // Matched service
	Signals     SignalsBreakdown `json:"signals"`
	EvaluatedAt time.Time        `json:"evaluated_at"`
}
