package detector

import (
	"strings"
)

// Rules configures which processes and remote hosts count as evidence for
// each native service
type Rules struct {
	ProcessNames map[Service][]string // Case-insensitive substrings of process names
	MediaDomains map[Service][]string // Meeting media hosts (exact or subdomain)
	WindowHints  []string             // Foreground app substrings for the window signal
}

// DefaultRules returns the built-in process names, media domains and window hints
func DefaultRules() Rules {
	return Rules{
		ProcessNames: map[Service][]string{
			ServiceZoom:           {"zoom.us", "zoom", "ZoomOpener", "zTsc", "CptHost"},
			ServiceMicrosoftTeams: {"Microsoft Teams", "MSTeams", "ms-teams", "teams"},
			ServiceWebex:          {"Webex", "webex", "webexmta", "Cisco Webex"},
		},
		MediaDomains: map[Service][]string{
			ServiceMicrosoftTeams: {"teams.microsoft.com", "teams.live.com", "office.com"},
			ServiceWebex:          {"webex.com", "cisco.com"},
		},
		WindowHints: []string{
			"meeting", "call", "conference", "webex", "zoom", "teams",
			"google meet", "hangouts", "video call", "audio call",
		},
	}
}

// browserNames are excluded from native app matching; browsers are Tier 2
var browserNames = []string{
	"google chrome", "chrome", "chromium", "microsoft edge", "msedge",
	"safari", "firefox", "brave", "arc", "opera", "vivaldi",
}

// IsBrowserProcess reports whether name looks like a web browser
func IsBrowserProcess(name string) bool {
	lower := strings.ToLower(name)
	for _, b := range browserNames {
		if b == "arc" {
			// Too short for substring matching ("search", "archive")
			if lower == b {
				return true
			}
			continue
		}
		if strings.Contains(lower, b) {
			return true
		}
	}
	return false
}

// NativeProcessRunning reports whether any of processes belongs to the
// native client of svc. Returns the first matching process name.
func (r Rules) NativeProcessRunning(svc Service, processes []string) (bool, string) {
	patterns := r.ProcessNames[svc]
	if len(patterns) == 0 {
		return false, ""
	}

	for _, proc := range processes {
		if proc == "" || IsBrowserProcess(proc) {
			continue
		}
		procLower := strings.ToLower(proc)
		for _, pattern := range patterns {
			if pattern != "" && strings.Contains(procLower, strings.ToLower(pattern)) {
				return true, proc
			}
		}
	}
	return false, ""
}

// IsMeetingProcess reports whether name is a browser or the native client
// of any service
func (r Rules) IsMeetingProcess(name string) bool {
	if name == "" {
		return false
	}
	if IsBrowserProcess(name) {
		return true
	}
	for _, svc := range NativeServices() {
		if ok, _ := r.NativeProcessRunning(svc, []string{name}); ok {
			return true
		}
	}
	return false
}

// WindowMatches reports whether the foreground app name contains a window hint
func (r Rules) WindowMatches(foregroundApp string) bool {
	if foregroundApp == "" {
		return false
	}
	lower := strings.ToLower(foregroundApp)
	for _, hint := range r.WindowHints {
		if hint != "" && strings.Contains(lower, strings.ToLower(hint)) {
			return true
		}
	}
	return false
}

// isMediaHost reports whether host is one of svc's media domains or a subdomain
func (r Rules) isMediaHost(svc Service, host string) bool {
	if host == "" {
		return false
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, d := range r.MediaDomains[svc] {
		d = strings.ToLower(d)
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
