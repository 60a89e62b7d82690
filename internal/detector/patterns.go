package detector

import (
	"net/url"
	"strings"
)

// URL fragments per service. Matching is case-sensitive.
var (
	zoomURLPatterns = []string{
		"zoom.us/j/",
		"zoom.us/s/",
		"zoom.us/wc/",
	}
	teamsURLPatterns = []string{
		"teams.live.com/v2/",
		"teams.live.com/light-meetings/launch",
		"teams.microsoft.com/_#/meet/",
	}
	webexPathPatterns = []string{
		"/webapp/",
		"/webappng/",
		"/meet/",
		"/wbxmjs/joinservice",
	}
)

// MatchesServiceURL reports whether rawURL is an in-meeting page of svc.
// Malformed input never matches.
func MatchesServiceURL(rawURL string, svc Service) bool {
	if rawURL == "" {
		return false
	}

	switch svc {
	case ServiceZoom:
		return containsAny(rawURL, zoomURLPatterns)
	case ServiceMicrosoftTeams:
		return containsAny(rawURL, teamsURLPatterns)
	case ServiceWebex:
		return matchesWebex(rawURL)
	case ServiceGoogleMeet:
		code, ok := meetCodeFromURL(rawURL)
		return ok && IsValidGoogleMeetCode(code)
	}
	return false
}

// MatchURL returns the first service, in priority order, whose meeting
// pattern matches rawURL
func MatchURL(rawURL string) (Service, bool) {
	for _, svc := range Services() {
		if MatchesServiceURL(rawURL, svc) {
			return svc, true
		}
	}
	return "", false
}

func matchesWebex(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	if host != "webex.com" && !strings.HasSuffix(host, ".webex.com") {
		return false
	}
	// The web client's meeting list lives only on web.webex.com
	if host == "web.webex.com" && strings.HasPrefix(u.Path, "/meetings") {
		return true
	}
	return containsAny(u.Path, webexPathPatterns)
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
