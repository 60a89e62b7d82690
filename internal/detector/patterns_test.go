package detector

import "testing"

func TestMatchesServiceURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		svc  Service
		want bool
	}{
		// Zoom
		{"zoom join", "https://us02web.zoom.us/j/81234567890?pwd=abc", ServiceZoom, true},
		{"zoom start", "https://zoom.us/s/81234567890", ServiceZoom, true},
		{"zoom web client", "https://app.zoom.us/wc/81234567890/join", ServiceZoom, true},
		{"zoom homepage", "https://zoom.us/", ServiceZoom, false},
		{"zoom uppercase domain", "https://ZOOM.US/j/123", ServiceZoom, false},

		// Teams
		{"teams live", "https://teams.live.com/v2/?meetingjoin=true", ServiceMicrosoftTeams, true},
		{"teams light meeting", "https://teams.live.com/light-meetings/launch?x=1", ServiceMicrosoftTeams, true},
		{"teams meet", "https://teams.microsoft.com/_#/meet/19:meeting_abc", ServiceMicrosoftTeams, true},
		{"teams chat", "https://teams.microsoft.com/_#/conversations/General", ServiceMicrosoftTeams, false},

		// Webex
		{"webex webapp", "https://web.webex.com/webapp/meeting", ServiceWebex, true},
		{"webex personal room", "https://acme.webex.com/meet/jdoe", ServiceWebex, true},
		{"webex meetings", "https://web.webex.com/meetings", ServiceWebex, true},
		{"webex bare domain", "https://webex.com/webapp/x", ServiceWebex, true},
		{"webex home", "https://www.webex.com/pricing", ServiceWebex, false},
		{"webex marketing meetings page", "https://www.webex.com/meetings.html", ServiceWebex, false},
		{"webex lookalike host", "https://notwebex.com/meet/jdoe", ServiceWebex, false},
		{"webex path on other host", "https://example.com/webex.com/meet/x", ServiceWebex, false},

		// Google Meet
		{"meet code", "https://meet.google.com/abc-defg-hij", ServiceGoogleMeet, true},
		{"meet code query", "https://meet.google.com/abc-defg-hij?authuser=0", ServiceGoogleMeet, true},
		{"meet landing", "https://meet.google.com/landing", ServiceGoogleMeet, false},
		{"meet new", "https://meet.google.com/new", ServiceGoogleMeet, false},
		{"meet root", "https://meet.google.com/", ServiceGoogleMeet, false},
		{"meet bare", "meet.google.com", ServiceGoogleMeet, false},
		{"meet uppercase code", "https://meet.google.com/ABC-defg-hij", ServiceGoogleMeet, false},
		{"meet host in path", "https://evil.example/meet.google.com/abc-defg-hij", ServiceGoogleMeet, false},
		{"meet url in redirect query", "https://www.google.com/url?q=https://meet.google.com/abc-defg-hij", ServiceGoogleMeet, false},

		// Malformed / cross-service
		{"empty", "", ServiceZoom, false},
		{"garbage", "%%%://", ServiceWebex, false},
		{"zoom url not meet", "https://zoom.us/j/1", ServiceGoogleMeet, false},
		{"unknown service", "https://zoom.us/j/1", Service("skype"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesServiceURL(tt.url, tt.svc); got != tt.want {
				t.Errorf("MatchesServiceURL(%q, %s) = %v, want %v", tt.url, tt.svc, got, tt.want)
			}
		})
	}
}

func TestMatchURL_PriorityOrder(t *testing.T) {
	svc, ok := MatchURL("https://meet.google.com/abc-defg-hij")
	if !ok || svc != ServiceGoogleMeet {
		t.Errorf("got (%s, %v), want google_meet", svc, ok)
	}

	if _, ok := MatchURL("https://example.com"); ok {
		t.Error("unexpected match for example.com")
	}
}
