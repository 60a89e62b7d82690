package detector

import (
	"net/url"
	"strings"
)

const meetHost = "meet.google.com"

// excludedMeetPaths are meet.google.com pages that never carry a meeting
var excludedMeetPaths = map[string]bool{
	"landing": true,
	"new":     true,
	"join":    true,
}

// IsValidGoogleMeetCode reports whether path is a Google Meet meeting code
// such as "abc-defg-hij": three hyphen separated segments of 2-5 lowercase
// ASCII letters, 8-15 letters in total.
func IsValidGoogleMeetCode(path string) bool {
	if path == "" || excludedMeetPaths[path] {
		return false
	}

	segments := strings.Split(path, "-")
	if len(segments) != 3 {
		return false
	}

	total := 0
	for _, seg := range segments {
		if len(seg) < 2 || len(seg) > 5 {
			return false
		}
		for i := 0; i < len(seg); i++ {
			if seg[i] < 'a' || seg[i] > 'z' {
				return false
			}
		}
		total += len(seg)
	}

	return total >= 8 && total <= 15
}

// meetCodeFromURL returns the path of a meet.google.com URL without the
// surrounding slashes. ok is false unless the host is exactly
// meet.google.com.
func meetCodeFromURL(rawURL string) (code string, ok bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() != meetHost {
		return "", false
	}
	return strings.Trim(u.Path, "/"), true
}
