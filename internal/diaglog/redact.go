package diaglog

import (
	"strings"
)

// sensitiveKeys are payload fields replaced with "[REDACTED]" outright
var sensitiveKeys = map[string]bool{
	"pwd":      true,
	"passcode": true,
	"password": true,
	"token":    true,
	"secret":   true,
	"auth":     true,
}

// urlKeys hold meeting URLs; their query and fragment can carry join
// passwords (Zoom ?pwd=...) and are stripped
var urlKeys = map[string]bool{
	"meeting_url": true,
	"url":         true,
}

// Redact recursively traverses v and returns a copy with secrets removed.
// v is not mutated. Non-map, non-slice values are returned unchanged.
func Redact(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			switch {
			case sensitiveKeys[k]:
				out[k] = "[REDACTED]"
			case urlKeys[k]:
				if s, ok := child.(string); ok {
					out[k] = StripURLSecrets(s)
				} else {
					out[k] = Redact(child)
				}
			default:
				out[k] = Redact(child)
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, elem := range val {
			out[i] = Redact(elem)
		}
		return out
	default:
		return v
	}
}

// StripURLSecrets drops everything from the first '?' or '#' onwards
func StripURLSecrets(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}
