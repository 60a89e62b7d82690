package config

import (
	"errors"
	"testing"
	"time"

	"github.com/tiroq/meetsense/internal/detector"
)

func boolPtr(b bool) *bool { return &b }

// ─────────────────────────────────────────────────────────────────────────────
// RuleByApp
// ─────────────────────────────────────────────────────────────────────────────

func TestRuleByApp_found(t *testing.T) {
	cfg := &DetectionConfig{
		Rules: []DetectionRule{
			{Application: "zoom", ProcessNames: []string{"zoom.us"}},
			{Application: "teams", ProcessNames: []string{"Microsoft Teams"}},
		},
	}
	rule := cfg.RuleByApp("teams")
	if rule == nil {
		t.Fatal("expected teams rule, got nil")
	}
	if rule.Application != "teams" {
		t.Errorf("got application %q, want %q", rule.Application, "teams")
	}
}

func TestRuleByApp_notFound(t *testing.T) {
	cfg := &DetectionConfig{Rules: []DetectionRule{{Application: "zoom"}}}
	if got := cfg.RuleByApp("webex"); got != nil {
		t.Errorf("expected nil for missing app, got %+v", got)
	}
	if got := (&DetectionConfig{}).RuleByApp("zoom"); got != nil {
		t.Errorf("expected nil for empty rules, got %+v", got)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Validate
// ─────────────────────────────────────────────────────────────────────────────

func TestDetectionConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       DetectionConfig
		wantField string // empty when valid
	}{
		{
			name: "defaults",
			cfg:  DetectionConfig{PollIntervalMs: 2000, CollectTimeoutMs: 1500},
		},
		{
			name: "minimum interval, no timeout",
			cfg:  DetectionConfig{PollIntervalMs: 100},
		},
		{
			name:      "interval too short",
			cfg:       DetectionConfig{PollIntervalMs: 99},
			wantField: "detection.poll_interval_ms",
		},
		{
			name:      "interval zero",
			cfg:       DetectionConfig{},
			wantField: "detection.poll_interval_ms",
		},
		{
			name:      "interval too long",
			cfg:       DetectionConfig{PollIntervalMs: 60001},
			wantField: "detection.poll_interval_ms",
		},
		{
			name:      "timeout beyond interval",
			cfg:       DetectionConfig{PollIntervalMs: 1000, CollectTimeoutMs: 1001},
			wantField: "detection.collect_timeout_ms",
		},
		{
			name:      "negative timeout",
			cfg:       DetectionConfig{PollIntervalMs: 1000, CollectTimeoutMs: -1},
			wantField: "detection.collect_timeout_ms",
		},
		{
			name: "known applications",
			cfg: DetectionConfig{PollIntervalMs: 2000, Rules: []DetectionRule{
				{Application: "zoom"}, {Application: "teams"}, {Application: "webex"},
			}},
		},
		{
			name: "browser-only service rejected",
			cfg: DetectionConfig{PollIntervalMs: 2000, Rules: []DetectionRule{
				{Application: "google_meet"},
			}},
			wantField: "detection.rules[0].application",
		},
		{
			name: "unknown application",
			cfg: DetectionConfig{PollIntervalMs: 2000, Rules: []DetectionRule{
				{Application: "zoom"}, {Application: "skype"},
			}},
			wantField: "detection.rules[1].application",
		},
		{
			name: "duplicate application",
			cfg: DetectionConfig{PollIntervalMs: 2000, Rules: []DetectionRule{
				{Application: "zoom"}, {Application: "zoom"},
			}},
			wantField: "detection.rules[1].application",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var cerr *ConfigurationError
			if !errors.As(err, &cerr) {
				t.Fatalf("got %v, want *ConfigurationError", err)
			}
			if cerr.Field != tt.wantField {
				t.Errorf("field = %q, want %q", cerr.Field, tt.wantField)
			}
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// DetectorRules
// ─────────────────────────────────────────────────────────────────────────────

func TestDetectionConfig_DetectorRules_noOverrides(t *testing.T) {
	cfg := &DetectionConfig{PollIntervalMs: 2000}
	got := cfg.DetectorRules()
	want := detector.DefaultRules()
	if len(got.ProcessNames[detector.ServiceZoom]) != len(want.ProcessNames[detector.ServiceZoom]) {
		t.Errorf("zoom processes = %v, want defaults", got.ProcessNames[detector.ServiceZoom])
	}
	if len(got.WindowHints) != len(want.WindowHints) {
		t.Errorf("window hints = %v, want defaults", got.WindowHints)
	}
}

func TestDetectionConfig_DetectorRules_overrides(t *testing.T) {
	cfg := &DetectionConfig{
		PollIntervalMs: 2000,
		WindowHints:    []string{"standup"},
		Rules: []DetectionRule{
			{Application: "teams", MediaDomains: []string{"teams.example.org"}},
			{Application: "webex", Enabled: boolPtr(false)},
			{Application: "zoom", ProcessNames: []string{"zoomwrapper"}, Enabled: boolPtr(true)},
		},
	}
	rules := cfg.DetectorRules()

	if got := rules.ProcessNames[detector.ServiceZoom]; len(got) != 1 || got[0] != "zoomwrapper" {
		t.Errorf("zoom processes = %v", got)
	}
	if got := rules.MediaDomains[detector.ServiceMicrosoftTeams]; len(got) != 1 || got[0] != "teams.example.org" {
		t.Errorf("teams domains = %v", got)
	}
	if got := rules.ProcessNames[detector.ServiceMicrosoftTeams]; len(got) == 0 {
		t.Error("teams processes should keep defaults when not overridden")
	}
	if _, ok := rules.ProcessNames[detector.ServiceWebex]; ok {
		t.Error("disabled webex rule should remove its processes")
	}
	if running, _ := rules.NativeProcessRunning(detector.ServiceWebex, []string{"Webex"}); running {
		t.Error("disabled webex should never match")
	}
	if len(rules.WindowHints) != 1 || rules.WindowHints[0] != "standup" {
		t.Errorf("window hints = %v", rules.WindowHints)
	}

	// Overrides must not leak into the shared defaults
	if got := detector.DefaultRules().ProcessNames[detector.ServiceZoom]; got[0] != "zoom.us" {
		t.Errorf("defaults mutated: %v", got)
	}
}

func TestDetectionConfig_Durations(t *testing.T) {
	cfg := DetectionConfig{PollIntervalMs: 2500, CollectTimeoutMs: 700}
	if cfg.PollInterval() != 2500*time.Millisecond {
		t.Errorf("PollInterval = %v", cfg.PollInterval())
	}
	if cfg.CollectTimeout() != 700*time.Millisecond {
		t.Errorf("CollectTimeout = %v", cfg.CollectTimeout())
	}
}
