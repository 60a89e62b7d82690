package config

import (
	"fmt"
	"time"

	"github.com/tiroq/meetsense/internal/detector"
)

// DetectionRule overrides the built-in evidence for one native client
type DetectionRule struct {
	Application  string   `toml:"application"   json:"application"`   // "zoom", "teams" or "webex"
	ProcessNames []string `toml:"process_names" json:"process_names"` // Replaces the default process patterns when non-empty
	MediaDomains []string `toml:"media_domains" json:"media_domains"` // Replaces the default media domains when non-empty
	Enabled      *bool    `toml:"enabled"       json:"enabled"`       // Defaults to true
}

// IsEnabled reports whether the rule takes part in native detection
func (r DetectionRule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// DetectionConfig holds the poll cadence and rule overrides
type DetectionConfig struct {
	PollIntervalMs   int             `toml:"poll_interval_ms"   json:"poll_interval_ms"`
	CollectTimeoutMs int             `toml:"collect_timeout_ms" json:"collect_timeout_ms"`
	WindowHints      []string        `toml:"window_hints"       json:"window_hints,omitempty"`
	Rules            []DetectionRule `toml:"rules"              json:"rules,omitempty"`
}

// PollInterval returns the configured cadence
func (c *DetectionConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// CollectTimeout returns the per-poll collector deadline (0 disables it)
func (c *DetectionConfig) CollectTimeout() time.Duration {
	return time.Duration(c.CollectTimeoutMs) * time.Millisecond
}

// RuleByApp returns the first DetectionRule whose Application field matches
// appName, or nil if no such rule exists.
func (c *DetectionConfig) RuleByApp(appName string) *DetectionRule {
	for i := range c.Rules {
		if c.Rules[i].Application == appName {
			return &c.Rules[i]
		}
	}
	return nil
}

// Validate checks DetectionConfig for validity
func (c *DetectionConfig) Validate() error {
	if err := ValidateTiming(c.PollInterval(), c.CollectTimeout()); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Rules))
	for i, rule := range c.Rules {
		field := fmt.Sprintf("detection.rules[%d].application", i)
		svc, ok := detector.ParseService(rule.Application)
		if !ok || !svc.IsNative() {
			return &ConfigurationError{Field: field, Reason: fmt.Sprintf("must be one of zoom, teams, webex, got %q", rule.Application)}
		}
		if seen[rule.Application] {
			return &ConfigurationError{Field: field, Reason: fmt.Sprintf("duplicate rule for %q", rule.Application)}
		}
		seen[rule.Application] = true
	}
	return nil
}

// ValidateTiming checks a poll interval and collector deadline pair
func ValidateTiming(pollInterval, collectTimeout time.Duration) error {
	if pollInterval < MinPollInterval || pollInterval > MaxPollInterval {
		return &ConfigurationError{
			Field:  "detection.poll_interval_ms",
			Reason: fmt.Sprintf("must be between %d and %d, got %d", MinPollInterval.Milliseconds(), MaxPollInterval.Milliseconds(), pollInterval.Milliseconds()),
		}
	}
	if collectTimeout < 0 || collectTimeout > pollInterval {
		return &ConfigurationError{
			Field:  "detection.collect_timeout_ms",
			Reason: fmt.Sprintf("must be between 0 and the poll interval, got %d", collectTimeout.Milliseconds()),
		}
	}
	return nil
}

// DetectorRules layers the configured overrides on top of detector.DefaultRules.
// A disabled rule removes its service from native detection entirely.
func (c *DetectionConfig) DetectorRules() detector.Rules {
	rules := detector.DefaultRules()
	if len(c.WindowHints) > 0 {
		rules.WindowHints = append([]string(nil), c.WindowHints...)
	}
	for _, svc := range detector.NativeServices() {
		rule := c.RuleByApp(string(svc))
		if rule == nil {
			continue
		}
		if !rule.IsEnabled() {
			delete(rules.ProcessNames, svc)
			delete(rules.MediaDomains, svc)
			continue
		}
		if len(rule.ProcessNames) > 0 {
			rules.ProcessNames[svc] = append([]string(nil), rule.ProcessNames...)
		}
		if len(rule.MediaDomains) > 0 {
			rules.MediaDomains[svc] = append([]string(nil), rule.MediaDomains...)
		}
	}
	return rules
}
