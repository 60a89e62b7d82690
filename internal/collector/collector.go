// Package collector provides the platform implementations of
// detector.Collector. Each call is a point-in-time OS query; failures are
// returned to the caller, which treats them as "no signal".
package collector

import (
	"bytes"
	"context"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tiroq/meetsense/internal/detector"
)

// DefaultDevToolsAddr is where Chromium-based browsers listen when started
// with --remote-debugging-port=9222
const DefaultDevToolsAddr = "127.0.0.1:9222"

// Options tunes the platform collector
type Options struct {
	// DevToolsAddr is queried for open tabs on platforms without scripting
	// access to browsers. Empty disables the lookup.
	DevToolsAddr string
	HTTPClient   *http.Client

	// CameraProcess selects the processes whose descriptors are scanned for
	// camera devices on Linux. Nil selects detector.DefaultRules().IsMeetingProcess.
	CameraProcess func(name string) bool
}

// New returns the collector for the running platform
func New(opts Options) (detector.Collector, error) {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: time.Second}
	}
	if opts.CameraProcess == nil {
		opts.CameraProcess = detector.DefaultRules().IsMeetingProcess
	}
	return newPlatform(opts)
}

// runCommand runs name and returns its stdout. Stderr is folded into the
// error so callers can log why a tool failed.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrapf(ctx.Err(), "%s", name)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, errors.Wrapf(err, "%s: %s", name, msg)
		}
		return nil, errors.Wrap(err, name)
	}
	return out, nil
}

// splitLines returns the non-empty trimmed lines of s
func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// dedupe drops empty and repeated names, keeping first-seen order
func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
