//go:build !darwin && !linux

package collector

import (
	"context"
	"net/http"

	"github.com/tiroq/meetsense/internal/detector"
)

// otherCollector only sees browser tabs exposed over DevTools; every other
// signal reads as absent
type otherCollector struct {
	devToolsAddr string
	httpClient   *http.Client
}

func newPlatform(opts Options) (detector.Collector, error) {
	return &otherCollector{devToolsAddr: opts.DevToolsAddr, httpClient: opts.HTTPClient}, nil
}

func (c *otherCollector) ListNetworkConnections(context.Context) ([]detector.ConnectionObservation, error) {
	return nil, nil
}

func (c *otherCollector) ForegroundAppName(context.Context) (string, error) { return "", nil }

func (c *otherCollector) RunningProcesses(context.Context) ([]string, error) { return nil, nil }

func (c *otherCollector) BrowserTabURLs(ctx context.Context) ([]string, error) {
	return devToolsTabs(ctx, c.httpClient, c.devToolsAddr)
}

func (c *otherCollector) MicrophoneActive(context.Context) (bool, error) { return false, nil }

func (c *otherCollector) CameraActive(context.Context) (bool, error) { return false, nil }
