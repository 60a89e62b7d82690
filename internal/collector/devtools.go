package collector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"syscall"

	pkgerrors "github.com/pkg/errors"
)

type devToolsTarget struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// devToolsTabs lists page URLs from a Chromium remote debugging endpoint.
// A browser that is not listening yields no tabs rather than an error.
func devToolsTabs(ctx context.Context, client *http.Client, addr string) ([]string, error) {
	if addr == "" {
		return nil, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/json/list", nil)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "devtools request")
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(err, "devtools")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.Errorf("devtools: unexpected status %s", resp.Status)
	}

	var targets []devToolsTarget
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return nil, pkgerrors.Wrap(err, "devtools: decode targets")
	}

	var urls []string
	for _, t := range targets {
		if t.Type == "page" && t.URL != "" {
			urls = append(urls, t.URL)
		}
	}
	return urls, nil
}
