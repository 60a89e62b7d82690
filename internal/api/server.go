// Package api serves the daemon's HTTP surface: the current detection
// result, the event stream, Prometheus metrics and a health probe.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tiroq/meetsense/internal/detector"
)

// Options holds everything the server needs from the caller
type Options struct {
	Logger  *log.Logger
	Version string

	// Status returns the last completed result, nil before the first poll
	Status func() *detector.DetectionResult

	// Events is the WebSocket endpoint, optional
	Events http.Handler

	// Gatherer backs /metrics; nil disables the route
	Gatherer prometheus.Gatherer
}

// Server is the daemon HTTP server
type Server struct {
	opts      Options
	startedAt time.Time
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Server{opts: opts, startedAt: time.Now()}
}

// Handler builds the route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/version", s.handleVersion)
	if s.opts.Events != nil {
		mux.Handle("/events", s.opts.Events)
	}
	if s.opts.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Run listens on bind and serves until ctx is cancelled
func (s *Server) Run(ctx context.Context, bind string) error {
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", bind)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.opts.Logger.Printf("[STARTUP] Listening on http://%s", ln.Addr())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server")
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// handleStatus answers 204 until the first poll completes
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var result *detector.DetectionResult
	if s.opts.Status != nil {
		result = s.opts.Status()
	}
	if result == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"version":        s.opts.Version,
		"go_version":     runtime.Version(),
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
