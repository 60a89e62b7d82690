// Meetingd watches the local machine for video meetings and publishes
// start/end transitions over HTTP, WebSocket and Prometheus.
//
// Shutdown is handled gracefully on SIGINT or SIGTERM.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/tiroq/meetsense/internal/api"
	"github.com/tiroq/meetsense/internal/collector"
	"github.com/tiroq/meetsense/internal/config"
	"github.com/tiroq/meetsense/internal/detector"
	"github.com/tiroq/meetsense/internal/diaglog"
	"github.com/tiroq/meetsense/internal/engine"
	"github.com/tiroq/meetsense/internal/eventhub"
	"github.com/tiroq/meetsense/internal/metrics"
	"github.com/tiroq/meetsense/internal/pidfile"
	"github.com/tiroq/meetsense/pkg/meeting"
)

// Version is set at build time via -ldflags "-X main.Version=..."
var Version = "dev"

var (
	outLog = log.New(os.Stdout, "[meetingd] ", log.LstdFlags)
	errLog = log.New(os.Stderr, "[meetingd] ERROR: ", log.LstdFlags)
)

func main() {
	var (
		configPath  = pflag.StringP("config", "c", "", "Path to config TOML (default "+config.DefaultPath()+")")
		bind        = pflag.String("bind", "", "HTTP bind address (overrides server.bind)")
		once        = pflag.Bool("once", false, "Run a single detection, print it as JSON and exit")
		noServer    = pflag.Bool("no-server", false, "Disable the HTTP server")
		showVersion = pflag.Bool("version", false, "Print version and exit")
		exportDiag  = pflag.String("export-diag", "", "Write a diagnostic bundle into this directory and exit")
		devTools    = pflag.String("devtools", collector.DefaultDevToolsAddr, "Chromium remote debugging address for tab URLs (empty disables)")
	)
	pflag.Lookup("export-diag").NoOptDefVal = "."
	pflag.Parse()

	if *showVersion {
		fmt.Println("meetingd", Version)
		return
	}

	cfg, cfgPath := loadConfig(*configPath)

	if *exportDiag != "" {
		os.Exit(runExportDiag(cfg.Logging.DebugLogPath, *exportDiag))
	}

	rules := cfg.Detection.DetectorRules()
	c, err := collector.New(collector.Options{DevToolsAddr: *devTools, CameraProcess: rules.IsMeetingProcess})
	if err != nil {
		errLog.Fatalf("Failed to create signal collector: %v", err)
	}

	if *once {
		os.Exit(runOnce(c, cfg.Detection))
	}

	if *bind != "" {
		cfg.Server.Bind = *bind
	}
	if *noServer {
		cfg.Server.Enabled = false
	}
	os.Exit(run(c, cfg, cfgPath, pidfile.DefaultPath("meetingd")))
}

// loadConfig reads the config file. A missing file at the default location
// means defaults; a missing explicit file is fatal.
func loadConfig(path string) (config.Config, string) {
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	switch {
	case err == nil:
		outLog.Printf("[STARTUP] Loaded config from %s", path)
	case !explicit && errors.Is(err, os.ErrNotExist):
		outLog.Printf("[STARTUP] No config at %s, using defaults", path)
		cfg = config.Default()
	default:
		errLog.Fatalf("Failed to load config: %v", err)
	}
	return cfg, path
}

func runExportDiag(logPath, dest string) int {
	diaglog.Version = Version
	path, n, err := diaglog.Export(logPath, dest)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(os.Stderr, "hint: run with MEETSENSE_DEBUG=true to enable logging")
			return 1
		}
		return 2
	}
	fmt.Printf("Wrote: %s (%d lines)\n", path, n)
	return 0
}

func runOnce(c detector.Collector, det config.DetectionConfig) int {
	rules := det.DetectorRules()
	e, err := engine.New(engine.Options{
		Collector:      c,
		Rules:          &rules,
		PollInterval:   det.PollInterval(),
		CollectTimeout: det.CollectTimeout(),
		Logger:         errLog,
	})
	if err != nil {
		errLog.Printf("%v", err)
		return 1
	}
	e.Tick(context.Background())
	result, _ := e.Current()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		errLog.Printf("encode result: %v", err)
		return 1
	}
	return 0
}

// run starts the daemon and blocks until shutdown. It returns the process
// exit code; startup failures such as an invalid config are non-zero.
func run(c detector.Collector, cfg config.Config, cfgPath, pidPath string) int {
	outLog.Println("===========================================")
	outLog.Printf("Starting meetingd %s", Version)
	outLog.Printf("PID: %d", os.Getpid())
	outLog.Println("===========================================")

	pf, err := pidfile.New(pidPath)
	if err != nil {
		errLog.Printf("Failed to create PID file: %v", err)
		errLog.Printf("If you're sure no other instance is running, remove: %s", pidPath)
		return 1
	}
	defer func() {
		if err := pf.Remove(); err != nil {
			errLog.Printf("Warning: failed to remove PID file: %v", err)
		}
	}()

	diag, err := diaglog.New(cfg.Logging.DebugLogPath)
	if err != nil {
		errLog.Printf("Diagnostic log unavailable: %v", err)
		diag = diaglog.NewNoOp()
	}
	defer func() { _ = diag.Close() }()
	if diag.Enabled() {
		outLog.Printf("[STARTUP] Diagnostic log: %s", cfg.Logging.DebugLogPath)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pub *eventhub.Publisher
	hub := eventhub.NewHub(func() any { return pub.Status(meeting.LastDetectionDetails()) }, diag)
	pub = eventhub.NewPublisher(hub, diag)
	if cfg.Server.Enabled {
		go hub.Run(ctx)
		meeting.OnMeetingStart(pub.MeetingStarted)
		meeting.OnMeetingEnd(pub.MeetingEnded)
	}

	if err := meeting.Init(
		meeting.WithContext(ctx),
		meeting.WithCollector(c),
		meeting.WithConfig(cfg.Detection),
		meeting.WithLogger(outLog),
		meeting.WithDiagLog(diag),
		meeting.WithMetrics(metrics.New(reg)),
	); err != nil {
		errLog.Printf("Failed to start detection: %v", err)
		return 1
	}
	outLog.Printf("[STARTUP] Polling every %v", meeting.PollInterval())

	go watchConfig(ctx, cfgPath, diag)

	if cfg.Server.Enabled {
		srv := api.New(api.Options{
			Logger:   outLog,
			Version:  Version,
			Status:   meeting.LastDetectionDetails,
			Events:   hub.Handler(),
			Gatherer: reg,
		})
		if err := srv.Run(ctx, cfg.Server.Bind); err != nil {
			errLog.Printf("HTTP server failed: %v", err)
			return 1
		}
	}

	<-ctx.Done()
	outLog.Println("[SHUTDOWN] Signal received, exiting")

	// Brief pause so in-flight log writes can flush before exit
	time.Sleep(50 * time.Millisecond)
	return 0
}

// watchConfig applies rule changes live. The poll interval is fixed once
// the loop runs, so a changed value is only reported.
func watchConfig(ctx context.Context, path string, diag *diaglog.Logger) {
	interval := meeting.PollInterval()
	err := config.Watch(ctx, path,
		func(cfg config.Config) {
			if err := meeting.UpdateRules(cfg.Detection.DetectorRules()); err != nil {
				errLog.Printf("[CONFIG] Failed to apply rules: %v", err)
				return
			}
			outLog.Printf("[CONFIG] Reloaded detection rules from %s", path)
			if cfg.Detection.PollInterval() != interval {
				outLog.Printf("[CONFIG] poll_interval_ms changed to %d; restart to apply", cfg.Detection.PollIntervalMs)
			}
			diag.Log(diaglog.LogEntry{
				Component: diaglog.ComponentConfig,
				Event:     diaglog.EventConfigReload,
				Payload:   map[string]interface{}{"rules": len(cfg.Detection.Rules)},
			})
		},
		func(err error) {
			errLog.Printf("[CONFIG] Ignoring config change: %v", err)
			diag.Log(diaglog.LogEntry{
				Component: diaglog.ComponentConfig,
				Event:     diaglog.EventConfigRejected,
				Payload:   map[string]interface{}{"error": err.Error()},
			})
		},
	)
	if err != nil {
		errLog.Printf("[CONFIG] Live reload disabled: %v", err)
	}
}
