// Command panic-web serves the emergency action controller over HTTP.
//
// It offers:
//   - REST API for listing, requesting, confirming and cancelling actions
//   - Server-sent event stream of state changes, vibration and status
//   - Simple embedded web UI
//
// Calls, contact notifications and audio playback are simulated and logged.
//
// Usage:
//
//	panic-web [flags]
//
// Flags:
//
//	-port int           HTTP server port (default 8080)
//	-config string      Configuration file path (overlays the built-in defaults)
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-event-log string   Write controller events to this .elog file
//	-strict             Reject duplicate action ids
//	-delay duration     Simulated handler duration (default 1s)
//
// Examples:
//
//	# Start on the default port
//	panic-web
//
//	# Record events and use a custom action table
//	panic-web -config actions.yaml -event-log web.elog
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/innerspark/emergency-go/pkg/config"
	"github.com/innerspark/emergency-go/pkg/emergency"
	"github.com/innerspark/emergency-go/pkg/log"
	"github.com/innerspark/emergency-go/pkg/responder"
)

// Version information - set at build time via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "dev"
	GitCommit = "unknown"
)

var (
	port        = flag.Int("port", 8080, "HTTP server port")
	configFile  = flag.String("config", "", "Configuration file path (overlays the built-in defaults)")
	logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	eventLog    = flag.String("event-log", "", "Write controller events to this .elog file")
	strict      = flag.Bool("strict", false, "Reject duplicate action ids")
	delay       = flag.Duration("delay", time.Second, "Simulated handler duration")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if *showVersion {
		fmt.Printf("panic-web %s (built %s, commit %s)\n", Version, BuildDate, GitCommit)
		return 0
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q\n", *logLevel)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if *strict {
		cfg.StrictRegistry = true
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	sim := &responder.Simulator{Out: slogWriter{logger}, Delay: *delay}
	reg, err := responder.NewRegistry(cfg, responder.Ports{Dialer: sim, Notifier: sim, Audio: sim, Logger: logger})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to register actions: %v\n", err)
		return 1
	}

	srv := NewServer(ServerConfig{Port: *port, Version: Version, Logger: logger}, reg, cfg)

	var events log.Logger = log.NoopLogger{}
	if *eventLog != "" {
		fl, err := log.NewFileLogger(*eventLog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open event log: %v\n", err)
			return 1
		}
		defer func() {
			if n := fl.Dropped(); n > 0 {
				logger.Warn("event log dropped events", "count", n)
			}
			fl.Close()
		}()
		events = fl
	}

	ctrlCfg := cfg.Controller()
	ctrlCfg.Haptics = srv
	ctrlCfg.Presenter = srv
	ctrlCfg.Logger = logger
	ctrlCfg.EventLog = events

	ctrl, err := emergency.NewController(reg, ctrlCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create controller: %v\n", err)
		return 1
	}
	defer ctrl.Close()
	srv.Attach(ctrl)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
	}()

	logger.Info("starting panic-web", "url", fmt.Sprintf("http://localhost:%d", *port), "session_id", ctrl.SessionID(), "actions", reg.Len())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "Error: server failed: %v\n", err)
		return 1
	}
	return 0
}

// slogWriter logs each simulated responder line at Info.
type slogWriter struct {
	logger *slog.Logger
}

func (w slogWriter) Write(p []byte) (int, error) {
	msg := string(p)
	if n := len(msg); n > 0 && msg[n-1] == '\n' {
		msg = msg[:n-1]
	}
	w.logger.Info(msg)
	return len(p), nil
}
