// Command panic-console runs the emergency action controller behind an
// interactive prompt.
//
// Calls, contact notifications and audio playback are simulated and printed
// to the console, as are vibration and status effects.
//
// Usage:
//
//	panic-console [flags]
//
// Flags:
//
//	-config string      Configuration file path (overlays the built-in defaults)
//	-log-level string   Log level: debug, info, warn, error (default "warn")
//	-event-log string   Write controller events to this .elog file
//	-strict             Reject duplicate action ids
//	-delay duration     Simulated handler duration (default 1s)
//
// Examples:
//
//	# Start with the built-in actions
//	panic-console
//
//	# Record a session for panic-log
//	panic-console -event-log session.elog -log-level debug
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/innerspark/emergency-go/cmd/panic-console/interactive"
	"github.com/innerspark/emergency-go/pkg/config"
	"github.com/innerspark/emergency-go/pkg/emergency"
	"github.com/innerspark/emergency-go/pkg/log"
	"github.com/innerspark/emergency-go/pkg/responder"
)

// Flags holds the command-line settings.
type Flags struct {
	ConfigFile string
	LogLevel   string
	EventLog   string
	Strict     bool
	Delay      time.Duration
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path (overlays the built-in defaults)")
	flag.StringVar(&flags.LogLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	flag.StringVar(&flags.EventLog, "event-log", "", "Write controller events to this .elog file")
	flag.BoolVar(&flags.Strict, "strict", false, "Reject duplicate action ids")
	flag.DurationVar(&flags.Delay, "delay", time.Second, "Simulated handler duration")
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(flags.ConfigFile)
	if err != nil {
		return err
	}
	if flags.Strict {
		cfg.StrictRegistry = true
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	// The console needs the registry for completion, and the registry needs
	// the console's writer for the simulated ports.
	sim := &responder.Simulator{Delay: flags.Delay}
	ports := responder.Ports{Dialer: sim, Notifier: sim, Audio: sim}

	reg, err := responder.NewRegistry(cfg, ports)
	if err != nil {
		return fmt.Errorf("failed to register actions: %w", err)
	}

	console, err := interactive.New(reg, cfg)
	if err != nil {
		return err
	}
	sim.Out = console.Stdout()

	logger, err := setupLogging(flags.LogLevel, console.Stderr())
	if err != nil {
		return err
	}

	events, closeEvents, err := setupEventLog(flags.EventLog, logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	ctrlCfg := cfg.Controller()
	ctrlCfg.Haptics = console
	ctrlCfg.Presenter = console
	ctrlCfg.Logger = logger
	ctrlCfg.EventLog = events

	ctrl, err := emergency.NewController(reg, ctrlCfg)
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}
	defer ctrl.Close()
	console.Attach(ctrl)

	logger.Info("panic-console started", "session_id", ctrl.SessionID(), "actions", reg.Len())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	console.Run(ctx, cancel)
	return nil
}

// setupLogging creates the operational logger.
func setupLogging(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// setupEventLog opens the event log file, if any. At debug level events are
// also mirrored to the operational logger.
func setupEventLog(path string, logger *slog.Logger) (log.Logger, func(), error) {
	var loggers []log.Logger
	closeFn := func() {}

	if path != "" {
		fl, err := log.NewFileLogger(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open event log: %w", err)
		}
		loggers = append(loggers, fl)
		closeFn = func() {
			if n := fl.Dropped(); n > 0 {
				logger.Warn("event log dropped events", "count", n)
			}
			fl.Close()
		}
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		loggers = append(loggers, log.NewSlogAdapter(logger))
	}

	return log.NewMultiLogger(loggers...), closeFn, nil
}
