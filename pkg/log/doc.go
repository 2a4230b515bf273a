// Package log provides structured event capture for the emergency controller.
//
// This package defines the Logger interface and Event types for recording
// what the controller did: commands it accepted or rejected, phase
// transitions, the effects it emitted, and handler failures. It is separate
// from operational logging (slog). The event log is a complete
// machine-readable trace for reviewing an emergency session after the fact.
//
// # Basic Usage
//
// Applications configure capture by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.EventLog = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.EventLog, _ = log.NewFileLogger("/var/log/innerspark/emergency.elog")
//
//	// Both: use MultiLogger
//	cfg.EventLog = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
//   - Command: a command issued to the controller and its outcome (CommandEvent)
//   - Transition: a phase change (TransitionEvent)
//   - Effect: a side effect emitted to a port (EffectEvent)
//   - Error: a failed or timed-out handler (ErrorEventData)
//
// # File Format
//
// Log files use CBOR encoding with the .elog extension. The panic-log CLI tool
// provides viewing, statistics, and export.
package log
