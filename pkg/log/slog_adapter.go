package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger.
// Useful for development when you want to see controller events in console.
type SlogAdapter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogAdapter creates an adapter that logs at Debug level.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger, level: slog.LevelDebug}
}

// WithLevel returns a copy of the adapter that logs at level.
func (a *SlogAdapter) WithLevel(level slog.Level) *SlogAdapter {
	return &SlogAdapter{logger: a.logger, level: level}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("category", event.Category.String()),
	}
	if event.ActionID != "" {
		attrs = append(attrs, slog.String("action", event.ActionID))
	}

	level := a.level
	switch {
	case event.Command != nil:
		attrs = append(attrs,
			slog.String("command", event.Command.Name),
			slog.Bool("accepted", event.Command.Accepted),
		)
		if event.Command.Rejection != "" {
			attrs = append(attrs, slog.String("rejection", event.Command.Rejection))
		}
	case event.Transition != nil:
		attrs = append(attrs,
			slog.String("old_phase", event.Transition.OldPhase),
			slog.String("new_phase", event.Transition.NewPhase),
		)
		if event.Transition.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Transition.Reason))
		}
		if event.Transition.Seconds > 0 {
			attrs = append(attrs, slog.Int("seconds", event.Transition.Seconds))
		}
	case event.Effect != nil:
		attrs = append(attrs, slog.String("effect", event.Effect.Kind))
		if event.Effect.Status != "" {
			attrs = append(attrs, slog.String("status", event.Effect.Status))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error", event.Error.Message),
			slog.Bool("timed_out", event.Error.TimedOut),
			slog.Duration("elapsed", event.Error.Elapsed),
		)
		if level < slog.LevelWarn {
			level = slog.LevelWarn
		}
	}

	a.logger.LogAttrs(context.Background(), level, "emergency", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
