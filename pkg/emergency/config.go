package emergency

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/innerspark/emergency-go/pkg/clock"
	"github.com/innerspark/emergency-go/pkg/log"
)

// Config configures a Controller.
type Config struct {
	// Cooldown is the mandatory wait after every execution. It must be a
	// whole number of seconds and at least one second.
	Cooldown time.Duration

	// ExecutionTimeout bounds how long a handler may run before the
	// execution is treated as failed.
	ExecutionTimeout time.Duration

	// HapticPattern is passed to Haptics when a countdown begins.
	HapticPattern []time.Duration

	// Clock drives countdowns and the execution timeout. Nil uses the real
	// clock.
	Clock clock.Clock

	// Haptics receives vibration requests. Nil disables vibration.
	Haptics Haptics

	// Presenter receives status texts. Nil disables status presentation.
	Presenter StatusPresenter

	// Logger is used for diagnostics. Nil discards.
	Logger *slog.Logger

	// EventLog receives structured controller events. Nil discards.
	EventLog log.Logger

	// SessionID tags every invocation and event. Empty generates a UUID.
	SessionID string
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	pattern := make([]time.Duration, len(DefaultHapticPattern))
	copy(pattern, DefaultHapticPattern)
	return Config{
		Cooldown:         30 * time.Second,
		ExecutionTimeout: 10 * time.Second,
		HapticPattern:    pattern,
	}
}

// Validate checks the timing settings.
func (c Config) Validate() error {
	if c.Cooldown < time.Second {
		return fmt.Errorf("%w: cooldown %v is shorter than one second", ErrInvalidConfig, c.Cooldown)
	}
	if c.Cooldown%time.Second != 0 {
		return fmt.Errorf("%w: cooldown %v is not a whole number of seconds", ErrInvalidConfig, c.Cooldown)
	}
	if c.ExecutionTimeout <= 0 {
		return fmt.Errorf("%w: execution timeout must be positive", ErrInvalidConfig)
	}
	for i, d := range c.HapticPattern {
		if d < 0 {
			return fmt.Errorf("%w: haptic pattern step %d is negative", ErrInvalidConfig, i)
		}
	}
	return nil
}

// withDefaults fills the unset ports and collaborators.
func (c Config) withDefaults() Config {
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.Haptics == nil {
		c.Haptics = noopHaptics{}
	}
	if c.Presenter == nil {
		c.Presenter = noopPresenter{}
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c.EventLog = log.OrNoop(c.EventLog)
	if c.SessionID == "" {
		c.SessionID = uuid.NewString()
	}
	return c
}
