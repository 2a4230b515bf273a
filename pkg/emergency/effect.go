package emergency

import "time"

// DefaultHapticPattern alternates wait and vibrate durations, starting with a
// wait: two half-second pulses.
var DefaultHapticPattern = []time.Duration{
	0,
	500 * time.Millisecond,
	200 * time.Millisecond,
	500 * time.Millisecond,
}

// EffectKind identifies a side effect requested by a transition.
type EffectKind uint8

const (
	// EffectVibrate asks the Haptics port to vibrate.
	EffectVibrate EffectKind = iota + 1

	// EffectShowStatus asks the StatusPresenter port to show a status.
	EffectShowStatus

	// EffectStartCountdown starts the confirmation countdown.
	EffectStartCountdown

	// EffectStopTimers cancels any live countdown.
	EffectStopTimers

	// EffectRunHandler executes the selected action's handler.
	EffectRunHandler

	// EffectStartCooldown starts the cooldown countdown.
	EffectStartCooldown
)

// String returns a human-readable effect name.
func (k EffectKind) String() string {
	switch k {
	case EffectVibrate:
		return "VIBRATE"
	case EffectShowStatus:
		return "SHOW_STATUS"
	case EffectStartCountdown:
		return "START_COUNTDOWN"
	case EffectStopTimers:
		return "STOP_TIMERS"
	case EffectRunHandler:
		return "RUN_HANDLER"
	case EffectStartCooldown:
		return "START_COOLDOWN"
	default:
		return "UNKNOWN"
	}
}

// Effect is one side effect requested by a transition.
type Effect struct {
	Kind EffectKind

	// Status is the text for EffectShowStatus.
	Status string

	// Pattern is the vibration pattern for EffectVibrate.
	Pattern []time.Duration

	// ActionID is the action for EffectRunHandler.
	ActionID string

	// Seconds is the length for EffectStartCountdown and EffectStartCooldown.
	Seconds int
}

// External reports whether the effect is delivered to a host port rather
// than handled by the controller itself.
func (e Effect) External() bool {
	return e.Kind == EffectVibrate || e.Kind == EffectShowStatus
}

// Haptics is the vibration port. It is invoked once when a countdown begins.
type Haptics interface {
	Vibrate(pattern []time.Duration)
}

// StatusPresenter is the status/toast port. It is invoked whenever the
// controller sets LastStatus.
type StatusPresenter interface {
	ShowStatus(status string)
}

// HapticsFunc adapts a function to Haptics.
type HapticsFunc func(pattern []time.Duration)

// Vibrate calls f(pattern).
func (f HapticsFunc) Vibrate(pattern []time.Duration) { f(pattern) }

// StatusFunc adapts a function to StatusPresenter.
type StatusFunc func(status string)

// ShowStatus calls f(status).
func (f StatusFunc) ShowStatus(status string) { f(status) }

type noopHaptics struct{}

func (noopHaptics) Vibrate([]time.Duration) {}

type noopPresenter struct{}

func (noopPresenter) ShowStatus(string) {}
