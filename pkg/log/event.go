package log

import (
	"strings"
	"time"
)

// Event represents a controller log event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the controller session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"3,keyasint"`

	// ActionID is the action involved, if any.
	ActionID string `cbor:"4,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Command    *CommandEvent    `cbor:"10,keyasint,omitempty"`
	Transition *TransitionEvent `cbor:"11,keyasint,omitempty"`
	Effect     *EffectEvent     `cbor:"12,keyasint,omitempty"`
	Error      *ErrorEventData  `cbor:"13,keyasint,omitempty"`
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryCommand indicates a command issued to the controller.
	CategoryCommand Category = 0
	// CategoryTransition indicates a phase change.
	CategoryTransition Category = 1
	// CategoryEffect indicates an emitted side effect.
	CategoryEffect Category = 2
	// CategoryError indicates a handler failure.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryCommand:
		return "COMMAND"
	case CategoryTransition:
		return "TRANSITION"
	case CategoryEffect:
		return "EFFECT"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory parses a category name as printed by String (case-insensitive).
func ParseCategory(s string) (Category, bool) {
	for c := CategoryCommand; c <= CategoryError; c++ {
		if strings.EqualFold(c.String(), s) {
			return c, true
		}
	}
	return 0, false
}

// CommandEvent captures a command issued to the controller.
type CommandEvent struct {
	// Name is the command (REQUEST, CONFIRM, CANCEL, DISMISS).
	Name string `cbor:"1,keyasint"`

	// Accepted is true if the command changed state.
	Accepted bool `cbor:"2,keyasint"`

	// Rejection is the error text for rejected commands.
	Rejection string `cbor:"3,keyasint,omitempty"`
}

// TransitionEvent captures a phase change.
type TransitionEvent struct {
	// OldPhase is the phase before the transition.
	OldPhase string `cbor:"1,keyasint"`

	// NewPhase is the phase after the transition.
	NewPhase string `cbor:"2,keyasint"`

	// Reason describes what caused the transition.
	Reason string `cbor:"3,keyasint,omitempty"`

	// Seconds is the countdown or cooldown length started by the transition.
	Seconds int `cbor:"4,keyasint,omitempty"`
}

// EffectEvent captures a side effect emitted to a port.
type EffectEvent struct {
	// Kind is the effect kind (VIBRATE, SHOW_STATUS).
	Kind string `cbor:"1,keyasint"`

	// Status is the status text for SHOW_STATUS effects.
	Status string `cbor:"2,keyasint,omitempty"`

	// Pattern is the vibration pattern for VIBRATE effects.
	Pattern []time.Duration `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures a failed handler execution.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// TimedOut is true if the handler exceeded the execution timeout.
	TimedOut bool `cbor:"2,keyasint,omitempty"`

	// Elapsed is how long the handler ran before settling.
	Elapsed time.Duration `cbor:"3,keyasint,omitempty"`
}
