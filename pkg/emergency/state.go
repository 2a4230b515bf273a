package emergency

import (
	"fmt"
	"strings"
)

// Phase is the named state of the controller.
type Phase uint8

const (
	// PhaseIdle is the initial phase; a new action may be requested.
	PhaseIdle Phase = iota

	// PhaseConfirming indicates an action was selected and awaits confirmation.
	PhaseConfirming

	// PhaseCountingDown indicates the cancellable countdown is running.
	PhaseCountingDown

	// PhaseExecuting indicates the action's handler is running.
	PhaseExecuting

	// PhaseCooldown indicates the mandatory wait after an execution.
	PhaseCooldown
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseConfirming:
		return "CONFIRMING"
	case PhaseCountingDown:
		return "COUNTING_DOWN"
	case PhaseExecuting:
		return "EXECUTING"
	case PhaseCooldown:
		return "COOLDOWN"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the phase as its name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for c := PhaseIdle; c <= PhaseCooldown; c++ {
		if strings.EqualFold(c.String(), string(text)) {
			*p = c
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Status texts.
const (
	StatusReady        = "Ready"
	StatusCancelled    = "Cancelled"
	StatusActionFailed = "ActionFailed"
)

// completedStatus is the status after a handler succeeds.
func completedStatus(label string) string {
	return label + " completed"
}

// State is a snapshot of the controller.
type State struct {
	// Phase is the current phase.
	Phase Phase `json:"phase"`

	// SelectedActionID is set from CONFIRMING through COOLDOWN.
	SelectedActionID string `json:"selected_action_id,omitempty"`

	// RemainingSeconds is the confirmation countdown; nonzero only while
	// COUNTING_DOWN.
	RemainingSeconds int `json:"remaining_seconds"`

	// CooldownRemainingSeconds is nonzero only during COOLDOWN.
	CooldownRemainingSeconds int `json:"cooldown_remaining_seconds"`

	// LastStatus is the most recent user-visible status.
	LastStatus string `json:"last_status"`
}

// initialState is the state of a fresh controller.
func initialState() State {
	return State{
		Phase:      PhaseIdle,
		LastStatus: StatusReady,
	}
}

// Validate checks the snapshot's invariants.
func (s State) Validate() error {
	if s.RemainingSeconds < 0 || s.CooldownRemainingSeconds < 0 {
		return fmt.Errorf("negative counter in %s", s.Phase)
	}
	if s.RemainingSeconds != 0 && s.Phase != PhaseCountingDown {
		return fmt.Errorf("remaining seconds %d outside COUNTING_DOWN (phase %s)", s.RemainingSeconds, s.Phase)
	}
	if s.CooldownRemainingSeconds != 0 && s.Phase != PhaseCooldown {
		return fmt.Errorf("cooldown seconds %d outside COOLDOWN (phase %s)", s.CooldownRemainingSeconds, s.Phase)
	}
	hasSelection := s.SelectedActionID != ""
	needsSelection := s.Phase != PhaseIdle
	if hasSelection != needsSelection {
		return fmt.Errorf("selected action %q inconsistent with phase %s", s.SelectedActionID, s.Phase)
	}
	return nil
}
