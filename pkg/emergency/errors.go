package emergency

import (
	"errors"
	"fmt"

	"github.com/innerspark/emergency-go/pkg/action"
)

// Controller errors.
var (
	// ErrActionNotFound is returned when the requested id is not registered.
	ErrActionNotFound = action.ErrActionNotFound

	// ErrBusy is returned when a command is not valid while an action is
	// being confirmed, counted down, or executed.
	ErrBusy = errors.New("emergency action in progress")

	// ErrCooldownActive matches every *CooldownError.
	ErrCooldownActive = errors.New("cooldown active")

	// ErrInvalidTransition is returned for commands that make no sense in the
	// current phase, such as Cancel while idle.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrExecutionTimeout is the cause recorded when a handler exceeds the
	// execution timeout.
	ErrExecutionTimeout = errors.New("action execution timed out")

	// ErrClosed is returned for commands issued after Close.
	ErrClosed = errors.New("emergency controller closed")

	// ErrInvalidConfig is returned by NewController for unusable settings.
	ErrInvalidConfig = errors.New("invalid controller config")
)

// CooldownError is returned by RequestAction during cooldown.
type CooldownError struct {
	// Remaining is the number of whole seconds left in the cooldown.
	Remaining int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active: %d seconds remaining", e.Remaining)
}

// Is makes errors.Is(err, ErrCooldownActive) true.
func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}

// ActionFailedError records a handler that failed or timed out. It is never
// returned from a command; the controller absorbs it and exposes it through
// LastFailure and the event log.
type ActionFailedError struct {
	ActionID string
	Cause    error
}

func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("action %s failed: %v", e.ActionID, e.Cause)
}

func (e *ActionFailedError) Unwrap() error {
	return e.Cause
}

// Describe returns user-visible text for a command error.
func Describe(err error) string {
	var cooldown *CooldownError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cooldown):
		return fmt.Sprintf("Please wait %d seconds before using again", cooldown.Remaining)
	case errors.Is(err, ErrActionNotFound):
		return "That emergency action is not available"
	case errors.Is(err, ErrBusy):
		return "An emergency action is already in progress"
	case errors.Is(err, ErrInvalidTransition):
		return "That option is not available right now"
	case errors.Is(err, ErrClosed):
		return "Emergency help is not running"
	default:
		return "Something went wrong"
	}
}
