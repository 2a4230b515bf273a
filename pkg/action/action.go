package action

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Well-known action identifiers.
const (
	IDCallCounselor  = "call_counselor"
	IDCallCrisis     = "call_crisis"
	IDNotifyContacts = "notify_contacts"
	IDCalmingAudio   = "calming_audio"
)

// Action errors.
var (
	ErrActionNotFound  = errors.New("action not found")
	ErrDuplicateAction = errors.New("duplicate action registration")
	ErrInvalidAction   = errors.New("invalid action")
)

// Invocation describes one execution of an action handler.
type Invocation struct {
	// ActionID is the identifier of the executing action.
	ActionID string

	// Label is the action's user-facing label.
	Label string

	// SessionID identifies the controller session that triggered the action.
	SessionID string

	// StartedAt is when execution began.
	StartedAt time.Time
}

// Handler performs an action's side effect. It must honor ctx cancellation;
// the caller abandons the handler when ctx is done.
type Handler func(ctx context.Context, inv Invocation) error

// Action is a registered emergency action.
type Action struct {
	// ID uniquely identifies the action (e.g. "call_counselor").
	ID string

	// Label is shown to the user and used in status text.
	Label string

	// ConfirmSeconds is the length of the cancellable countdown before the
	// handler runs. Zero executes immediately on confirmation.
	ConfirmSeconds int

	// Handler performs the side effect.
	Handler Handler
}

// Validate checks that the action can be registered.
func (a Action) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidAction)
	}
	if a.Label == "" {
		return fmt.Errorf("%w: %s: empty label", ErrInvalidAction, a.ID)
	}
	if a.ConfirmSeconds < 0 {
		return fmt.Errorf("%w: %s: negative confirm seconds %d", ErrInvalidAction, a.ID, a.ConfirmSeconds)
	}
	if a.Handler == nil {
		return fmt.Errorf("%w: %s: nil handler", ErrInvalidAction, a.ID)
	}
	return nil
}
