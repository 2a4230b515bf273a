package emergency

import (
	"fmt"
	"time"

	"github.com/innerspark/emergency-go/pkg/action"
)

// eventKind identifies an input to the state machine.
type eventKind uint8

const (
	evRequest eventKind = iota + 1
	evConfirm
	evCancel
	evDismiss
	evCountdownTick
	evCountdownDone
	evSettled
	evCooldownTick
	evCooldownDone
)

// String returns the transition reason recorded in the event log.
func (k eventKind) String() string {
	switch k {
	case evRequest:
		return "request"
	case evConfirm:
		return "confirm"
	case evCancel:
		return "cancel"
	case evDismiss:
		return "dismiss"
	case evCountdownTick:
		return "countdown_tick"
	case evCountdownDone:
		return "countdown_complete"
	case evSettled:
		return "handler_settled"
	case evCooldownTick:
		return "cooldown_tick"
	case evCooldownDone:
		return "cooldown_complete"
	default:
		return "unknown"
	}
}

// event is one input to the state machine.
type event struct {
	kind      eventKind
	actionID  string
	remaining int
	err       error
}

// lookupFunc resolves an action by id.
type lookupFunc func(id string) (action.Action, error)

// machine holds the fixed parameters of the transition function.
type machine struct {
	cooldownSeconds int
	hapticPattern   []time.Duration
	lookup          lookupFunc
}

// apply is the transition function. It returns the next state and the
// effects to perform, or an error with s unchanged. Stale timer events
// return s with no effects.
func (m machine) apply(s State, ev event) (State, []Effect, error) {
	switch ev.kind {
	case evRequest:
		return m.request(s, ev.actionID)
	case evConfirm:
		return m.confirm(s, ev.actionID)
	case evCancel:
		return m.cancel(s)
	case evDismiss:
		return m.dismiss(s)
	case evCountdownTick:
		if s.Phase == PhaseCountingDown && ev.remaining > 0 {
			s.RemainingSeconds = ev.remaining
		}
		return s, nil, nil
	case evCountdownDone:
		if s.Phase != PhaseCountingDown {
			return s, nil, nil
		}
		s.Phase = PhaseExecuting
		s.RemainingSeconds = 0
		return s, []Effect{{Kind: EffectRunHandler, ActionID: s.SelectedActionID}}, nil
	case evSettled:
		return m.settle(s, ev.err)
	case evCooldownTick:
		if s.Phase == PhaseCooldown && ev.remaining > 0 {
			s.CooldownRemainingSeconds = ev.remaining
		}
		return s, nil, nil
	case evCooldownDone:
		if s.Phase != PhaseCooldown {
			return s, nil, nil
		}
		s.Phase = PhaseIdle
		s.SelectedActionID = ""
		s.CooldownRemainingSeconds = 0
		return s, nil, nil
	default:
		return s, nil, fmt.Errorf("%w: unknown event %d", ErrInvalidTransition, ev.kind)
	}
}

func (m machine) request(s State, id string) (State, []Effect, error) {
	switch s.Phase {
	case PhaseIdle:
	case PhaseCooldown:
		return s, nil, &CooldownError{Remaining: s.CooldownRemainingSeconds}
	default:
		return s, nil, fmt.Errorf("%w: request %q while %s", ErrBusy, id, s.Phase)
	}

	if _, err := m.lookup(id); err != nil {
		return s, nil, err
	}
	s.Phase = PhaseConfirming
	s.SelectedActionID = id
	return s, nil, nil
}

func (m machine) confirm(s State, id string) (State, []Effect, error) {
	switch s.Phase {
	case PhaseConfirming:
	case PhaseCountingDown, PhaseExecuting:
		return s, nil, fmt.Errorf("%w: confirm %q while %s", ErrBusy, id, s.Phase)
	default:
		return s, nil, fmt.Errorf("%w: confirm %q while %s", ErrInvalidTransition, id, s.Phase)
	}
	if id != s.SelectedActionID {
		return s, nil, fmt.Errorf("%w: confirm %q but %q is selected", ErrInvalidTransition, id, s.SelectedActionID)
	}

	a, err := m.lookup(id)
	if err != nil {
		return s, nil, err
	}
	if a.ConfirmSeconds <= 0 {
		s.Phase = PhaseExecuting
		return s, []Effect{{Kind: EffectRunHandler, ActionID: id}}, nil
	}

	s.Phase = PhaseCountingDown
	s.RemainingSeconds = a.ConfirmSeconds
	return s, []Effect{
		{Kind: EffectVibrate, Pattern: m.hapticPattern, ActionID: id},
		{Kind: EffectStartCountdown, Seconds: a.ConfirmSeconds, ActionID: id},
	}, nil
}

func (m machine) cancel(s State) (State, []Effect, error) {
	switch s.Phase {
	case PhaseCountingDown:
	case PhaseExecuting:
		return s, nil, fmt.Errorf("%w: cannot cancel a running action", ErrBusy)
	default:
		return s, nil, fmt.Errorf("%w: cancel while %s", ErrInvalidTransition, s.Phase)
	}

	s.Phase = PhaseIdle
	s.SelectedActionID = ""
	s.RemainingSeconds = 0
	s.LastStatus = StatusCancelled
	return s, []Effect{
		{Kind: EffectStopTimers},
		{Kind: EffectShowStatus, Status: StatusCancelled},
	}, nil
}

func (m machine) dismiss(s State) (State, []Effect, error) {
	switch s.Phase {
	case PhaseConfirming:
	case PhaseExecuting:
		return s, nil, fmt.Errorf("%w: cannot dismiss a running action", ErrBusy)
	default:
		return s, nil, fmt.Errorf("%w: dismiss while %s", ErrInvalidTransition, s.Phase)
	}

	s.Phase = PhaseIdle
	s.SelectedActionID = ""
	return s, nil, nil
}

func (m machine) settle(s State, cause error) (State, []Effect, error) {
	if s.Phase != PhaseExecuting {
		return s, nil, nil
	}

	status := StatusActionFailed
	if cause == nil {
		label := s.SelectedActionID
		if a, err := m.lookup(s.SelectedActionID); err == nil {
			label = a.Label
		}
		status = completedStatus(label)
	}

	s.Phase = PhaseCooldown
	s.CooldownRemainingSeconds = m.cooldownSeconds
	s.LastStatus = status
	return s, []Effect{
		{Kind: EffectStopTimers},
		{Kind: EffectShowStatus, Status: status, ActionID: s.SelectedActionID},
		{Kind: EffectStartCooldown, Seconds: m.cooldownSeconds, ActionID: s.SelectedActionID},
	}, nil
}
