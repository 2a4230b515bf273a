package emergency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/innerspark/emergency-go/pkg/action"
	"github.com/innerspark/emergency-go/pkg/clock"
	"github.com/innerspark/emergency-go/pkg/countdown"
	"github.com/innerspark/emergency-go/pkg/log"
)

// Controller drives the emergency action lifecycle.
//
// All methods are safe for concurrent use. Subscribers, Haptics and
// StatusPresenter are called with the controller's lock held and must not
// call Controller methods synchronously.
type Controller struct {
	mu sync.Mutex

	registry *action.Registry
	machine  machine
	cfg      Config
	clock    clock.Clock
	logger   *slog.Logger
	events   log.Logger

	confirm        *countdown.Timer
	cooldown       *countdown.Timer
	confirmHandle  countdown.Handle
	cooldownHandle countdown.Handle

	state       State
	exec        *execution
	execSeq     uint64
	lastFailure error
	closed      bool

	subMu       sync.Mutex
	subscribers []subscriber
	nextSubID   uint64
}

// execution is one in-flight handler run.
type execution struct {
	id       uint64
	actionID string
	started  time.Time
	cancel   context.CancelFunc
	timeout  clock.Timer
}

type subscriber struct {
	id uint64
	fn func(State)
}

// NewController creates a controller over the actions in registry.
func NewController(registry *action.Registry, cfg Config) (*Controller, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: nil registry", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	c := &Controller{
		registry: registry,
		cfg:      cfg,
		clock:    cfg.Clock,
		logger:   cfg.Logger.With("session_id", cfg.SessionID),
		events:   cfg.EventLog,
		state:    initialState(),
		machine: machine{
			cooldownSeconds: int(cfg.Cooldown / time.Second),
			hapticPattern:   cfg.HapticPattern,
			lookup:          registry.Lookup,
		},
	}
	c.confirm = countdown.New(c.clock, &c.mu)
	c.cooldown = countdown.New(c.clock, &c.mu)
	return c, nil
}

// SessionID returns the identifier attached to invocations and events.
func (c *Controller) SessionID() string {
	return c.cfg.SessionID
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastFailure returns the *ActionFailedError of the most recent failed
// execution, or nil if the most recent execution succeeded or none ran.
func (c *Controller) LastFailure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFailure
}

// RequestAction selects an action and moves IDLE to CONFIRMING.
//
// It returns a *CooldownError during cooldown, ErrBusy while another action
// is in progress, and ErrActionNotFound for unknown ids.
func (c *Controller) RequestAction(id string) error {
	return c.command("REQUEST", event{kind: evRequest, actionID: id})
}

// Confirm starts the countdown for the selected action, or executes it
// immediately if its countdown is zero seconds.
func (c *Controller) Confirm(id string) error {
	return c.command("CONFIRM", event{kind: evConfirm, actionID: id})
}

// Cancel aborts a running countdown. The handler does not run.
func (c *Controller) Cancel() error {
	return c.command("CANCEL", event{kind: evCancel})
}

// Dismiss closes the confirmation prompt without starting a countdown.
func (c *Controller) Dismiss() error {
	return c.command("DISMISS", event{kind: evDismiss})
}

// Subscribe registers fn to receive every state change, in order. The
// returned function removes the subscription; it may be called from fn.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	c.nextSubID++
	id := c.nextSubID
	c.subscribers = append(c.subscribers, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(id) })
	}
}

func (c *Controller) unsubscribe(id uint64) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for i, s := range c.subscribers {
		if s.id == id {
			c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
			return
		}
	}
}

// Close stops all timers, abandons any running handler, and drops all
// subscribers. Later commands return ErrClosed.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	c.stopTimersLocked()
	if ex := c.exec; ex != nil {
		c.exec = nil
		ex.timeout.Stop()
		ex.cancel()
		c.logger.Info("abandoning running action on close", "action", ex.actionID)
	}

	c.subMu.Lock()
	c.subscribers = nil
	c.subMu.Unlock()

	c.logger.Debug("controller closed", "phase", c.state.Phase)
	return nil
}

// command runs one user command as a turn.
func (c *Controller) command(name string, ev event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := ErrClosed
	if !c.closed {
		err = c.applyLocked(ev)
	}
	c.logCommand(name, ev.actionID, err)
	return err
}

// applyLocked runs the transition function, performs its effects and
// notifies subscribers if the state changed.
func (c *Controller) applyLocked(ev event) error {
	old := c.state
	next, effects, err := c.machine.apply(old, ev)
	if err != nil {
		return err
	}
	if verr := next.Validate(); verr != nil {
		c.logger.Error("state invariant violated", "error", verr, "event", ev.kind.String())
	}

	c.state = next
	if next.Phase != old.Phase {
		c.logTransition(old, next, ev.kind)
	}
	for _, eff := range effects {
		c.performLocked(eff)
	}
	if next != old {
		c.notify(next)
	}
	return nil
}

func (c *Controller) performLocked(eff Effect) {
	if eff.External() {
		c.logEffect(eff)
	}

	switch eff.Kind {
	case EffectVibrate:
		c.cfg.Haptics.Vibrate(eff.Pattern)
	case EffectShowStatus:
		c.cfg.Presenter.ShowStatus(eff.Status)
	case EffectStartCountdown:
		c.stopTimersLocked()
		c.confirmHandle = c.confirm.Start(eff.Seconds, c.onConfirmTick, c.onConfirmDone)
	case EffectStopTimers:
		c.stopTimersLocked()
	case EffectRunHandler:
		c.startExecutionLocked(eff.ActionID)
	case EffectStartCooldown:
		c.stopTimersLocked()
		c.cooldownHandle = c.cooldown.Start(eff.Seconds, c.onCooldownTick, c.onCooldownDone)
	}
}

func (c *Controller) stopTimersLocked() {
	c.confirm.Cancel(c.confirmHandle)
	c.cooldown.Cancel(c.cooldownHandle)
	c.confirmHandle = countdown.Handle{}
	c.cooldownHandle = countdown.Handle{}
}

// Countdown callbacks run inside a turn.

func (c *Controller) onConfirmTick(remaining int) {
	_ = c.applyLocked(event{kind: evCountdownTick, remaining: remaining})
}

func (c *Controller) onConfirmDone() {
	_ = c.applyLocked(event{kind: evCountdownDone})
}

func (c *Controller) onCooldownTick(remaining int) {
	_ = c.applyLocked(event{kind: evCooldownTick, remaining: remaining})
}

func (c *Controller) onCooldownDone() {
	_ = c.applyLocked(event{kind: evCooldownDone})
}

// startExecutionLocked runs the action's handler on its own goroutine. The
// first of handler return and execution timeout settles the execution.
func (c *Controller) startExecutionLocked(actionID string) {
	c.execSeq++
	ctx, cancel := context.WithCancel(context.Background())
	ex := &execution{
		id:       c.execSeq,
		actionID: actionID,
		started:  c.clock.Now(),
		cancel:   cancel,
	}
	id := ex.id
	ex.timeout = c.clock.AfterFunc(c.cfg.ExecutionTimeout, func() {
		c.settle(id, ErrExecutionTimeout)
	})
	c.exec = ex

	inv := action.Invocation{
		ActionID:  actionID,
		SessionID: c.cfg.SessionID,
		StartedAt: ex.started,
	}
	c.logger.Info("executing action", "action", actionID)
	go c.runHandler(ctx, id, inv)
}

func (c *Controller) runHandler(ctx context.Context, id uint64, inv action.Invocation) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
		c.settle(id, err)
	}()

	a, lerr := c.registry.Lookup(inv.ActionID)
	if lerr != nil {
		err = lerr
		return
	}
	inv.Label = a.Label
	err = a.Handler(ctx, inv)
}

// settle ends execution id with cause. Settlements for executions that are
// no longer current are ignored.
func (c *Controller) settle(id uint64, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ex := c.exec
	if c.closed || ex == nil || ex.id != id {
		c.logger.Warn("ignoring stale settlement", "execution", id, "error", cause)
		return
	}
	c.exec = nil
	ex.timeout.Stop()
	ex.cancel()

	elapsed := c.clock.Now().Sub(ex.started)
	if cause != nil {
		failure := &ActionFailedError{ActionID: ex.actionID, Cause: cause}
		c.lastFailure = failure
		c.logFailure(failure, elapsed)
	} else {
		c.lastFailure = nil
		c.logger.Info("action completed", "action", ex.actionID, "elapsed", elapsed)
	}
	_ = c.applyLocked(event{kind: evSettled, err: cause})
}

func (c *Controller) notify(s State) {
	c.subMu.Lock()
	subs := make([]subscriber, len(c.subscribers))
	copy(subs, c.subscribers)
	c.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(s)
	}
}

// Event logging.

func (c *Controller) logCommand(name, actionID string, err error) {
	cmd := &log.CommandEvent{Name: name, Accepted: err == nil}
	if err != nil {
		cmd.Rejection = err.Error()
		c.logger.Debug("command rejected", "command", name, "action", actionID, "error", err)
	}
	c.events.Log(log.Event{
		Timestamp: c.clock.Now(),
		SessionID: c.cfg.SessionID,
		Category:  log.CategoryCommand,
		ActionID:  actionID,
		Command:   cmd,
	})
}

func (c *Controller) logTransition(old, next State, reason eventKind) {
	seconds := next.RemainingSeconds
	if next.Phase == PhaseCooldown {
		seconds = next.CooldownRemainingSeconds
	}
	actionID := next.SelectedActionID
	if actionID == "" {
		actionID = old.SelectedActionID
	}

	c.logger.Debug("phase transition", "from", old.Phase, "to", next.Phase, "reason", reason.String(), "action", actionID)
	c.events.Log(log.Event{
		Timestamp: c.clock.Now(),
		SessionID: c.cfg.SessionID,
		Category:  log.CategoryTransition,
		ActionID:  actionID,
		Transition: &log.TransitionEvent{
			OldPhase: old.Phase.String(),
			NewPhase: next.Phase.String(),
			Reason:   reason.String(),
			Seconds:  seconds,
		},
	})
}

func (c *Controller) logEffect(eff Effect) {
	c.events.Log(log.Event{
		Timestamp: c.clock.Now(),
		SessionID: c.cfg.SessionID,
		Category:  log.CategoryEffect,
		ActionID:  eff.ActionID,
		Effect: &log.EffectEvent{
			Kind:    eff.Kind.String(),
			Status:  eff.Status,
			Pattern: eff.Pattern,
		},
	})
}

func (c *Controller) logFailure(failure *ActionFailedError, elapsed time.Duration) {
	timedOut := errors.Is(failure, ErrExecutionTimeout)
	c.logger.Error("action failed", "action", failure.ActionID, "error", failure.Cause, "timed_out", timedOut)
	c.events.Log(log.Event{
		Timestamp: c.clock.Now(),
		SessionID: c.cfg.SessionID,
		Category:  log.CategoryError,
		ActionID:  failure.ActionID,
		Error: &log.ErrorEventData{
			Message:  failure.Cause.Error(),
			TimedOut: timedOut,
			Elapsed:  elapsed,
		},
	})
}
