// Package emergency implements the emergency action controller behind the
// panic button and safety-plan flow.
//
// The user picks an emergency action (call a counselor, call a crisis line,
// notify emergency contacts, play calming audio). The controller runs a
// cancellable countdown before executing it, and afterwards enforces a
// mandatory cooldown before another action may be started.
//
// # Phases
//
//	IDLE --request--> CONFIRMING --confirm--> COUNTING_DOWN --deadline--> EXECUTING --settled--> COOLDOWN --expired--> IDLE
//	                      |                        |                          ^
//	                      +--dismiss--> IDLE       +--cancel--> IDLE          |
//	                      +--confirm (0 s countdown)------------------------->+
//
// Every executed action is followed by the full cooldown, including actions
// with no confirmation countdown. Only COUNTING_DOWN can be cancelled by the
// user; EXECUTING ends when the handler settles or the execution timeout
// fires, and COOLDOWN always runs to completion.
//
// # Transitions and Effects
//
// All state changes go through a single pure transition function that returns
// the next state and the effects to perform: vibrating, showing a status,
// starting or stopping timers, running the handler. The Controller performs
// the effects and notifies subscribers. Haptics and StatusPresenter are ports
// injected by the host, so the state machine is testable with no UI present.
//
// # Turns
//
// Commands, countdown ticks, and handler settlement each run as one turn
// under the controller's lock. Subscribers and ports are called inside the
// turn, in order, and must not call back into the controller synchronously.
// A Cancel that returns before the countdown's final tick is delivered
// always wins: the handler does not run.
//
// # Errors
//
// Command errors (ErrActionNotFound, ErrBusy, *CooldownError,
// ErrInvalidTransition) are returned synchronously and never change state.
// Handler failures and timeouts are absorbed: they set the status to
// "ActionFailed" and the controller still enters cooldown.
package emergency
