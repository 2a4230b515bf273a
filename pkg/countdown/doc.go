// Package countdown implements deadline-based countdown timers.
//
// A countdown runs for a whole number of seconds and reports the remaining
// time once per second before invoking a completion callback. Remaining time
// is always derived from an absolute deadline, never from a decremented
// counter: when the host process is suspended (a backgrounded mobile app,
// a sleeping laptop) the next tick after resume reflects the true elapsed
// time, and a countdown whose deadline passed while suspended completes on
// that tick.
//
// # Turn Lock
//
// A Timer shares a lock with its owner. The owner holds the lock while calling
// Start and Cancel, and the Timer holds the same lock while delivering tick and
// completion callbacks. Callbacks therefore run in the owner's turn and may
// read or modify the owner's state directly, but must not acquire the lock
// again.
//
// Because the cancellation check and the callback delivery happen under one
// lock, a Cancel that returns before a tick is delivered always wins: once
// Cancel returns, no callback of that countdown fires.
//
// # Zero Duration
//
// A zero-second countdown completes immediately: the completion callback runs
// before Start returns and no tick is reported.
package countdown
