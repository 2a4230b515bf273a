// Package action defines emergency actions and the registry that maps action
// identifiers to them.
//
// An Action pairs a user-facing label and a confirmation countdown length
// with a Handler that performs the actual side effect (placing a call,
// notifying contacts, starting audio). Handlers are opaque to the rest of the
// system: callers only observe whether they succeeded.
//
// Actions are registered once at startup and are immutable afterwards.
// Registering the same identifier twice is a configuration mistake. In strict
// mode (debug builds, tests) the registry rejects it with ErrDuplicateAction;
// otherwise it logs a warning and the later registration replaces the earlier
// one.
package action
