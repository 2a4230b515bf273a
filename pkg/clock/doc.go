// Package clock abstracts time for timer-driven components.
//
// Components that count down or schedule deferred work take a Clock instead
// of calling the time package directly. Production code uses New, which is
// backed by the wall clock. Tests use a Fake, which only moves when the test
// calls Advance, so countdown and cooldown behavior can be verified tick by
// tick without real delays.
//
// # Fake Clock
//
// Fake.Advance fires every callback that becomes due within the advanced
// window, in deadline order, on the caller's goroutine. While a callback runs,
// Now reports the callback's own due time. Callbacks scheduled from inside a
// callback fire during the same Advance if they fall inside the window.
package clock
