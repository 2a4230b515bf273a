package responder

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/innerspark/emergency-go/pkg/clock"
	"github.com/innerspark/emergency-go/pkg/config"
)

// Simulator implements every port by writing what it would do to Out. Each
// operation takes Delay on Clock, honoring ctx.
type Simulator struct {
	Out   io.Writer
	Delay time.Duration
	Clock clock.Clock

	// Fail, if set, makes every operation return it after the delay.
	Fail error

	// Unreachable numbers make CanDial return false.
	Unreachable []string

	mu sync.Mutex
}

var (
	_ Dialer          = (*Simulator)(nil)
	_ ContactNotifier = (*Simulator)(nil)
	_ AudioPlayer     = (*Simulator)(nil)
)

// CanDial reports false for numbers listed in Unreachable.
func (s *Simulator) CanDial(number string) bool {
	for _, n := range s.Unreachable {
		if n == number {
			return false
		}
	}
	return true
}

// Dial prints the call.
func (s *Simulator) Dial(ctx context.Context, number string) error {
	s.printf("calling %s\n", number)
	return s.wait(ctx)
}

// NotifyContacts prints one line per contact.
func (s *Simulator) NotifyContacts(ctx context.Context, contacts []config.Contact, message string) error {
	names := make([]string, 0, len(contacts))
	for _, c := range contacts {
		names = append(names, c.Name)
	}
	s.printf("notifying %s: %q\n", strings.Join(names, ", "), message)
	return s.wait(ctx)
}

// PlayCalming prints the playback.
func (s *Simulator) PlayCalming(ctx context.Context) error {
	s.printf("playing calming audio\n")
	return s.wait(ctx)
}

func (s *Simulator) printf(format string, args ...any) {
	if s.Out == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.Out, "[simulated] "+format, args...)
}

func (s *Simulator) wait(ctx context.Context) error {
	if s.Delay > 0 {
		clk := s.Clock
		if clk == nil {
			clk = clock.New()
		}
		done := make(chan struct{})
		t := clk.AfterFunc(s.Delay, func() { close(done) })
		select {
		case <-done:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	return s.Fail
}
