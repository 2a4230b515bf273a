// Package responder provides the built-in emergency action handlers.
//
// Handlers reach the outside world only through ports: a Dialer for phone
// calls, a ContactNotifier for emergency contacts, and an AudioPlayer for
// calming audio. Hosts supply real implementations; Simulator stands in for
// all three in the console and web tools.
package responder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/innerspark/emergency-go/pkg/action"
	"github.com/innerspark/emergency-go/pkg/config"
)

// Responder errors.
var (
	ErrDialUnsupported = errors.New("device cannot place calls")
	ErrNoContacts      = errors.New("no emergency contacts configured")
	ErrPortMissing     = errors.New("responder port not configured")
	ErrUnknownKind     = errors.New("unknown action kind")
)

// DefaultMessage is sent to contacts when an action has no message.
const DefaultMessage = "I need support right now. Please check on me."

// Dialer places phone calls.
type Dialer interface {
	// CanDial reports whether the device can call number.
	CanDial(number string) bool

	// Dial calls number. It returns once the call is handed off.
	Dial(ctx context.Context, number string) error
}

// ContactNotifier alerts emergency contacts.
type ContactNotifier interface {
	NotifyContacts(ctx context.Context, contacts []config.Contact, message string) error
}

// AudioPlayer plays calming audio.
type AudioPlayer interface {
	PlayCalming(ctx context.Context) error
}

// Ports bundles the handler dependencies. Unused ports may be nil.
type Ports struct {
	Dialer   Dialer
	Notifier ContactNotifier
	Audio    AudioPlayer

	// Logger is used for diagnostics. Nil discards.
	Logger *slog.Logger
}

func (p Ports) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p.Logger
}

// Handler builds the handler for a configured action.
func Handler(a config.Action, contacts []config.Contact, ports Ports) (action.Handler, error) {
	logger := ports.logger().With("action", a.ID)

	switch a.Kind {
	case config.KindDial:
		if ports.Dialer == nil {
			return nil, fmt.Errorf("%w: dialer for %s", ErrPortMissing, a.ID)
		}
		return dialHandler(ports.Dialer, a.Number, a.Contact, logger), nil

	case config.KindNotify:
		if ports.Notifier == nil {
			return nil, fmt.Errorf("%w: contact notifier for %s", ErrPortMissing, a.ID)
		}
		message := a.Message
		if message == "" {
			message = DefaultMessage
		}
		list := append([]config.Contact(nil), contacts...)
		return notifyHandler(ports.Notifier, list, message, logger), nil

	case config.KindAudio:
		if ports.Audio == nil {
			return nil, fmt.Errorf("%w: audio player for %s", ErrPortMissing, a.ID)
		}
		return audioHandler(ports.Audio, logger), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}
}

func dialHandler(d Dialer, number, contact string, logger *slog.Logger) action.Handler {
	return func(ctx context.Context, inv action.Invocation) error {
		if !d.CanDial(number) {
			return fmt.Errorf("%w: %s", ErrDialUnsupported, number)
		}
		logger.Info("dialing", "number", number, "contact", contact, "session_id", inv.SessionID)
		if err := d.Dial(ctx, number); err != nil {
			return fmt.Errorf("dial %s: %w", number, err)
		}
		return nil
	}
}

func notifyHandler(n ContactNotifier, contacts []config.Contact, message string, logger *slog.Logger) action.Handler {
	return func(ctx context.Context, inv action.Invocation) error {
		if len(contacts) == 0 {
			return ErrNoContacts
		}
		logger.Info("notifying emergency contacts", "count", len(contacts), "session_id", inv.SessionID)
		if err := n.NotifyContacts(ctx, contacts, message); err != nil {
			return fmt.Errorf("notify contacts: %w", err)
		}
		return nil
	}
}

func audioHandler(p AudioPlayer, logger *slog.Logger) action.Handler {
	return func(ctx context.Context, inv action.Invocation) error {
		logger.Info("playing calming audio", "session_id", inv.SessionID)
		if err := p.PlayCalming(ctx); err != nil {
			return fmt.Errorf("play calming audio: %w", err)
		}
		return nil
	}
}

// Register builds a handler for every configured action and registers it.
func Register(reg *action.Registry, cfg *config.Config, ports Ports) error {
	for _, a := range cfg.Actions {
		h, err := Handler(a, cfg.Contacts, ports)
		if err != nil {
			return err
		}
		err = reg.Register(action.Action{
			ID:             a.ID,
			Label:          a.Label,
			ConfirmSeconds: a.ConfirmSeconds,
			Handler:        h,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry creates a registry populated from cfg. The registry is strict
// if cfg.StrictRegistry is set.
func NewRegistry(cfg *config.Config, ports Ports) (*action.Registry, error) {
	reg := action.NewRegistry(
		action.WithStrict(cfg.StrictRegistry),
		action.WithLogger(ports.logger()),
	)
	if err := Register(reg, cfg, ports); err != nil {
		return nil, err
	}
	return reg, nil
}
