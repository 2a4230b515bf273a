// Package commands implements the panic-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/innerspark/emergency-go/pkg/log"
)

const timeLayout = "2006-01-02T15:04:05.000Z"

// RunView prints the matching events of path in human-readable form.
func RunView(path string, opts FilterOptions, w io.Writer) error {
	filter, err := opts.Build()
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}

// formatEvent writes one line per event.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format(timeLayout)
	session := shortenSessionID(event.SessionID)

	var detail string
	switch {
	case event.Command != nil:
		c := event.Command
		detail = c.Name
		if event.ActionID != "" {
			detail += " " + event.ActionID
		}
		if c.Accepted {
			detail += " ok"
		} else {
			detail += " rejected: " + c.Rejection
		}
	case event.Transition != nil:
		tr := event.Transition
		detail = fmt.Sprintf("%s -> %s (%s)", tr.OldPhase, tr.NewPhase, tr.Reason)
		if tr.Seconds > 0 {
			detail += fmt.Sprintf(" %ds", tr.Seconds)
		}
	case event.Effect != nil:
		e := event.Effect
		detail = e.Kind
		if e.Status != "" {
			detail += fmt.Sprintf(" %q", e.Status)
		}
		if len(e.Pattern) > 0 {
			detail += " " + formatPattern(e.Pattern)
		}
	case event.Error != nil:
		e := event.Error
		detail = e.Message
		if e.TimedOut {
			detail += " (timed out)"
		}
		if e.Elapsed > 0 {
			detail += fmt.Sprintf(" after %v", e.Elapsed)
		}
	default:
		detail = "-"
	}

	fmt.Fprintf(w, "%s [session:%s] %-10s %s\n", ts, session, event.Category, detail)
}

func formatPattern(p []time.Duration) string {
	parts := make([]string, len(p))
	for i, d := range p {
		parts[i] = d.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// shortenSessionID returns the first 8 characters of a UUID session id.
func shortenSessionID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}
