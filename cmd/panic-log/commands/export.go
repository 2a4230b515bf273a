package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/innerspark/emergency-go/pkg/log"
)

// RunExport writes the matching events of path in the given format to
// output, or to stdout if output is empty.
func RunExport(path, format, output string, opts FilterOptions) error {
	filter, err := opts.Build()
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	return Export(reader, format, w)
}

// Export writes every event of reader to w.
func Export(reader *log.Reader, format string, w io.Writer) error {
	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "json":
		return exportJSON(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, json, csv)", format)
	}
}

// jsonEvent is the export shape of a log.Event.
type jsonEvent struct {
	Timestamp  string               `json:"timestamp"`
	SessionID  string               `json:"session_id"`
	Category   string               `json:"category"`
	ActionID   string               `json:"action_id,omitempty"`
	Command    *log.CommandEvent    `json:"command,omitempty"`
	Transition *log.TransitionEvent `json:"transition,omitempty"`
	Effect     *log.EffectEvent     `json:"effect,omitempty"`
	Error      *log.ErrorEventData  `json:"error,omitempty"`
}

func toJSON(e log.Event) jsonEvent {
	return jsonEvent{
		Timestamp:  e.Timestamp.UTC().Format(timeLayout),
		SessionID:  e.SessionID,
		Category:   e.Category.String(),
		ActionID:   e.ActionID,
		Command:    e.Command,
		Transition: e.Transition,
		Effect:     e.Effect,
		Error:      e.Error,
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(toJSON(event)); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

func exportJSON(reader *log.Reader, w io.Writer) error {
	events, err := reader.All()
	if err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}
	out := make([]jsonEvent, 0, len(events))
	for _, e := range events {
		out = append(out, toJSON(e))
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "session_id", "category", "action_id", "detail"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		var detail string
		switch {
		case event.Command != nil:
			detail = event.Command.Name
		case event.Transition != nil:
			detail = event.Transition.OldPhase + "->" + event.Transition.NewPhase
		case event.Effect != nil:
			detail = event.Effect.Kind
		case event.Error != nil:
			detail = event.Error.Message
		}

		row := []string{
			event.Timestamp.UTC().Format(timeLayout),
			event.SessionID,
			event.Category.String(),
			event.ActionID,
			detail,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
}
