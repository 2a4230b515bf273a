package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/innerspark/emergency-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents      int
	EventsByCategory map[log.Category]int
	Sessions         map[string]int
	Executions       map[string]*ActionStats
	Rejections       int
	Cancellations    int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// ActionStats counts outcomes for one action.
type ActionStats struct {
	Executed int
	Failed   int
	TimedOut int
}

// CollectStats reads every event of path.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory: make(map[log.Category]int),
		Sessions:         make(map[string]int),
		Executions:       make(map[string]*ActionStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++
		stats.Sessions[event.SessionID]++

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		switch {
		case event.Command != nil && !event.Command.Accepted:
			stats.Rejections++
		case event.Transition != nil:
			switch event.Transition.Reason {
			case "cancel":
				stats.Cancellations++
			case "handler_settled":
				stats.action(event.ActionID).Executed++
			}
		case event.Error != nil:
			a := stats.action(event.ActionID)
			a.Failed++
			if event.Error.TimedOut {
				a.TimedOut++
			}
		}
	}
	return stats, nil
}

func (s *Stats) action(id string) *ActionStats {
	a, ok := s.Executions[id]
	if !ok {
		a = &ActionStats{}
		s.Executions[id] = a
	}
	return a
}

// RunStats prints statistics about path.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Total events: %d\n", stats.TotalEvents)
	if stats.TotalEvents == 0 {
		return nil
	}
	fmt.Fprintf(w, "Time range:   %s - %s (%v)\n",
		stats.TimeRange.Start.UTC().Format(timeLayout),
		stats.TimeRange.End.UTC().Format(timeLayout),
		stats.TimeRange.End.Sub(stats.TimeRange.Start))
	fmt.Fprintf(w, "Sessions:     %d\n", len(stats.Sessions))

	fmt.Fprintln(w, "\nBy category:")
	for c := log.CategoryCommand; c <= log.CategoryError; c++ {
		if n := stats.EventsByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %s: %d\n", c, n)
		}
	}

	fmt.Fprintf(w, "\nRejected commands: %d\n", stats.Rejections)
	fmt.Fprintf(w, "Cancelled countdowns: %d\n", stats.Cancellations)

	if len(stats.Executions) > 0 {
		ids := make([]string, 0, len(stats.Executions))
		for id := range stats.Executions {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		fmt.Fprintln(w, "\nExecutions:")
		for _, id := range ids {
			a := stats.Executions[id]
			fmt.Fprintf(w, "  %s: %d executed, %d failed (%d timed out)\n", id, a.Executed, a.Failed, a.TimedOut)
		}
	}
	return nil
}
