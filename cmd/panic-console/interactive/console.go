// Package interactive provides the interactive command-line interface for
// panic-console.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/innerspark/emergency-go/pkg/action"
	"github.com/innerspark/emergency-go/pkg/config"
	"github.com/innerspark/emergency-go/pkg/emergency"
)

// Console handles interactive mode for panic-console. It is also the
// controller's Haptics and StatusPresenter.
type Console struct {
	rl  *readline.Instance
	out io.Writer
	mu  sync.Mutex

	registry *action.Registry
	config   *config.Config
	ctrl     *emergency.Controller

	lastPhase emergency.Phase
}

var (
	_ emergency.Haptics         = (*Console)(nil)
	_ emergency.StatusPresenter = (*Console)(nil)
)

// New creates a console with a readline prompt.
func New(registry *action.Registry, cfg *config.Config) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "panic> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(registry),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := newConsole(rl.Stdout(), registry, cfg)
	c.rl = rl
	return c, nil
}

func newConsole(out io.Writer, registry *action.Registry, cfg *config.Config) *Console {
	return &Console{
		out:      out,
		registry: registry,
		config:   cfg,
	}
}

func completer(registry *action.Registry) *readline.PrefixCompleter {
	var ids []readline.PrefixCompleterInterface
	for _, id := range registry.IDs() {
		ids = append(ids, readline.PcItem(id))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("actions"),
		readline.PcItem("request", ids...),
		readline.PcItem("confirm", ids...),
		readline.PcItem("cancel"),
		readline.PcItem("dismiss"),
		readline.PcItem("status"),
		readline.PcItem("quit"),
	)
}

// Attach connects the console to ctrl and starts printing state changes.
func (c *Console) Attach(ctrl *emergency.Controller) {
	c.ctrl = ctrl
	c.lastPhase = ctrl.State().Phase
	ctrl.Subscribe(c.onState)
}

// Stdout returns a writer that coordinates with the readline prompt.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Stderr returns a writer for log output.
func (c *Console) Stderr() io.Writer {
	if c.rl != nil {
		return c.rl.Stderr()
	}
	return c.out
}

// Vibrate prints the vibration pattern.
func (c *Console) Vibrate(pattern []time.Duration) {
	steps := make([]string, len(pattern))
	for i, d := range pattern {
		steps[i] = d.String()
	}
	c.printf("*bzzt* vibrate [%s]\n", strings.Join(steps, " "))
}

// ShowStatus prints a status toast.
func (c *Console) ShowStatus(status string) {
	c.printf(">> %s\n", status)
}

// onState runs inside the controller's turn.
func (c *Console) onState(s emergency.State) {
	changed := s.Phase != c.lastPhase
	c.lastPhase = s.Phase

	switch s.Phase {
	case emergency.PhaseConfirming:
		if changed {
			c.printf("%s selected. Type 'confirm' to start, 'dismiss' to go back.\n", c.label(s.SelectedActionID))
		}
	case emergency.PhaseCountingDown:
		c.printf("%s in %d... (type 'cancel' to stop)\n", c.label(s.SelectedActionID), s.RemainingSeconds)
	case emergency.PhaseExecuting:
		c.printf("%s now...\n", c.label(s.SelectedActionID))
	case emergency.PhaseCooldown:
		if changed {
			c.printf("Cooldown: %d seconds before the next action.\n", s.CooldownRemainingSeconds)
		}
	case emergency.PhaseIdle:
		if changed {
			c.printf("Ready.\n")
		}
	}
}

func (c *Console) label(id string) string {
	if a, err := c.registry.Lookup(id); err == nil {
		return a.Label
	}
	return id
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			c.printf("Exiting...\n")
			cancel()
			return
		}

		if quit := c.Execute(line); quit {
			c.printf("Exiting...\n")
			cancel()
			return
		}
	}
}

// Execute runs one command line and reports whether the console should exit.
func (c *Console) Execute(line string) (quit bool) {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "actions", "a":
		c.cmdActions()
	case "request", "r":
		c.cmdRequest(args)
	case "confirm", "c":
		c.cmdConfirm(args)
	case "cancel", "x":
		c.report(c.ctrl.Cancel())
	case "dismiss", "d":
		c.report(c.ctrl.Dismiss())
	case "status", "s":
		c.cmdStatus()
	case "quit", "exit", "q":
		return true
	default:
		c.printf("Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	c.printf(`
Emergency Help Commands:
  actions            - List emergency actions
  request <id>       - Select an action
  confirm [id]       - Start the countdown for the selected action
  cancel             - Stop a running countdown
  dismiss            - Close the confirmation without acting
  status             - Show controller state
  quit               - Exit
`)
}

func (c *Console) cmdActions() {
	for _, id := range c.registry.IDs() {
		a, err := c.registry.Lookup(id)
		if err != nil {
			continue
		}
		countdown := "immediate"
		if a.ConfirmSeconds > 0 {
			countdown = fmt.Sprintf("%ds countdown", a.ConfirmSeconds)
		}
		extra := ""
		if ca, ok := c.config.Action(id); ok && ca.Number != "" {
			extra = "  " + ca.Number
			if ca.Contact != "" {
				extra += " (" + ca.Contact + ")"
			}
		}
		c.printf("  %-16s %-16s %-14s%s\n", id, a.Label, countdown, extra)
	}
}

func (c *Console) cmdRequest(args []string) {
	if len(args) != 1 {
		c.printf("Usage: request <id>\n")
		return
	}
	c.report(c.ctrl.RequestAction(args[0]))
}

func (c *Console) cmdConfirm(args []string) {
	id := c.ctrl.State().SelectedActionID
	if len(args) > 0 {
		id = args[0]
	}
	if id == "" {
		c.printf("Nothing selected. Use 'request <id>' first.\n")
		return
	}
	c.report(c.ctrl.Confirm(id))
}

func (c *Console) cmdStatus() {
	s := c.ctrl.State()
	c.printf("Phase:    %s\n", s.Phase)
	if s.SelectedActionID != "" {
		c.printf("Action:   %s\n", s.SelectedActionID)
	}
	switch s.Phase {
	case emergency.PhaseCountingDown:
		c.printf("Countdown: %ds\n", s.RemainingSeconds)
	case emergency.PhaseCooldown:
		c.printf("Cooldown: %ds\n", s.CooldownRemainingSeconds)
	}
	c.printf("Status:   %s\n", s.LastStatus)
	if err := c.ctrl.LastFailure(); err != nil {
		c.printf("Failure:  %v\n", err)
	}
}

func (c *Console) report(err error) {
	if err != nil {
		c.printf("! %s\n", emergency.Describe(err))
	}
}
