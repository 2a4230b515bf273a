// Package config loads the emergency controller configuration.
//
// Defaults are embedded in the binary. Load overlays a YAML file on top of
// them; unknown keys are rejected so typos surface at startup.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/innerspark/emergency-go/pkg/emergency"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Action kinds.
const (
	KindDial   = "dial"
	KindNotify = "notify"
	KindAudio  = "audio"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config is the top-level configuration file.
type Config struct {
	Cooldown         time.Duration   `yaml:"cooldown"`
	ExecutionTimeout time.Duration   `yaml:"execution_timeout"`
	HapticPattern    []time.Duration `yaml:"haptic_pattern"`

	// StrictRegistry rejects duplicate action ids instead of replacing them.
	StrictRegistry bool `yaml:"strict_registry"`

	Actions  []Action  `yaml:"actions"`
	Contacts []Contact `yaml:"contacts"`
}

// Action describes one emergency action and the built-in responder behind it.
type Action struct {
	ID             string `yaml:"id"`
	Label          string `yaml:"label"`
	ConfirmSeconds int    `yaml:"confirm_seconds"`

	// Kind selects the responder: dial, notify or audio.
	Kind string `yaml:"kind"`

	// Number is dialed by dial actions.
	Number string `yaml:"number,omitempty"`

	// Contact names who answers Number.
	Contact string `yaml:"contact,omitempty"`

	// Message is sent by notify actions.
	Message string `yaml:"message,omitempty"`
}

// Contact is an emergency contact reached by notify actions.
type Contact struct {
	Name         string `yaml:"name"`
	Relationship string `yaml:"relationship,omitempty"`
	Phone        string `yaml:"phone"`
	Primary      bool   `yaml:"primary,omitempty"`
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg := &Config{}
	if err := decode(defaultsYAML, cfg); err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load reads the file at path over the defaults and validates the result.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := decode(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := decode(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks timings and the action table.
func (c *Config) Validate() error {
	if err := c.Controller().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	seen := make(map[string]bool, len(c.Actions))
	for i, a := range c.Actions {
		if a.ID == "" {
			return fmt.Errorf("%w: action %d has no id", ErrInvalid, i)
		}
		if seen[a.ID] && c.StrictRegistry {
			return fmt.Errorf("%w: action %q listed twice", ErrInvalid, a.ID)
		}
		seen[a.ID] = true
		if a.Label == "" {
			return fmt.Errorf("%w: action %q has no label", ErrInvalid, a.ID)
		}
		if a.ConfirmSeconds < 0 {
			return fmt.Errorf("%w: action %q has negative confirm_seconds", ErrInvalid, a.ID)
		}
		switch a.Kind {
		case KindDial:
			if a.Number == "" {
				return fmt.Errorf("%w: dial action %q has no number", ErrInvalid, a.ID)
			}
		case KindNotify, KindAudio:
		default:
			return fmt.Errorf("%w: action %q has unknown kind %q", ErrInvalid, a.ID, a.Kind)
		}
	}

	for i, ct := range c.Contacts {
		if ct.Name == "" || ct.Phone == "" {
			return fmt.Errorf("%w: contact %d needs a name and phone", ErrInvalid, i)
		}
	}
	return nil
}

// Controller returns the controller timings. Ports, clock and logging are
// left for the caller to fill in.
func (c *Config) Controller() emergency.Config {
	cfg := emergency.DefaultConfig()
	cfg.Cooldown = c.Cooldown
	cfg.ExecutionTimeout = c.ExecutionTimeout
	if c.HapticPattern != nil {
		cfg.HapticPattern = append([]time.Duration(nil), c.HapticPattern...)
	}
	return cfg
}

// Action returns the configured action with the given id.
func (c *Config) Action(id string) (Action, bool) {
	for _, a := range c.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}
