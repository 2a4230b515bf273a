package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30*time.Second, cfg.Cooldown)
	assert.Equal(t, 10*time.Second, cfg.ExecutionTimeout)
	assert.Equal(t, []time.Duration{0, 500 * time.Millisecond, 200 * time.Millisecond, 500 * time.Millisecond}, cfg.HapticPattern)
	assert.False(t, cfg.StrictRegistry)

	want := map[string]struct {
		label   string
		seconds int
		kind    string
	}{
		"call_counselor":  {"Call Counselor", 5, KindDial},
		"call_crisis":     {"Crisis Line", 3, KindDial},
		"notify_contacts": {"Notify Contacts", 10, KindNotify},
		"calming_audio":   {"Calming Audio", 0, KindAudio},
	}
	require.Len(t, cfg.Actions, len(want))
	for id, w := range want {
		a, ok := cfg.Action(id)
		require.True(t, ok, id)
		assert.Equal(t, w.label, a.Label)
		assert.Equal(t, w.seconds, a.ConfirmSeconds)
		assert.Equal(t, w.kind, a.Kind)
	}

	counselor, _ := cfg.Action("call_counselor")
	assert.Equal(t, "+256-700-123-456", counselor.Number)
	assert.Len(t, cfg.Contacts, 3)
	assert.True(t, cfg.Contacts[0].Primary)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panic.yaml")
	data := `
cooldown: 5s
strict_registry: true
actions:
  - id: call_crisis
    label: Crisis Line
    confirm_seconds: 2
    kind: dial
    number: "112"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Cooldown)
	assert.Equal(t, 10*time.Second, cfg.ExecutionTimeout, "unset keys keep their defaults")
	assert.True(t, cfg.StrictRegistry)
	require.Len(t, cfg.Actions, 1, "a listed table replaces the default one")
	assert.Equal(t, "112", cfg.Actions[0].Number)
	assert.Len(t, cfg.Contacts, 3)

	ctrl := cfg.Controller()
	assert.Equal(t, 5*time.Second, ctrl.Cooldown)
	assert.Len(t, ctrl.HapticPattern, 4)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	tests := []struct {
		name string
		data string
	}{
		{"UnknownKey", "cooldwn: 5s\n"},
		{"BadDuration", "cooldown: soon\n"},
		{"ShortCooldown", "cooldown: 500ms\n"},
		{"FractionalCooldown", "cooldown: 1500ms\n"},
		{"ZeroTimeout", "execution_timeout: 0s\n"},
		{"UnknownKind", "actions:\n  - {id: x, label: X, kind: teleport}\n"},
		{"DialWithoutNumber", "actions:\n  - {id: x, label: X, kind: dial}\n"},
		{"MissingLabel", "actions:\n  - {id: x, kind: audio}\n"},
		{"NegativeSeconds", "actions:\n  - {id: x, label: X, kind: audio, confirm_seconds: -1}\n"},
		{"ContactWithoutPhone", "contacts:\n  - {name: Someone}\n"},
		{"StrictDuplicate", "strict_registry: true\nactions:\n  - {id: x, label: X, kind: audio}\n  - {id: x, label: Y, kind: audio}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseAllowsDuplicateWhenLenient(t *testing.T) {
	cfg, err := Parse([]byte("actions:\n  - {id: x, label: X, kind: audio}\n  - {id: x, label: Y, kind: audio}\n"))
	require.NoError(t, err)
	assert.Len(t, cfg.Actions, 2)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
