package action

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, Invocation) error { return nil }

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(Action{ID: IDCallCounselor, Label: "Call Counselor", ConfirmSeconds: 5, Handler: noop}))
	require.NoError(t, r.Register(Action{ID: IDCalmingAudio, Label: "Calming Audio", Handler: noop}))

	a, err := r.Lookup(IDCallCounselor)
	require.NoError(t, err)
	assert.Equal(t, "Call Counselor", a.Label)
	assert.Equal(t, 5, a.ConfirmSeconds)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{IDCallCounselor, IDCalmingAudio}, r.IDs())
}

func TestRegistryLookupUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Lookup("call_batman")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrActionNotFound), "error %v should match ErrActionNotFound", err)
	assert.Contains(t, err.Error(), "call_batman")
}

func TestRegistryValidation(t *testing.T) {
	tests := []struct {
		name   string
		action Action
	}{
		{"EmptyID", Action{Label: "x", Handler: noop}},
		{"EmptyLabel", Action{ID: "x", Handler: noop}},
		{"NegativeConfirm", Action{ID: "x", Label: "x", ConfirmSeconds: -1, Handler: noop}},
		{"NilHandler", Action{ID: "x", Label: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			err := r.Register(tt.action)
			if !errors.Is(err, ErrInvalidAction) {
				t.Errorf("Register() error = %v, want ErrInvalidAction", err)
			}
			if r.Len() != 0 {
				t.Errorf("Len() = %d after rejected registration, want 0", r.Len())
			}
		})
	}
}

func TestRegistryDuplicateLastWriteWins(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	r := NewRegistry(WithLogger(logger))

	require.NoError(t, r.Register(Action{ID: IDCallCrisis, Label: "Crisis Line", ConfirmSeconds: 3, Handler: noop}))
	require.NoError(t, r.Register(Action{ID: IDCallCrisis, Label: "Crisis Line (Alt)", ConfirmSeconds: 4, Handler: noop}))

	a, err := r.Lookup(IDCallCrisis)
	require.NoError(t, err)
	assert.Equal(t, "Crisis Line (Alt)", a.Label)
	assert.Equal(t, 4, a.ConfirmSeconds)
	assert.Equal(t, 1, r.Len())

	assert.True(t, strings.Contains(buf.String(), "registered twice"), "expected warning, got %q", buf.String())
}

func TestRegistryDuplicateStrict(t *testing.T) {
	r := NewRegistry(WithStrict(true))

	require.NoError(t, r.Register(Action{ID: IDCallCrisis, Label: "Crisis Line", ConfirmSeconds: 3, Handler: noop}))
	err := r.Register(Action{ID: IDCallCrisis, Label: "Other", Handler: noop})
	assert.True(t, errors.Is(err, ErrDuplicateAction), "error %v should match ErrDuplicateAction", err)

	a, _ := r.Lookup(IDCallCrisis)
	assert.Equal(t, "Crisis Line", a.Label, "strict registry must keep the first registration")
}

func TestRegistryMustRegisterPanics(t *testing.T) {
	r := NewRegistry()
	assert.Panics(t, func() { r.MustRegister(Action{ID: "broken"}) })
}
