package responder

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/innerspark/emergency-go/pkg/action"
	"github.com/innerspark/emergency-go/pkg/clock"
	"github.com/innerspark/emergency-go/pkg/config"
)

type stubDialer struct {
	mock.Mock
}

func (s *stubDialer) CanDial(number string) bool {
	return s.Called(number).Bool(0)
}

func (s *stubDialer) Dial(ctx context.Context, number string) error {
	return s.Called(ctx, number).Error(0)
}

type stubNotifier struct {
	mock.Mock
}

func (s *stubNotifier) NotifyContacts(ctx context.Context, contacts []config.Contact, message string) error {
	return s.Called(ctx, contacts, message).Error(0)
}

type stubAudio struct {
	mock.Mock
}

func (s *stubAudio) PlayCalming(ctx context.Context) error {
	return s.Called(ctx).Error(0)
}

func newStubPorts() (Ports, *stubDialer, *stubNotifier, *stubAudio) {
	d, n, a := &stubDialer{}, &stubNotifier{}, &stubAudio{}
	return Ports{Dialer: d, Notifier: n, Audio: a}, d, n, a
}

func inv(id string) action.Invocation {
	return action.Invocation{ActionID: id, SessionID: "s1"}
}

// ===========================================================================
// Handlers
// ===========================================================================

func TestDialHandler(t *testing.T) {
	ports, d, _, _ := newStubPorts()
	d.On("CanDial", "+256-800-567-890").Return(true)
	d.On("Dial", mock.Anything, "+256-800-567-890").Return(nil)

	cfg := config.Default()
	a, _ := cfg.Action(action.IDCallCrisis)
	h, err := Handler(a, cfg.Contacts, ports)
	require.NoError(t, err)

	assert.NoError(t, h(context.Background(), inv(a.ID)))
	d.AssertExpectations(t)
}

func TestDialHandler_Unsupported(t *testing.T) {
	ports, d, _, _ := newStubPorts()
	d.On("CanDial", mock.Anything).Return(false)

	cfg := config.Default()
	a, _ := cfg.Action(action.IDCallCounselor)
	h, err := Handler(a, cfg.Contacts, ports)
	require.NoError(t, err)

	err = h(context.Background(), inv(a.ID))
	assert.ErrorIs(t, err, ErrDialUnsupported)
	d.AssertNotCalled(t, "Dial", mock.Anything, mock.Anything)
}

func TestDialHandler_DialError(t *testing.T) {
	ports, d, _, _ := newStubPorts()
	boom := errors.New("line busy")
	d.On("CanDial", mock.Anything).Return(true)
	d.On("Dial", mock.Anything, mock.Anything).Return(boom)

	h, err := Handler(config.Action{ID: "x", Label: "X", Kind: config.KindDial, Number: "1"}, nil, ports)
	require.NoError(t, err)

	assert.ErrorIs(t, h(context.Background(), inv("x")), boom)
}

func TestNotifyHandler(t *testing.T) {
	ports, _, n, _ := newStubPorts()
	cfg := config.Default()
	n.On("NotifyContacts", mock.Anything, cfg.Contacts, "help").Return(nil)

	h, err := Handler(config.Action{ID: "n", Label: "N", Kind: config.KindNotify, Message: "help"}, cfg.Contacts, ports)
	require.NoError(t, err)

	assert.NoError(t, h(context.Background(), inv("n")))
	n.AssertExpectations(t)
}

func TestNotifyHandler_DefaultMessage(t *testing.T) {
	ports, _, n, _ := newStubPorts()
	contacts := []config.Contact{{Name: "A", Phone: "1"}}
	n.On("NotifyContacts", mock.Anything, contacts, DefaultMessage).Return(nil)

	h, err := Handler(config.Action{ID: "n", Label: "N", Kind: config.KindNotify}, contacts, ports)
	require.NoError(t, err)

	assert.NoError(t, h(context.Background(), inv("n")))
	n.AssertExpectations(t)
}

func TestNotifyHandler_NoContacts(t *testing.T) {
	ports, _, n, _ := newStubPorts()

	h, err := Handler(config.Action{ID: "n", Label: "N", Kind: config.KindNotify}, nil, ports)
	require.NoError(t, err)

	assert.ErrorIs(t, h(context.Background(), inv("n")), ErrNoContacts)
	n.AssertNotCalled(t, "NotifyContacts", mock.Anything, mock.Anything, mock.Anything)
}

func TestAudioHandler(t *testing.T) {
	ports, _, _, a := newStubPorts()
	a.On("PlayCalming", mock.Anything).Return(nil)

	h, err := Handler(config.Action{ID: "c", Label: "C", Kind: config.KindAudio}, nil, ports)
	require.NoError(t, err)

	assert.NoError(t, h(context.Background(), inv("c")))
	a.AssertNumberOfCalls(t, "PlayCalming", 1)
}

func TestHandler_MissingPortAndUnknownKind(t *testing.T) {
	_, err := Handler(config.Action{ID: "x", Label: "X", Kind: config.KindDial, Number: "1"}, nil, Ports{})
	assert.ErrorIs(t, err, ErrPortMissing)

	_, err = Handler(config.Action{ID: "x", Label: "X", Kind: config.KindAudio}, nil, Ports{})
	assert.ErrorIs(t, err, ErrPortMissing)

	ports, _, _, _ := newStubPorts()
	_, err = Handler(config.Action{ID: "x", Label: "X", Kind: "teleport"}, nil, ports)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

// ===========================================================================
// Registration
// ===========================================================================

func TestNewRegistry(t *testing.T) {
	ports, _, _, _ := newStubPorts()

	reg, err := NewRegistry(config.Default(), ports)
	require.NoError(t, err)

	assert.Equal(t, []string{
		action.IDCallCounselor,
		action.IDCallCrisis,
		action.IDCalmingAudio,
		action.IDNotifyContacts,
	}, reg.IDs())

	a, err := reg.Lookup(action.IDNotifyContacts)
	require.NoError(t, err)
	assert.Equal(t, "Notify Contacts", a.Label)
	assert.Equal(t, 10, a.ConfirmSeconds)
}

func TestNewRegistry_StrictDuplicate(t *testing.T) {
	ports, _, _, _ := newStubPorts()
	cfg := config.Default()
	cfg.StrictRegistry = true
	cfg.Actions = append(cfg.Actions, cfg.Actions[0])

	_, err := NewRegistry(cfg, ports)
	assert.ErrorIs(t, err, action.ErrDuplicateAction)
}

func TestNewRegistry_LenientDuplicateReplaces(t *testing.T) {
	ports, _, _, _ := newStubPorts()
	cfg := config.Default()
	dup := cfg.Actions[0]
	dup.Label = "Call My Counselor"
	cfg.Actions = append(cfg.Actions, dup)

	reg, err := NewRegistry(cfg, ports)
	require.NoError(t, err)
	a, _ := reg.Lookup(dup.ID)
	assert.Equal(t, "Call My Counselor", a.Label)
	assert.Equal(t, 4, reg.Len())
}

// ===========================================================================
// Simulator
// ===========================================================================

func TestSimulator(t *testing.T) {
	var out bytes.Buffer
	sim := &Simulator{Out: &out, Unreachable: []string{"000"}}

	assert.True(t, sim.CanDial("112"))
	assert.False(t, sim.CanDial("000"))
	require.NoError(t, sim.Dial(context.Background(), "112"))
	require.NoError(t, sim.NotifyContacts(context.Background(), []config.Contact{{Name: "A"}, {Name: "B"}}, "hi"))
	require.NoError(t, sim.PlayCalming(context.Background()))

	assert.Contains(t, out.String(), "[simulated] calling 112")
	assert.Contains(t, out.String(), `notifying A, B: "hi"`)
	assert.Contains(t, out.String(), "playing calming audio")
}

func TestSimulator_DelayAndCancel(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	sim := &Simulator{Delay: 2 * time.Second, Clock: clk, Fail: errors.New("no audio device")}

	done := make(chan error, 1)
	go func() { done <- sim.PlayCalming(context.Background()) }()

	require.Eventually(t, func() bool { return clk.Pending() == 1 }, time.Second, time.Millisecond)
	clk.Advance(2 * time.Second)
	assert.EqualError(t, <-done, "no audio device")

	ctx, cancel := context.WithCancel(context.Background())
	go func() { done <- sim.Dial(ctx, "112") }()
	require.Eventually(t, func() bool { return clk.Pending() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
