package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/innerspark/emergency-go/pkg/action"
	"github.com/innerspark/emergency-go/pkg/clock"
	"github.com/innerspark/emergency-go/pkg/config"
	"github.com/innerspark/emergency-go/pkg/emergency"
)

//go:embed static/*
var staticFiles embed.FS

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Port    int
	Version string

	// Heartbeat is the interval of keep-alive events on the event stream.
	Heartbeat time.Duration

	// Clock drives heartbeats. Nil uses the real clock.
	Clock clock.Clock

	// Logger is used for request diagnostics. Nil discards.
	Logger *slog.Logger
}

// Server is the HTTP front end of the emergency controller. It is also the
// controller's Haptics and StatusPresenter, forwarding both to event stream
// clients.
type Server struct {
	config   ServerConfig
	router   *mux.Router
	server   *http.Server
	registry *action.Registry
	actions  *config.Config
	ctrl     *emergency.Controller
	hub      *hub
}

var (
	_ emergency.Haptics         = (*Server)(nil)
	_ emergency.StatusPresenter = (*Server)(nil)
)

// NewServer creates a server for the actions in registry. Attach must be
// called before serving.
func NewServer(cfg ServerConfig, registry *action.Registry, actions *config.Config) *Server {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 15 * time.Second
	}

	s := &Server{
		config:   cfg,
		router:   mux.NewRouter(),
		registry: registry,
		actions:  actions,
		hub:      newHub(),
	}
	s.registerRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Attach connects the server to ctrl.
func (s *Server) Attach(ctrl *emergency.Controller) {
	s.ctrl = ctrl
	ctrl.Subscribe(func(st emergency.State) {
		s.hub.publish(streamEvent{name: "state", data: st})
	})
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/actions", s.handleActions).Methods(http.MethodGet)
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/actions/{id}/request", s.handleRequest).Methods(http.MethodPost)
	api.HandleFunc("/actions/{id}/confirm", s.handleConfirm).Methods(http.MethodPost)
	api.HandleFunc("/cancel", s.handleCancel).Methods(http.MethodPost)
	api.HandleFunc("/dismiss", s.handleDismiss).Methods(http.MethodPost)
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)

	s.router.PathPrefix("/").HandlerFunc(s.handleStatic).Methods(http.MethodGet)
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version := s.config.Version
	if version == "" {
		version = "dev"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        version,
		"session_id":     s.ctrl.SessionID(),
		"stream_clients": s.hub.count(),
	})
}

// actionInfo is the listing shape of an action.
type actionInfo struct {
	ID             string `json:"id"`
	Label          string `json:"label"`
	ConfirmSeconds int    `json:"confirm_seconds"`
	Kind           string `json:"kind,omitempty"`
	Number         string `json:"number,omitempty"`
	Contact        string `json:"contact,omitempty"`
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	ids := s.registry.IDs()
	out := make([]actionInfo, 0, len(ids))
	for _, id := range ids {
		a, err := s.registry.Lookup(id)
		if err != nil {
			continue
		}
		info := actionInfo{ID: a.ID, Label: a.Label, ConfirmSeconds: a.ConfirmSeconds}
		if ca, ok := s.actions.Action(id); ok {
			info.Kind = ca.Kind
			info.Number = ca.Number
			info.Contact = ca.Contact
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.ctrl.RequestAction(mux.Vars(r)["id"]))
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.ctrl.Confirm(mux.Vars(r)["id"]))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.ctrl.Cancel())
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, s.ctrl.Dismiss())
}

// command writes the state after a successful command or the error response.
func (s *Server) command(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		s.config.Logger.Debug("command rejected", "path", r.URL.Path, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

// errorResponse is the body of a rejected command.
type errorResponse struct {
	Error                    string `json:"error"`
	Detail                   string `json:"detail"`
	CooldownRemainingSeconds int    `json:"cooldown_remaining_seconds,omitempty"`
}

// writeError maps controller errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: emergency.Describe(err), Detail: err.Error()}
	status := http.StatusInternalServerError

	var cooldown *emergency.CooldownError
	switch {
	case errors.As(err, &cooldown):
		status = http.StatusTooManyRequests
		resp.CooldownRemainingSeconds = cooldown.Remaining
		w.Header().Set("Retry-After", strconv.Itoa(cooldown.Remaining))
	case errors.Is(err, emergency.ErrActionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, emergency.ErrBusy), errors.Is(err, emergency.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, emergency.ErrClosed):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleEvents streams state changes and effects as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, unsubscribe := s.hub.subscribe()
	defer unsubscribe()

	beat := make(chan struct{}, 1)
	heartbeat := clock.Every(s.config.Clock, s.config.Heartbeat, func() {
		select {
		case beat <- struct{}{}:
		default:
		}
	})
	defer heartbeat.Stop()

	s.config.Logger.Debug("event stream opened", "remote", r.RemoteAddr)
	defer s.config.Logger.Debug("event stream closed", "remote", r.RemoteAddr)

	if err := writeEvent(w, streamEvent{name: "state", data: s.ctrl.State()}); err != nil {
		return
	}
	flusher.Flush()

	for {
		var ev streamEvent
		select {
		case <-r.Context().Done():
			return
		case ev = <-events:
		case <-beat:
			ev = streamEvent{name: "heartbeat", data: map[string]string{}}
		}
		if err := writeEvent(w, ev); err != nil {
			return
		}
		flusher.Flush()
	}
}

// Vibrate forwards the pattern to event stream clients in milliseconds.
func (s *Server) Vibrate(pattern []time.Duration) {
	ms := make([]int64, len(pattern))
	for i, d := range pattern {
		ms[i] = d.Milliseconds()
	}
	s.hub.publish(streamEvent{name: "vibrate", data: map[string][]int64{"pattern_ms": ms}})
}

// ShowStatus forwards the status to event stream clients.
func (s *Server) ShowStatus(status string) {
	s.config.Logger.Info("status", "status", status)
	s.hub.publish(streamEvent{name: "status", data: map[string]string{"status": status}})
}

// handleStatic serves the embedded UI.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeFileFS(w, r, staticFS, "index.html")
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and closes open event streams.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// streamEvent is one server-sent event.
type streamEvent struct {
	name string
	data any
}

func writeEvent(w io.Writer, ev streamEvent) error {
	data, err := json.Marshal(ev.data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, data)
	return err
}

// hub fans events out to stream clients. Slow clients miss events rather
// than stall the controller; every state event carries the full state.
type hub struct {
	mu      sync.Mutex
	clients map[chan streamEvent]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[chan streamEvent]struct{})}
}

func (h *hub) subscribe() (<-chan streamEvent, func()) {
	ch := make(chan streamEvent, 32)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
	}
}

func (h *hub) publish(ev streamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
