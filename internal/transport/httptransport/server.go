// Package httptransport binds questionnaire sessions to HTTP.
//
//	POST   /sessions              start a session
//	GET    /sessions/{id}         current snapshot
//	POST   /sessions/{id}/events  {"event": "ANSWER", "payload": {...}}
//	DELETE /sessions/{id}
//
// Sessions live in a persister between requests; requests for the same
// session are serialized in process.
package httptransport

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/comalice/formchart/internal/core"
	"github.com/comalice/formchart/internal/logging"
	"github.com/comalice/formchart/internal/primitives"
	"github.com/comalice/formchart/internal/production"
)

// maxBodyBytes bounds an event request body.
const maxBodyBytes = 1 << 20

// Server serves sessions of one machine.
type Server[C any] struct {
	machine    *core.Machine[C]
	newContext func() C
	store      production.Persister[C]
	logger     *slog.Logger
	newID      func() string
	locks      *sessionLocks
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	logger *slog.Logger
	newID  func() string
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *serverOptions) { o.logger = l }
}

// WithIDGenerator replaces the uuid session id generator.
func WithIDGenerator(f func() string) Option {
	return func(o *serverOptions) { o.newID = f }
}

// NewServer creates a server. newContext supplies the initial context of
// each new session.
func NewServer[C any](m *core.Machine[C], newContext func() C, store production.Persister[C], opts ...Option) *Server[C] {
	o := serverOptions{logger: logging.NewNop(), newID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server[C]{
		machine:    m,
		newContext: newContext,
		store:      store,
		logger:     o.logger,
		newID:      o.newID,
		locks:      newSessionLocks(),
	}
}

// Handler returns the chi router.
func (s *Server[C]) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.create)
		r.Get("/{id}", s.get)
		r.Delete("/{id}", s.remove)
		r.Post("/{id}/events", s.send)
	})
	return r
}

// EventRequest is the body of POST /sessions/{id}/events.
type EventRequest struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// SessionResponse is returned by every session endpoint.
type SessionResponse[C any] struct {
	ID       string           `json:"id"`
	Snapshot core.Snapshot[C] `json:"snapshot"`
	// Events lists the events declared on the active path.
	Events []string `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server[C]) create(w http.ResponseWriter, r *http.Request) {
	id := s.newID()
	snap := s.machine.Start(s.newContext())
	if err := s.save(r, id, snap); err != nil {
		s.fail(w, err)
		return
	}
	s.logger.Info("session started", "session", id)
	writeJSON(w, http.StatusCreated, s.response(id, snap))
}

func (s *Server[C]) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.load(r, id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.response(id, snap))
}

func (s *Server[C]) remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	unlock := s.locks.lock(id)
	defer unlock()
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server[C]) send(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req EventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if req.Event == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "event is required"})
		return
	}

	unlock := s.locks.lock(id)
	defer unlock()

	snap, err := s.load(r, id)
	if err != nil {
		s.fail(w, err)
		return
	}
	next, err := s.machine.Transition(snap, primitives.NewEvent(req.Event, req.Payload))
	if err != nil {
		s.fail(w, err)
		return
	}
	if next.Changed() {
		if err := s.save(r, id, next); err != nil {
			s.fail(w, err)
			return
		}
	}
	s.logger.Debug("event processed", "session", id, "event", req.Event, "changed", next.Changed())
	writeJSON(w, http.StatusOK, s.response(id, next))
}

func (s *Server[C]) load(r *http.Request, id string) (core.Snapshot[C], error) {
	rec, err := s.store.Load(r.Context(), id)
	if err != nil {
		return core.Snapshot[C]{}, err
	}
	return s.machine.Restore(rec)
}

func (s *Server[C]) save(r *http.Request, id string, snap core.Snapshot[C]) error {
	rec, err := s.machine.Record(snap)
	if err != nil {
		return err
	}
	return s.store.Save(r.Context(), id, rec)
}

func (s *Server[C]) response(id string, snap core.Snapshot[C]) SessionResponse[C] {
	events := s.machine.Events(snap)
	if events == nil {
		events = []string{}
	}
	return SessionResponse[C]{ID: id, Snapshot: snap, Events: events}
}

func (s *Server[C]) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, production.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, production.ErrInvalidSessionID):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrMachineMismatch), errors.Is(err, core.ErrUnknownState):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
