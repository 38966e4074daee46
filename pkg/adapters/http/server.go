package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/scenestack"
	"github.com/aretw0/scenestack/internal/presentation/graph"
	"github.com/aretw0/scenestack/pkg/broker"
	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/aretw0/scenestack/pkg/observability"
	"github.com/aretw0/scenestack/pkg/ports"
	"github.com/go-chi/chi/v5"
)

// Director is the part of the scene director the debug surface drives.
type Director interface {
	Stack() []domain.Entry
	Active() (domain.Entry, bool)
	Transition(ctx context.Context, req domain.TransitionRequest) error
	TransitionPrev(ctx context.Context) error
	Terminate(ctx context.Context, t domain.SceneType, clearHistory bool) error
	TerminateLast(ctx context.Context, clearHistory bool) error
	Save(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
	Broker() *broker.Broker
}

var _ Director = (*scenestack.Director)(nil)

// Server exposes a Director over HTTP.
type Server struct {
	Director Director
	Streams  *StreamManager

	metrics *observability.Metrics
	slots   ports.SnapshotStore
	logger  *slog.Logger
	subs    broker.Bag
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics mounts the metrics registry on /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithSlots enables listing and deleting save slots. It should be the store the
// Director saves to.
func WithSlots(store ports.SnapshotStore) Option {
	return func(s *Server) {
		s.slots = store
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a debug server and starts forwarding SceneChanged notifications to
// the event stream.
func NewServer(d Director, opts ...Option) (*Server, error) {
	s := &Server{
		Director: d,
		Streams:  NewStreamManager(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger

	sub, err := broker.GetSubscriber[domain.ChannelKey, domain.SceneChanged](d.Broker())
	if err != nil {
		return nil, err
	}
	for _, key := range []domain.ChannelKey{domain.KeySceneChanged, domain.KeySceneFailed} {
		h, err := sub.Subscribe(key, s.forward)
		if err != nil {
			s.subs.Dispose()
			return nil, err
		}
		s.subs.Add(h)
	}
	return s, nil
}

// Close stops forwarding notifications.
func (s *Server) Close() {
	s.subs.Dispose()
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/stack", s.GetStack)
	r.Get("/stack/graph", s.GetStackGraph)
	r.Get("/active", s.GetActive)
	r.Get("/events", s.SubscribeEvents)
	r.Post("/transition", s.PostTransition)
	r.Post("/back", s.PostBack)
	r.Post("/terminate", s.PostTerminate)
	r.Route("/slots", func(r chi.Router) {
		r.Get("/", s.ListSlots)
		r.Post("/{id}", s.SaveSlot)
		r.Post("/{id}/restore", s.RestoreSlot)
		r.Delete("/{id}", s.DeleteSlot)
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// EntryView is the wire form of a stack entry.
type EntryView struct {
	ID     string           `json:"id"`
	Type   domain.SceneType `json:"type"`
	State  string           `json:"state"`
	Arg    any              `json:"arg,omitempty"`
	Dialog bool             `json:"dialog,omitempty"`
	Index  int              `json:"index"`
}

func viewOf(e domain.Entry) EntryView {
	return EntryView{
		ID:     e.ID,
		Type:   e.Type,
		State:  e.State.String(),
		Arg:    e.Arg,
		Dialog: e.Dialog,
		Index:  e.Index,
	}
}

// TransitionBody is the payload of POST /transition.
type TransitionBody struct {
	Type       domain.SceneType `json:"type"`
	Arg        any              `json:"arg,omitempty"`
	Operations string           `json:"ops,omitempty"`
}

// TerminateBody is the payload of POST /terminate. An empty type ends the active entry.
type TerminateBody struct {
	Type         domain.SceneType `json:"type,omitempty"`
	ClearHistory bool             `json:"clear_history,omitempty"`
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": strings.TrimSpace(scenestack.Version),
	})
}

// GetStack handles GET /stack.
func (s *Server) GetStack(w http.ResponseWriter, r *http.Request) {
	stack := s.Director.Stack()
	out := make([]EntryView, len(stack))
	for i, e := range stack {
		out[i] = viewOf(e)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetStackGraph handles GET /stack/graph, rendering the history as a Mermaid flowchart.
func (s *Server) GetStackGraph(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, graph.GenerateMermaid(s.Director.Stack()))
}

// GetActive handles GET /active.
func (s *Server) GetActive(w http.ResponseWriter, r *http.Request) {
	e, ok := s.Director.Active()
	if !ok {
		s.fail(w, r, domain.ErrStackEmpty)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(e))
}

// PostTransition handles POST /transition.
func (s *Server) PostTransition(w http.ResponseWriter, r *http.Request) {
	var body TransitionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("invalid transition body", "error", err)
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if body.Type == "" {
		http.Error(w, "type is required", http.StatusBadRequest)
		return
	}
	ops, ok := domain.ParseOperations(body.Operations)
	if !ok {
		http.Error(w, "invalid ops: "+body.Operations, http.StatusBadRequest)
		return
	}

	err := s.Director.Transition(r.Context(), domain.TransitionRequest{
		Type:       body.Type,
		Arg:        body.Arg,
		Operations: ops,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.GetActive(w, r)
}

// PostBack handles POST /back.
func (s *Server) PostBack(w http.ResponseWriter, r *http.Request) {
	if err := s.Director.TransitionPrev(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.GetActive(w, r)
}

// PostTerminate handles POST /terminate.
func (s *Server) PostTerminate(w http.ResponseWriter, r *http.Request) {
	var body TerminateBody
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.logger.Warn("invalid terminate body", "error", err)
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
	}

	var err error
	if body.Type == "" {
		err = s.Director.TerminateLast(r.Context(), body.ClearHistory)
	} else {
		err = s.Director.Terminate(r.Context(), body.Type, body.ClearHistory)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.GetStack(w, r)
}

// ListSlots handles GET /slots.
func (s *Server) ListSlots(w http.ResponseWriter, r *http.Request) {
	if s.slots == nil {
		http.Error(w, "save slots are not exposed", http.StatusNotImplemented)
		return
	}
	ids, err := s.slots.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"slots": ids})
}

// SaveSlot handles POST /slots/{id}.
func (s *Server) SaveSlot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Director.Save(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"slot": id})
}

// RestoreSlot handles POST /slots/{id}/restore.
func (s *Server) RestoreSlot(w http.ResponseWriter, r *http.Request) {
	if err := s.Director.Restore(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.GetStack(w, r)
}

// DeleteSlot handles DELETE /slots/{id}.
func (s *Server) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	if s.slots == nil {
		http.Error(w, "save slots are not exposed", http.StatusNotImplemented)
		return
	}
	if err := s.slots.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusOf maps orchestrator errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	// ErrStackEmpty also matches ErrNoHistory.
	case errors.Is(err, domain.ErrStackEmpty),
		errors.Is(err, domain.ErrSceneNotFound),
		errors.Is(err, domain.ErrSnapshotNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTransitionInProgress),
		errors.Is(err, domain.ErrNoHistory),
		errors.Is(err, domain.ErrRestoreNotEmpty):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownScene),
		errors.Is(err, domain.ErrNotDialog):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
