package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/scenestack/pkg/domain"
)

// ChangeView is the wire form of a SceneChanged notification.
type ChangeView struct {
	Kind   string           `json:"kind"`
	From   domain.SceneType `json:"from,omitempty"`
	To     domain.SceneType `json:"to,omitempty"`
	Active domain.SceneType `json:"active,omitempty"`
	Depth  int              `json:"depth"`
	Error  string           `json:"error,omitempty"`
}

// StreamManager fans notifications out to connected SSE clients.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan<- ChangeView]struct{}
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[chan<- ChangeView]struct{}),
		logger:      slog.Default(),
	}
}

// Subscribe registers a client. The returned func unregisters it and closes the channel.
func (sm *StreamManager) Subscribe() (<-chan ChangeView, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan ChangeView, 10)
	sm.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			delete(sm.subscribers, ch)
			close(ch)
		})
	}
}

// Broadcast delivers msg to every client without blocking.
func (sm *StreamManager) Broadcast(msg ChangeView) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
			// Slow client
			sm.logger.Warn("SSE: client buffer full, dropping message", "kind", msg.Kind)
		}
	}
}

// Clients returns the number of connected clients.
func (sm *StreamManager) Clients() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}

func (s *Server) forward(m domain.SceneChanged) {
	v := ChangeView{
		Kind:   m.Kind,
		From:   m.From,
		To:     m.To,
		Active: m.Active,
		Depth:  m.Depth,
	}
	if m.Err != nil {
		v.Error = m.Err.Error()
	}
	s.Streams.Broadcast(v)
}

// SubscribeEvents handles GET /events (SSE). The optional "kind" query parameter is a
// comma separated filter on transition kinds.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	var kinds map[string]bool
	if q := r.URL.Query().Get("kind"); q != "" {
		kinds = make(map[string]bool)
		for _, k := range strings.Split(q, ",") {
			kinds[strings.TrimSpace(k)] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if kinds != nil && !kinds[msg.Kind] {
				continue
			}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			event := "scene"
			if msg.Error != "" {
				event = "scene_failed"
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
			flusher.Flush()
		}
	}
}
