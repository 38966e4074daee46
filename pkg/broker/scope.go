package broker

import (
	"fmt"
	"sync"

	"github.com/aretw0/scenestack/pkg/domain"
)

// Scope owns a private broker that is rebuilt for every session (e.g. one gameplay run)
// and torn down at its end. Unlike the process-wide broker held by the Director, nothing
// outside the owner can reach a scoped broker unless it is handed over explicitly.
type Scope struct {
	mu        sync.Mutex
	configure func(*Builder) error
	opts      []Option
	current   *Broker
	sessions  int
}

// NewScope creates a closed scope. configure declares the session's channels and handlers
// on a fresh Builder every time the scope is opened.
func NewScope(configure func(*Builder) error, opts ...Option) *Scope {
	return &Scope{configure: configure, opts: opts}
}

// Open closes the current broker, if any, and builds a new one.
func (s *Scope) Open() (*Broker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		_ = s.current.Close()
		s.current = nil
	}

	b := NewBuilder(s.opts...)
	if s.configure != nil {
		if err := s.configure(b); err != nil {
			return nil, fmt.Errorf("configure scoped broker: %w", err)
		}
	}
	br, err := b.Build()
	if err != nil {
		return nil, err
	}
	s.current = br
	s.sessions++
	return br, nil
}

// Current returns the open broker or domain.ErrScopeClosed.
func (s *Scope) Current() (*Broker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, domain.ErrScopeClosed
	}
	return s.current, nil
}

// Sessions returns how many times the scope was opened.
func (s *Scope) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

// Close tears the current broker down. Closing a closed scope is a no-op.
func (s *Scope) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	err := s.current.Close()
	s.current = nil
	return err
}
