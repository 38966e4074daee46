package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSceneEnter  EventType = "scene_enter"
	EventSceneSleep  EventType = "scene_sleep"
	EventSceneResume EventType = "scene_resume"
	EventSceneExit   EventType = "scene_exit"
	EventTransition  EventType = "transition"
)

// Transition kinds reported in TransitionEvent.Kind and SceneChanged.Kind.
const (
	KindPush      = "push"
	KindPrev      = "prev"
	KindDialog    = "dialog"
	KindClose     = "close"
	KindTerminate = "terminate"
	KindRestore   = "restore"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// SceneEvent represents a lifecycle hook invocation on one entry.
type SceneEvent struct {
	EventBase
	EntryID string        `json:"entry_id"`
	Scene   SceneType     `json:"scene"`
	Dialog  bool          `json:"dialog,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
	Err     error         `json:"-"`
}

// TransitionEvent summarises a settled (or rolled back) transition.
type TransitionEvent struct {
	EventBase
	Kind       string        `json:"kind"`
	From       SceneType     `json:"from,omitempty"`
	To         SceneType     `json:"to,omitempty"`
	Operations Operations    `json:"operations,omitempty"`
	Depth      int           `json:"depth"`
	Elapsed    time.Duration `json:"elapsed"`
	Err        error         `json:"-"`
}

// LifecycleHooks defines callbacks for orchestrator observability.
type LifecycleHooks struct {
	OnSceneEnter  func(context.Context, *SceneEvent)
	OnSceneSleep  func(context.Context, *SceneEvent)
	OnSceneResume func(context.Context, *SceneEvent)
	OnSceneExit   func(context.Context, *SceneEvent)
	OnTransition  func(context.Context, *TransitionEvent)
}

// Merge returns hooks that call h first and then other for every callback.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnSceneEnter:  chain(h.OnSceneEnter, other.OnSceneEnter),
		OnSceneSleep:  chain(h.OnSceneSleep, other.OnSceneSleep),
		OnSceneResume: chain(h.OnSceneResume, other.OnSceneResume),
		OnSceneExit:   chain(h.OnSceneExit, other.OnSceneExit),
		OnTransition:  chain(h.OnTransition, other.OnTransition),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
