package domain

import "fmt"

// SceneType identifies a kind of scene node. Every entry on the stack is an instance of a
// registered SceneType.
type SceneType string

// SceneState defines the lifecycle state of a stack entry.
type SceneState int

const (
	// StateNone is the pre-construction state.
	StateNone SceneState = iota
	// StateProcessing marks the active (or restored) entry.
	StateProcessing
	// StateSleep marks an entry that was superseded but kept for back-navigation.
	StateSleep
	// StateTerminate is absorbing. A terminated entry is never reactivated.
	StateTerminate
)

func (s SceneState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateProcessing:
		return "processing"
	case StateSleep:
		return "sleep"
	case StateTerminate:
		return "terminate"
	default:
		return fmt.Sprintf("SceneState(%d)", int(s))
	}
}

// Entry is a read-only snapshot of one element of the transition history.
type Entry struct {
	ID     string     `json:"id"`
	Type   SceneType  `json:"type"`
	State  SceneState `json:"state"`
	Arg    any        `json:"arg,omitempty"`
	Dialog bool       `json:"dialog,omitempty"`
	Index  int        `json:"index"`
}

// EntryRecord is the persisted form of a non-dialog entry.
type EntryRecord struct {
	Type SceneType `json:"type" yaml:"type"`
	Arg  any       `json:"arg,omitempty" yaml:"arg,omitempty"`
}

// StackSnapshot captures the restorable part of the history, bottom to top.
// Dialog entries are never recorded since their callers cannot be restored.
type StackSnapshot struct {
	Entries []EntryRecord `json:"entries" yaml:"entries"`
}
