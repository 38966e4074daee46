package domain

import "strings"

// Operations controls what happens to the active entry when a new scene is entered.
// Flags are combinable. When both OpSleep and OpTerminate are set, terminate wins.
type Operations uint8

const (
	// OpSleep keeps the active entry on the stack, asleep, for back-navigation.
	OpSleep Operations = 1 << iota
	// OpRestart rebuilds the retained active entry with a fresh node entered with its
	// original argument. It has no effect when the entry is terminated.
	OpRestart
	// OpTerminate ends the active entry and evicts it from the stack.
	OpTerminate
	// OpClearHistory discards every sleeping entry below the active one.
	OpClearHistory
)

// DefaultOperations is applied when a request carries no flags.
const DefaultOperations = OpTerminate | OpClearHistory

// Normalize returns the effective flag set: the default for an empty mask, and the
// sleep flag dropped whenever terminate is present.
func (o Operations) Normalize() Operations {
	if o == 0 {
		return DefaultOperations
	}
	if o.Has(OpTerminate) {
		o &^= OpSleep | OpRestart
	}
	return o
}

// Has reports whether every flag of f is set.
func (o Operations) Has(f Operations) bool {
	return o&f == f
}

func (o Operations) String() string {
	if o == 0 {
		return "none"
	}
	var parts []string
	if o.Has(OpSleep) {
		parts = append(parts, "sleep")
	}
	if o.Has(OpRestart) {
		parts = append(parts, "restart")
	}
	if o.Has(OpTerminate) {
		parts = append(parts, "terminate")
	}
	if o.Has(OpClearHistory) {
		parts = append(parts, "clear_history")
	}
	return strings.Join(parts, "|")
}

// ParseOperations reads a "|" or "," separated list of flag names as produced by String.
func ParseOperations(s string) (Operations, bool) {
	var ops Operations
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "sleep":
			ops |= OpSleep
		case "restart":
			ops |= OpRestart
		case "terminate":
			ops |= OpTerminate
		case "clear_history", "clearhistory", "clear":
			ops |= OpClearHistory
		case "", "none", "default":
		default:
			return 0, false
		}
	}
	return ops, true
}

// TransitionRequest describes one transition to a full scene.
type TransitionRequest struct {
	Type       SceneType
	Arg        any
	Operations Operations
}
