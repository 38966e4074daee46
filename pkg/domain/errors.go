package domain

import (
	"errors"
	"fmt"
)

// Registry errors. These are wiring mistakes and should fail fast at startup.
var (
	// ErrUnresolvedService is returned when a capability is accessed before any instance was bound to it.
	ErrUnresolvedService = errors.New("unresolved service")
	// ErrDuplicateRegistration is returned when a capability is bound twice.
	ErrDuplicateRegistration = errors.New("duplicate service registration")
)

// Broker errors.
var (
	// ErrAlreadyFinalized is returned when a broker builder is used after Build.
	ErrAlreadyFinalized = errors.New("broker already finalized")
	// ErrDuplicateHandler is returned when a request/response pair already has a handler.
	ErrDuplicateHandler = errors.New("duplicate request handler")
	// ErrChannelNotDeclared is returned when an endpoint is requested for an undeclared (key, message) pair.
	ErrChannelNotDeclared = errors.New("channel not declared")
	// ErrHandlerNotFound is returned when no handler is registered for a request/response pair.
	ErrHandlerNotFound = errors.New("request handler not found")
	// ErrBrokerClosed is returned when subscribing to a broker that was torn down.
	ErrBrokerClosed = errors.New("broker closed")
	// ErrScopeClosed is returned when a scoped broker is accessed outside an open session.
	ErrScopeClosed = errors.New("broker scope closed")
)

// Orchestrator errors. These are recoverable: callers may retry or treat them as a no-op.
var (
	// ErrNoHistory is returned when back-navigation has no sleeping entry to resume.
	ErrNoHistory = errors.New("no history")
	// ErrStackEmpty is returned when an operation needs an active entry and the stack is empty.
	// An empty stack has no history either, so it matches ErrNoHistory too.
	ErrStackEmpty = fmt.Errorf("scene stack is empty: %w", ErrNoHistory)
	// ErrTransitionInProgress is returned when a transition is requested while another is in flight.
	ErrTransitionInProgress = errors.New("transition in progress")
	// ErrResultAlreadySet is returned when a dialog result is written twice.
	ErrResultAlreadySet = errors.New("dialog result already set")
	// ErrDialogDismissed is returned to a dialog caller when the dialog was terminated without a result.
	ErrDialogDismissed = errors.New("dialog dismissed without result")
	// ErrSceneNotFound is returned when no stack entry has the requested scene type.
	ErrSceneNotFound = errors.New("scene not found on stack")
	// ErrUnknownScene is returned when a scene type has no registered factory.
	ErrUnknownScene = errors.New("unknown scene type")
	// ErrDuplicateScene is returned when a scene type is registered twice.
	ErrDuplicateScene = errors.New("duplicate scene type")
	// ErrNotDialog is returned when a dialog transition targets a full scene type, or the reverse.
	ErrNotDialog = errors.New("scene type kind mismatch")
	// ErrRestoreNotEmpty is returned when restoring history onto a non-empty stack.
	ErrRestoreNotEmpty = errors.New("cannot restore onto a non-empty stack")
)

// ErrSnapshotNotFound is returned when a snapshot ID cannot be found in the store.
var ErrSnapshotNotFound = errors.New("snapshot not found")
