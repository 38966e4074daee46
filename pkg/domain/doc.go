/*
Package domain contains the core domain models of the scene orchestration core.

It defines the vocabulary shared by the registry, the message broker and the scene stack
orchestrator. This package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - SceneType: Stable identity of a scene node kind (full scene or dialog overlay).
  - SceneState: Lifecycle state of a stack entry (None, Processing, Sleep, Terminate).
  - Operations: Bitmask controlling the fate of the active entry during a transition.
  - Entry: Read-only snapshot of one element of the transition history.
  - ChannelKey: Numeric key partition used by message broker channels.
*/
package domain
