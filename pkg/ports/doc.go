/*
Package ports defines the driven ports (interfaces) of the scene orchestration core.

These interfaces decouple the orchestrator from external implementations, allowing it to
work with any engine binding, audio backend, master-data source or persistence layer.

# Key Interfaces

  - AssetLoader: Loads assets and engine scenes on behalf of scenes and the orchestrator.
  - AudioPlayer: Plays sounds triggered from scene lifecycle hooks.
  - MasterData: Read-only keyed lookups over the master-data snapshot.
  - SnapshotStore: Persists scene history snapshots.
*/
package ports
