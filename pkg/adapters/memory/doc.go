// Package memory provides in-memory implementations of the collaborator ports, used by
// tests, the CLI scenario runner and the debug server.
package memory

import "github.com/aretw0/scenestack/pkg/ports"

var (
	_ ports.AssetLoader   = (*AssetLoader)(nil)
	_ ports.AudioPlayer   = (*AudioPlayer)(nil)
	_ ports.SnapshotStore = (*Store)(nil)
)
