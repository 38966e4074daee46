// Package redis provides Redis-backed persistence: a snapshot store for scene history and
// a master-data source.
package redis

import "github.com/aretw0/scenestack/pkg/ports"

var _ ports.SnapshotStore = (*Store)(nil)
