package domain

// ChannelKey is the key half of a broker channel. Keys are partitioned into numeric
// ranges so independently registered message groups do not collide. The broker does not
// enforce uniqueness.
type ChannelKey int

// Key range offsets.
const (
	KeySystem ChannelKey = 0
	KeyScene  ChannelKey = 50
	KeyStat   ChannelKey = 100
	KeyAudio  ChannelKey = 200
)

// Well-known keys.
const (
	// KeySceneChanged carries SceneChanged after every settled transition.
	KeySceneChanged = KeyScene + iota
	// KeySceneFailed carries SceneChanged for transitions that rolled back.
	KeySceneFailed
)

// SceneChanged is published by the orchestrator on KeySceneChanged.
type SceneChanged struct {
	Kind   string
	From   SceneType
	To     SceneType
	Active SceneType
	Depth  int
	Err    error
}
