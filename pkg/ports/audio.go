package ports

import "context"

// AudioPlayer plays sounds keyed by category ("bgm", "se", "voice") and tag.
// Scenes trigger it from their lifecycle hooks; the orchestrator never calls it.
type AudioPlayer interface {
	Play(ctx context.Context, category, tag string) error
	Stop(ctx context.Context, category string) error
}
