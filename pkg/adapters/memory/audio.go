package memory

import (
	"context"
	"slices"
	"sync"
)

// Cue is one recorded Play call.
type Cue struct {
	Category string
	Tag      string
}

// AudioPlayer implements ports.AudioPlayer by recording cues.
type AudioPlayer struct {
	mu      sync.Mutex
	played  []Cue
	playing map[string]string
}

// NewAudioPlayer creates an idle player.
func NewAudioPlayer() *AudioPlayer {
	return &AudioPlayer{playing: make(map[string]string)}
}

// Play records a cue and makes it the current tag of its category.
func (p *AudioPlayer) Play(ctx context.Context, category, tag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, Cue{Category: category, Tag: tag})
	p.playing[category] = tag
	return nil
}

// Stop clears the current tag of category.
func (p *AudioPlayer) Stop(ctx context.Context, category string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.playing, category)
	return nil
}

// Playing returns the current tag of category.
func (p *AudioPlayer) Playing(category string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tag, ok := p.playing[category]
	return tag, ok
}

// Played returns every recorded cue in order.
func (p *AudioPlayer) Played() []Cue {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.played)
}
