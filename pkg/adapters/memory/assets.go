package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/scenestack/pkg/ports"
	"github.com/google/uuid"
)

var (
	// ErrAssetNotFound is returned for an address with no stored asset.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrEngineSceneNotLoaded is returned when unloading a handle that is not loaded.
	ErrEngineSceneNotLoaded = errors.New("engine scene not loaded")
)

// AssetLoader implements ports.AssetLoader over a map of addresses.
// Engine scenes are only bookkept. Safe for concurrent use.
type AssetLoader struct {
	mu     sync.RWMutex
	assets map[string]any
	scenes []ports.EngineSceneHandle
	events []string
}

// NewAssetLoader creates a loader serving the given assets.
func NewAssetLoader(assets map[string]any) *AssetLoader {
	l := &AssetLoader{assets: make(map[string]any, len(assets))}
	for addr, a := range assets {
		l.assets[addr] = a
	}
	return l
}

// Put stores an asset under address.
func (l *AssetLoader) Put(address string, asset any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.assets[address] = asset
}

// LoadAsset returns the asset stored at address.
func (l *AssetLoader) LoadAsset(ctx context.Context, address string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.assets[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, address)
	}
	return a, nil
}

// Instantiate returns a fresh instance handle for a stored asset.
func (l *AssetLoader) Instantiate(ctx context.Context, address string, parent *ports.InstanceHandle) (ports.InstanceHandle, error) {
	if _, err := l.LoadAsset(ctx, address); err != nil {
		return ports.InstanceHandle{}, err
	}
	h := ports.InstanceHandle{ID: uuid.NewString(), Address: address}

	l.mu.Lock()
	defer l.mu.Unlock()
	if parent != nil {
		l.events = append(l.events, "instantiate:"+address+"@"+parent.Address)
	} else {
		l.events = append(l.events, "instantiate:"+address)
	}
	return h, nil
}

// LoadEngineScene records a loaded engine scene. LoadSingle replaces all loaded scenes.
func (l *AssetLoader) LoadEngineScene(ctx context.Context, name string, mode ports.LoadMode, activate bool) (ports.EngineSceneHandle, error) {
	if err := ctx.Err(); err != nil {
		return ports.EngineSceneHandle{}, err
	}
	h := ports.EngineSceneHandle{ID: uuid.NewString(), Name: name, Mode: mode}

	l.mu.Lock()
	defer l.mu.Unlock()
	if mode == ports.LoadSingle {
		l.scenes = l.scenes[:0]
	}
	l.scenes = append(l.scenes, h)
	l.events = append(l.events, "load:"+name)
	return h, nil
}

// UnloadEngineScene forgets a loaded engine scene.
func (l *AssetLoader) UnloadEngineScene(ctx context.Context, h ports.EngineSceneHandle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	i := slices.IndexFunc(l.scenes, func(x ports.EngineSceneHandle) bool { return x.ID == h.ID })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrEngineSceneNotLoaded, h.Name)
	}
	l.scenes = slices.Delete(l.scenes, i, i+1)
	l.events = append(l.events, "unload:"+h.Name)
	return nil
}

// Loaded returns the loaded engine scenes in load order.
func (l *AssetLoader) Loaded() []ports.EngineSceneHandle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.scenes)
}

// Events returns the recorded calls, e.g. "load:forest", "unload:forest".
func (l *AssetLoader) Events() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.events)
}
