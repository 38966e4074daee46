package runtime

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/aretw0/scenestack/pkg/ports"
)

// Engine scenes are loaded through the registry-resolved asset loader. These calls do not
// take the transition lock so node hooks can sequence them from Enter and Exit.

func (e *Engine) loader() (ports.AssetLoader, error) {
	if e.assets == nil {
		return nil, fmt.Errorf("%w: asset loader handle not configured", domain.ErrUnresolvedService)
	}
	return e.assets.Get()
}

// LoadEngineScene loads an engine scene and tracks its handle.
func (e *Engine) LoadEngineScene(ctx context.Context, name string, mode ports.LoadMode, activate bool) (ports.EngineSceneHandle, error) {
	l, err := e.loader()
	if err != nil {
		return ports.EngineSceneHandle{}, err
	}
	h, err := l.LoadEngineScene(ctx, name, mode, activate)
	if err != nil {
		return ports.EngineSceneHandle{}, fmt.Errorf("load engine scene %q: %w", name, err)
	}

	e.scenesMu.Lock()
	if mode == ports.LoadSingle {
		e.engineScenes = e.engineScenes[:0]
	}
	e.engineScenes = append(e.engineScenes, h)
	e.scenesMu.Unlock()

	e.logger.DebugContext(ctx, "engine scene loaded", "name", name, "mode", mode, "handle", h.ID)
	return h, nil
}

// UnloadEngineScene unloads a scene returned by LoadEngineScene.
func (e *Engine) UnloadEngineScene(ctx context.Context, h ports.EngineSceneHandle) error {
	l, err := e.loader()
	if err != nil {
		return err
	}
	if err := l.UnloadEngineScene(ctx, h); err != nil {
		return fmt.Errorf("unload engine scene %q: %w", h.Name, err)
	}

	e.scenesMu.Lock()
	e.engineScenes = slices.DeleteFunc(e.engineScenes, func(x ports.EngineSceneHandle) bool {
		return x.ID == h.ID
	})
	e.scenesMu.Unlock()
	return nil
}

// UnloadEngineSceneAll unloads every tracked engine scene, newest first. It keeps going
// after a failure and returns every error.
func (e *Engine) UnloadEngineSceneAll(ctx context.Context) error {
	loaded := e.LoadedEngineScenes()

	var errs []error
	for i := len(loaded) - 1; i >= 0; i-- {
		if err := e.UnloadEngineScene(ctx, loaded[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadedEngineScenes returns the tracked handles in load order.
func (e *Engine) LoadedEngineScenes() []ports.EngineSceneHandle {
	e.scenesMu.Lock()
	defer e.scenesMu.Unlock()
	return slices.Clone(e.engineScenes)
}
