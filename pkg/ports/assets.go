package ports

import (
	"context"
	"fmt"
)

// LoadMode selects how an engine scene is loaded.
type LoadMode int

const (
	// LoadSingle replaces every loaded engine scene.
	LoadSingle LoadMode = iota
	// LoadAdditive loads on top of the current engine scenes.
	LoadAdditive
)

func (m LoadMode) String() string {
	if m == LoadAdditive {
		return "additive"
	}
	return "single"
}

// EngineSceneHandle identifies an engine scene loaded through an AssetLoader.
// The orchestrator stores and returns it but never interprets it.
type EngineSceneHandle struct {
	ID   string
	Name string
	Mode LoadMode
}

// InstanceHandle identifies an instantiated asset.
type InstanceHandle struct {
	ID      string
	Address string
}

// AssetLoader is the asset-loading collaborator. Timeouts are its responsibility; it should
// honour ctx cancellation on every call.
type AssetLoader interface {
	// LoadAsset loads the asset stored at address.
	LoadAsset(ctx context.Context, address string) (any, error)

	// Instantiate creates an instance of the asset at address, optionally under parent.
	Instantiate(ctx context.Context, address string, parent *InstanceHandle) (InstanceHandle, error)

	// LoadEngineScene loads an engine scene by name.
	LoadEngineScene(ctx context.Context, name string, mode LoadMode, activate bool) (EngineSceneHandle, error)

	// UnloadEngineScene unloads a scene returned by LoadEngineScene.
	UnloadEngineScene(ctx context.Context, handle EngineSceneHandle) error
}

// LoadAssetAs loads an asset and asserts its type.
func LoadAssetAs[T any](ctx context.Context, l AssetLoader, address string) (T, error) {
	var zero T
	raw, err := l.LoadAsset(ctx, address)
	if err != nil {
		return zero, err
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("asset %q is %T, not %T", address, raw, zero)
	}
	return v, nil
}
