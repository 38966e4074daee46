package scenestack

import (
	"context"

	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/aretw0/scenestack/pkg/scene"
)

// TransitionDialog overlays dialog t on the active entry and waits for its result typed as R.
// init, when set, runs with the dialog node and a typed sink before the dialog becomes
// active. A result written before closing the dialog failed is returned with the error.
func TransitionDialog[R any](ctx context.Context, d *Director, t domain.SceneType, arg any, init func(ctx context.Context, node scene.Node, sink scene.Sink[R]) error) (R, error) {
	req := DialogRequest{Type: t, Arg: arg}
	if init != nil {
		req.Init = func(ctx context.Context, node scene.Node, result *scene.Result) error {
			return init(ctx, node, scene.NewSink[R](result))
		}
	}

	raw, err := d.TransitionDialog(ctx, req)
	if err != nil {
		var value R
		if raw != nil {
			if v, convErr := scene.As[R](raw); convErr == nil {
				value = v
			}
		}
		return value, err
	}
	return scene.As[R](raw)
}

// TransitionResult transitions to req.Type and returns the value it produces. Dialog
// targets overlay the active entry and are awaited; full scenes use req.Operations and
// yield the zero R.
func TransitionResult[R any](ctx context.Context, d *Director, req domain.TransitionRequest) (R, error) {
	if d.catalog.IsDialog(req.Type) {
		return TransitionDialog[R](ctx, d, req.Type, req.Arg, nil)
	}
	var zero R
	return zero, d.Transition(ctx, req)
}
