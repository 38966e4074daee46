package broker

import (
	"context"
	"fmt"

	"github.com/aretw0/scenestack/pkg/domain"
)

// RequestHandler answers a request synchronously.
type RequestHandler[Req, Res any] interface {
	Invoke(req Req) (Res, error)
}

// RequestHandlerFunc adapts a function to RequestHandler.
type RequestHandlerFunc[Req, Res any] func(req Req) (Res, error)

// Invoke calls f(req).
func (f RequestHandlerFunc[Req, Res]) Invoke(req Req) (Res, error) { return f(req) }

// AsyncRequestHandler answers a request, possibly suspending on ctx.
type AsyncRequestHandler[Req, Res any] interface {
	InvokeAsync(ctx context.Context, req Req) (Res, error)
}

// AsyncRequestHandlerFunc adapts a function to AsyncRequestHandler.
type AsyncRequestHandlerFunc[Req, Res any] func(ctx context.Context, req Req) (Res, error)

// InvokeAsync calls f(ctx, req).
func (f AsyncRequestHandlerFunc[Req, Res]) InvokeAsync(ctx context.Context, req Req) (Res, error) {
	return f(ctx, req)
}

// GetRequestHandler returns the handler declared for (Req, Res).
func GetRequestHandler[Req, Res any](br *Broker) (RequestHandler[Req, Res], error) {
	raw, ok := br.handlers[pairKey[Req, Res]{}]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrHandlerNotFound, pairName[Req, Res]())
	}
	return raw.(RequestHandler[Req, Res]), nil
}

// GetAsyncRequestHandler returns the async handler declared for (Req, Res).
func GetAsyncRequestHandler[Req, Res any](br *Broker) (AsyncRequestHandler[Req, Res], error) {
	raw, ok := br.asyncHandlers[pairKey[Req, Res]{}]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrHandlerNotFound, pairName[Req, Res]())
	}
	return raw.(AsyncRequestHandler[Req, Res]), nil
}

// Invoke is a shortcut for GetRequestHandler followed by Invoke.
func Invoke[Req, Res any](br *Broker, req Req) (Res, error) {
	h, err := GetRequestHandler[Req, Res](br)
	if err != nil {
		var zero Res
		return zero, err
	}
	return h.Invoke(req)
}

// InvokeAsync is a shortcut for GetAsyncRequestHandler followed by InvokeAsync.
func InvokeAsync[Req, Res any](ctx context.Context, br *Broker, req Req) (Res, error) {
	h, err := GetAsyncRequestHandler[Req, Res](br)
	if err != nil {
		var zero Res
		return zero, err
	}
	return h.InvokeAsync(ctx, req)
}
