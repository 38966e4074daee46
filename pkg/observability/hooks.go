package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/scenestack/pkg/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LoggingHooks logs every lifecycle event at debug level and failures at warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	onScene := func(ctx context.Context, ev *domain.SceneEvent) {
		if ev.Err != nil {
			logger.WarnContext(ctx, "scene hook failed",
				"hook", ev.Type, "scene", ev.Scene, "entry_id", ev.EntryID, "error", ev.Err)
			return
		}
		logger.DebugContext(ctx, "scene hook",
			"hook", ev.Type, "scene", ev.Scene, "entry_id", ev.EntryID, "elapsed", ev.Elapsed)
	}
	return domain.LifecycleHooks{
		OnSceneEnter:  onScene,
		OnSceneSleep:  onScene,
		OnSceneResume: onScene,
		OnSceneExit:   onScene,
	}
}

// TracingHooks adds a span event per lifecycle hook to the span active in ctx.
func TracingHooks() domain.LifecycleHooks {
	onScene := func(ctx context.Context, ev *domain.SceneEvent) {
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}
		attrs := []attribute.KeyValue{
			attribute.String("scene", string(ev.Scene)),
			attribute.String("entry_id", ev.EntryID),
			attribute.Int64("elapsed_us", ev.Elapsed.Microseconds()),
		}
		if ev.Err != nil {
			attrs = append(attrs, attribute.String("error", ev.Err.Error()))
		}
		span.AddEvent(string(ev.Type), trace.WithAttributes(attrs...))
	}
	return domain.LifecycleHooks{
		OnSceneEnter:  onScene,
		OnSceneSleep:  onScene,
		OnSceneResume: onScene,
		OnSceneExit:   onScene,
	}
}
