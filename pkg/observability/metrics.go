package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus registry and the orchestrator meters.
type Metrics struct {
	Registry           *prometheus.Registry
	TransitionDuration *prometheus.HistogramVec
	TransitionTotal    *prometheus.CounterVec
	HookDuration       *prometheus.HistogramVec
	HookErrorsTotal    *prometheus.CounterVec
	StackDepth         prometheus.Gauge
}

// NewMetrics creates a custom Prometheus registry with the scenestack metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	transitionDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scenestack_transition_duration_seconds",
		Help:    "Duration of scene transitions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "status"})

	transitionTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scenestack_transition_total",
		Help: "Total number of scene transitions.",
	}, []string{"kind", "status"})

	hookDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scenestack_hook_duration_seconds",
		Help:    "Duration of scene lifecycle hooks in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"scene", "hook"})

	hookErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scenestack_hook_errors_total",
		Help: "Total number of failed scene lifecycle hooks.",
	}, []string{"scene", "hook"})

	depth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scenestack_stack_depth",
		Help: "Number of entries on the scene stack.",
	})

	reg.MustRegister(transitionDuration, transitionTotal, hookDuration, hookErrors, depth)

	return &Metrics{
		Registry:           reg,
		TransitionDuration: transitionDuration,
		TransitionTotal:    transitionTotal,
		HookDuration:       hookDuration,
		HookErrorsTotal:    hookErrors,
		StackDepth:         depth,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSceneEnter:  m.observeHook,
		OnSceneSleep:  m.observeHook,
		OnSceneResume: m.observeHook,
		OnSceneExit:   m.observeHook,
		OnTransition: func(_ context.Context, ev *domain.TransitionEvent) {
			status := "ok"
			if ev.Err != nil {
				status = "error"
			}
			m.TransitionTotal.WithLabelValues(ev.Kind, status).Inc()
			m.TransitionDuration.WithLabelValues(ev.Kind, status).Observe(ev.Elapsed.Seconds())
			m.StackDepth.Set(float64(ev.Depth))
		},
	}
}

func (m *Metrics) observeHook(_ context.Context, ev *domain.SceneEvent) {
	hook := hookName(ev.Type)
	m.HookDuration.WithLabelValues(string(ev.Scene), hook).Observe(ev.Elapsed.Seconds())
	if ev.Err != nil {
		m.HookErrorsTotal.WithLabelValues(string(ev.Scene), hook).Inc()
	}
}

func hookName(t domain.EventType) string {
	switch t {
	case domain.EventSceneEnter:
		return "enter"
	case domain.EventSceneSleep:
		return "sleep"
	case domain.EventSceneResume:
		return "resume"
	case domain.EventSceneExit:
		return "exit"
	default:
		return string(t)
	}
}
