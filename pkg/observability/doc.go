/*
Package observability provides tools for monitoring the scene orchestrator.

It includes OpenTelemetry span helpers used around every transition and Prometheus
collectors exposed as lifecycle hooks, so metrics are recorded without the orchestrator
depending on a metrics backend.
*/
package observability
