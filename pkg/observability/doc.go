// Package observability provides structured logging, Prometheus metrics,
// and graceful shutdown for the provisioning daemon.
//
// Logging is JSON via stdlib slog behind a small Logger wrapper that carries
// contextual fields. Metrics cover the HTTP surface plus domain gauges for
// provisioned users, remaining pool capacity, and peer command outcomes.
package observability
