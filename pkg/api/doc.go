// Package api provides the HTTP REST surface of the provisioning daemon.
//
// The server is built on gorilla/mux and is thin glue over the lifecycle
// manager: handlers validate input, call one manager operation, and map the
// typed error taxonomy onto HTTP statuses. Tool stderr and other internal
// detail never reach the response body; callers get generic messages while
// the specifics go to the structured log.
//
// Routes:
//
//	GET    /health                liveness, never authenticated
//	GET    /metrics               Prometheus metrics, never authenticated
//	POST   /api/users             create user (201, 400, 409)
//	GET    /api/users             list users (200)
//	GET    /api/users/{id}        fetch user with client config (200, 404)
//	DELETE /api/users/{id}        deprovision user (200, 404)
//	GET    /api/server/status     interface status, 200 even when degraded
//
// Everything under /api is gated by the optional X-API-Key shared secret.
package api
