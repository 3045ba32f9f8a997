// Package api implements the HTTP status surface of switchwatch-server.
//
// New returns an http.Handler that serves:
//
//	GET /api/v1/health  - lifecycle state, connected clients, entity count, broadcast settings
//	GET /metrics        - counters in the Prometheus text format
//
// JSON endpoints respond with Content-Type: application/json and return 405
// for non-GET methods. JSON types are defined in types.go.
package api
