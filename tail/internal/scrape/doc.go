// Package scrape polls switchwatch-server's /metrics endpoint and reduces the
// Prometheus text exposition to a handful of totals the tail logs alongside
// the websocket stream.
package scrape
