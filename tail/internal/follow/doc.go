// Package follow keeps a websocket subscription to switchwatch-server open,
// reconnecting with truncated exponential backoff (1s doubling to 60s, ±25%
// jitter) whenever the connection drops. Every envelope received is handed
// to a callback; the tail binary logs them.
package follow
