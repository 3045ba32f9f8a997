// Package app assembles switchwatch-server: the inventory, the websocket hub,
// the HTTP status API and the gRPC health service, run together under one
// errgroup.
//
// Shutdown order: health goes NOT_SERVING, the HTTP listener closes, the
// broadcast loop stops, sessions flush and receive a close frame, and after
// shutdown_timeout any remaining socket is closed.
package app
