package ws

import (
	"errors"
	"fmt"
)

var (
	errSlowClient = errors.New("send queue full")
	errShutdown   = errors.New("server shutting down")
)

// TransportError reports a read or write failure on one client connection.
// It always ends that session and never affects other clients.
type TransportError struct {
	ClientID string
	Op       string // "read" | "write" | "ping"
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ws: client %s: %s: %v", e.ClientID, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FatalSchedulingError is returned by Run when the broadcast loop itself
// fails. The server treats it as fatal.
type FatalSchedulingError struct {
	Err error
}

func (e *FatalSchedulingError) Error() string {
	return fmt.Sprintf("ws: broadcast loop failed: %v", e.Err)
}

func (e *FatalSchedulingError) Unwrap() error { return e.Err }
