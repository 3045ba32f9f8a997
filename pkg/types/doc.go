// Package types defines the Go types shared by the server and its consumers.
// These are the canonical in-memory representations of monitored switches and
// their ports, separate from the envelope framing in pkg/protocol.
package types
