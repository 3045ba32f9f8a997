// Package inventory supplies the switch and port state that the websocket hub
// broadcasts.
//
// Store is a thread-safe, insertion-ordered table of monitored switches.
// Simulator implements the hub's snapshot source on top of a Store and
// fabricates port records on demand. It does no discovery of its own; a real
// deployment would put live device state behind the same three methods.
package inventory
