// Package registry tracks the set of connected websocket sessions.
//
// Add, Remove and Snapshot share one mutex, so a registration racing a
// broadcast is either fully inside the broadcast's snapshot or fully outside
// it. Snapshot returns members in registration order.
package registry
