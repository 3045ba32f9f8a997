// Package ws implements the websocket hub for switchwatch-server.
//
// Hub owns the connection registry, one session per connected client and the
// broadcast loop.
//
// New(source, opts) creates a Hub.
// Hub.Run(ctx) runs the broadcast ticker until ctx is cancelled. Each tick
// selects ports with the configured policy and queues one port_update to every
// registered client. Clients whose queue is full are disconnected after the
// tick. Stopping Run does not close any client.
// Hub.ServeHTTP upgrades a connection, queues initial_data, registers the
// session and then serves get_port_status / get_switch_ports requests until
// the connection drops.
// Hub.Shutdown(ctx) refuses new upgrades, asks every session to flush and send
// a close frame, and force-closes whatever is left when ctx expires.
//
// The upgrader accepts all origins. Apply origin and API key checks in front
// of the hub (see package auth).
package ws
