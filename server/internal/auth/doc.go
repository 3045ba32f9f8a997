// Package auth guards the server's endpoints with a shared API key.
//
// Middleware wraps the websocket upgrade handler; APIKeyInterceptor wraps the
// gRPC health service. Both are no-ops unless mode is "apikey" and a key is
// configured.
package auth
