// Package config loads the server configuration from the `server:` section of
// config.yaml.
//
// Config fields:
//   - ListenAddr      - websocket bind address (default 127.0.0.1:8765)
//   - WSPath          - upgrade path (default "/")
//   - HealthAddr      - gRPC health service address; empty disables it
//   - ShutdownTimeout - bound on graceful session drain (default 10s)
//   - Auth            - "apikey" or "none"; key resolved from KeyEnv
//   - Broadcast       - interval (default 5s) and port selection policy
//   - Session         - queue depth, write timeout, ping/pong, read limit
//   - Inventory       - simulator seed and the monitored switches
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, fn) reloads the file on change and hands valid configs to fn.
package config
