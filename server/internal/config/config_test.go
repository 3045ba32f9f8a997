package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	// Server section absent: everything comes from defaults.
	p := writeConfig(t, `other:
  key: value
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.ListenAddr != DefaultListenAddr {
		t.Errorf("listen_addr: got %q, want %q", s.ListenAddr, DefaultListenAddr)
	}
	if s.Broadcast.Interval != DefaultBroadcastInterval {
		t.Errorf("broadcast.interval: got %v, want %v", s.Broadcast.Interval, DefaultBroadcastInterval)
	}
	if s.Broadcast.Policy != DefaultPolicy {
		t.Errorf("broadcast.policy: got %q, want %q", s.Broadcast.Policy, DefaultPolicy)
	}
	if s.Session.PingInterval != DefaultPingInterval {
		t.Errorf("session.ping_interval: got %v, want %v", s.Session.PingInterval, DefaultPingInterval)
	}
	if n := len(s.Inventory.Entities); n != 3 {
		t.Fatalf("inventory.entities: got %d, want 3", n)
	}
	if e := s.Inventory.Entities[0]; e.ID != "192.168.1.1" || e.SubResources != 24 {
		t.Errorf("entities[0]: got %+v, want 192.168.1.1 with 24 ports", e)
	}
}

func TestLoad_FullServer(t *testing.T) {
	p := writeConfig(t, `server:
  listen_addr: 0.0.0.0:9000
  ws_path: /ws
  health_addr: ""
  shutdown_timeout: 3s
  auth:
    mode: apikey
    key_env: MY_KEY
    header: x-switch-key
  broadcast:
    interval: 750ms
    policy: all
  session:
    send_buffer: 4
    ping_interval: 5s
    pong_wait: 8s
  inventory:
    seed: 11
    entities:
      - id: 10.0.0.1
        name: Lab
        sub_resources: 8
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.ListenAddr != "0.0.0.0:9000" {
		t.Errorf("listen_addr: got %q, want 0.0.0.0:9000", s.ListenAddr)
	}
	if s.WSPath != "/ws" {
		t.Errorf("ws_path: got %q, want /ws", s.WSPath)
	}
	if s.HealthAddr != "" {
		t.Errorf("health_addr: got %q, want empty", s.HealthAddr)
	}
	if s.Auth.EffectiveHeader() != "x-switch-key" {
		t.Errorf("header: got %q, want x-switch-key", s.Auth.EffectiveHeader())
	}
	if s.Broadcast.Interval != 750*time.Millisecond {
		t.Errorf("broadcast.interval: got %v, want 750ms", s.Broadcast.Interval)
	}
	if s.Broadcast.Policy != "all" {
		t.Errorf("broadcast.policy: got %q, want all", s.Broadcast.Policy)
	}
	// Unset session fields keep their defaults.
	if s.Session.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("session.write_timeout: got %v, want %v", s.Session.WriteTimeout, DefaultWriteTimeout)
	}
	if len(s.Inventory.Entities) != 1 || s.Inventory.Entities[0].ID != "10.0.0.1" {
		t.Errorf("inventory.entities: got %+v, want only 10.0.0.1", s.Inventory.Entities)
	}
	if s.Inventory.Seed != 11 {
		t.Errorf("inventory.seed: got %d, want 11", s.Inventory.Seed)
	}
}

func TestLoad_KeyEnvResolution(t *testing.T) {
	t.Setenv("TEST_SWITCH_KEY", "supersecret")
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: TEST_SWITCH_KEY
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if k := cfg.Server.Auth.Key(); k != "supersecret" {
		t.Errorf("Key(): got %q, want supersecret", k)
	}
	if h := cfg.Server.Auth.EffectiveHeader(); h != "x-api-key" {
		t.Errorf("EffectiveHeader: got %q, want x-api-key", h)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown auth mode": `server:
  auth:
    mode: oauth2
`,
		"unknown policy": `server:
  broadcast:
    policy: diff
`,
		"zero interval": `server:
  broadcast:
    interval: 0s
`,
		"min above max": `server:
  broadcast:
    min_sub_resources: 6
    max_sub_resources: 2
`,
		"ping not below pong": `server:
  session:
    ping_interval: 30s
    pong_wait: 30s
`,
		"max frame below read limit": `server:
  session:
    read_limit: 8192
    max_frame: 4096
`,
		"relative ws path": `server:
  ws_path: ws
`,
		"duplicate entity": `server:
  inventory:
    entities:
      - {id: a, name: A, sub_resources: 1}
      - {id: a, name: B, sub_resources: 1}
`,
		"entity without ports": `server:
  inventory:
    entities:
      - {id: a, name: A}
`,
		"bad yaml": "server: [\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
