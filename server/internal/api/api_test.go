package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/switchwatch/switchwatch/server/internal/api"
	"github.com/switchwatch/switchwatch/server/internal/metrics"
)

// --- test helpers -----------------------------------------------------------

type fakeHub struct {
	clients  int
	closing  bool
	interval time.Duration
}

func (f fakeHub) Count() int              { return f.clients }
func (f fakeHub) Closing() bool           { return f.closing }
func (f fakeHub) Interval() time.Duration { return f.interval }
func (f fakeHub) PolicyName() string      { return "random" }

type fakeInventory int

func (f fakeInventory) Count() int { return int(f) }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- /api/v1/health ---------------------------------------------------------

func TestHealth_Serving(t *testing.T) {
	h := api.New(fakeHub{clients: 2, interval: 5 * time.Second}, fakeInventory(3), metrics.New())

	rr := get(t, h, "/api/v1/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}

	var resp api.HealthResponse
	decode(t, rr, &resp)
	if resp.State != api.StateServing {
		t.Errorf("state: got %q, want %q", resp.State, api.StateServing)
	}
	if resp.Clients != 2 {
		t.Errorf("clients: got %d, want 2", resp.Clients)
	}
	if resp.Entities != 3 {
		t.Errorf("entities: got %d, want 3", resp.Entities)
	}
	if resp.BroadcastInterval != "5s" {
		t.Errorf("broadcast_interval: got %q, want 5s", resp.BroadcastInterval)
	}
	if _, err := time.Parse(time.RFC3339, resp.GeneratedAt); err != nil {
		t.Errorf("generated_at: %v", err)
	}
}

func TestHealth_Draining(t *testing.T) {
	h := api.New(fakeHub{closing: true, interval: time.Second}, fakeInventory(0), metrics.New())

	rr := get(t, h, "/api/v1/health")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", rr.Code)
	}
	var resp api.HealthResponse
	decode(t, rr, &resp)
	if resp.State != api.StateDraining {
		t.Errorf("state: got %q, want %q", resp.State, api.StateDraining)
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	h := api.New(fakeHub{}, fakeInventory(0), metrics.New())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/health", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- /metrics ---------------------------------------------------------------

func TestMetrics_Served(t *testing.T) {
	m := metrics.New()
	m.ConnectionOpened()
	h := api.New(fakeHub{}, fakeInventory(0), m)

	rr := get(t, h, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "switchwatch_connections_total 1") {
		t.Errorf("body missing connections counter:\n%s", rr.Body.String())
	}
}

func TestUnknownPath_NotFound(t *testing.T) {
	h := api.New(fakeHub{}, fakeInventory(0), metrics.New())
	if rr := get(t, h, "/api/v1/pipelines"); rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}
