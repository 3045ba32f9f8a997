package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// Hub is the part of the websocket hub the API reports on.
type Hub interface {
	Count() int
	Closing() bool
	Interval() time.Duration
	PolicyName() string
}

// Inventory reports how many switches are monitored.
type Inventory interface {
	Count() int
}

// States reported by /api/v1/health.
const (
	StateServing  = "serving"
	StateDraining = "draining"
)

// Handler is the HTTP handler for /api/v1/* and /metrics.
type Handler struct {
	hub       Hub
	inventory Inventory
	mux       *http.ServeMux
	now       func() time.Time // injectable for deterministic tests
}

// New creates a Handler and registers all routes. metrics serves /metrics.
func New(hub Hub, inv Inventory, metrics http.Handler) *Handler {
	h := &Handler{hub: hub, inventory: inv, mux: http.NewServeMux(), now: time.Now}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.Handle("/metrics", metrics)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := HealthResponse{
		State:             StateServing,
		Clients:           h.hub.Count(),
		Entities:          h.inventory.Count(),
		BroadcastInterval: h.hub.Interval().String(),
		Policy:            h.hub.PolicyName(),
		GeneratedAt:       h.now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK
	if h.hub.Closing() {
		resp.State = StateDraining
		code = http.StatusServiceUnavailable
	}
	jsonResp(w, code, resp)
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
