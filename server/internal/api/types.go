package api

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State             string `json:"state"` // serving | draining
	Clients           int    `json:"clients"`
	Entities          int    `json:"entities"`
	BroadcastInterval string `json:"broadcast_interval"`
	Policy            string `json:"policy"`
	GeneratedAt       string `json:"generated_at"` // RFC3339
}

// errorResponse is returned for all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}
