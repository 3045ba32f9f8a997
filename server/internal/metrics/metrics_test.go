package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// parse decodes Prometheus text into metric families, failing the test on error.
func parse(t *testing.T, text string) map[string]*dto.MetricFamily {
	t.Helper()
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(strings.NewReader(text))
	if err != nil {
		t.Fatalf("parse metrics: %v\n%s", err, text)
	}
	return mfs
}

// value sums every sample of a family, optionally filtered by a label value.
func value(mf *dto.MetricFamily, labelValue string) float64 {
	if mf == nil {
		return -1
	}
	var total float64
	for _, m := range mf.GetMetric() {
		if labelValue != "" {
			match := false
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == labelValue {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		}
	}
	return total
}

func TestWriteText_RoundTrip(t *testing.T) {
	m := New()
	m.SetClientsFunc(func() int { return 3 })
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.SendFailed()
	m.DecodeFailed()
	m.Tick()
	m.MessageSent("port_update", 3)
	m.MessageSent("initial_data", 2)
	m.MessageSent("port_update", 0)
	m.Request("get_switch_ports")

	var buf bytes.Buffer
	if err := m.WriteText(&buf); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	mfs := parse(t, buf.String())

	checks := []struct {
		name, label string
		want        float64
	}{
		{"switchwatch_clients_connected", "", 3},
		{"switchwatch_connections_total", "", 2},
		{"switchwatch_send_failures_total", "", 1},
		{"switchwatch_decode_errors_total", "", 1},
		{"switchwatch_broadcast_ticks_total", "", 1},
		{"switchwatch_messages_sent_total", "port_update", 3},
		{"switchwatch_messages_sent_total", "initial_data", 2},
		{"switchwatch_requests_total", "get_switch_ports", 1},
	}
	for _, c := range checks {
		if got := value(mfs[c.name], c.label); got != c.want {
			t.Errorf("%s{%s}: got %v, want %v", c.name, c.label, got, c.want)
		}
	}
	if mfs["switchwatch_clients_connected"].GetType() != dto.MetricType_GAUGE {
		t.Error("clients_connected: want gauge type")
	}
}

func TestGather_NoClientsFunc(t *testing.T) {
	for _, mf := range New().Gather() {
		if mf.GetName() == "switchwatch_clients_connected" && value(mf, "") != 0 {
			t.Errorf("clients_connected: got %v, want 0", value(mf, ""))
		}
	}
}

func TestServeHTTP(t *testing.T) {
	m := New()
	m.Tick()

	rr := httptest.NewRecorder()
	m.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type: got %q, want text/plain", ct)
	}
	if !strings.Contains(rr.Body.String(), "switchwatch_broadcast_ticks_total 1") {
		t.Errorf("body missing tick counter:\n%s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	m.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status: got %d, want 405", rr.Code)
	}
}
