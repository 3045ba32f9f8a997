package metrics

import (
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

const namespace = "switchwatch_"

// Metrics holds the hub's counters. All methods are safe for concurrent use.
type Metrics struct {
	connections  atomic.Uint64
	sendFailures atomic.Uint64
	decodeErrors atomic.Uint64
	ticks        atomic.Uint64

	mu       sync.Mutex
	sent     map[string]uint64 // key: envelope type
	requests map[string]uint64 // key: request type
	clients  func() int
}

// New returns zeroed Metrics.
func New() *Metrics {
	return &Metrics{
		sent:     make(map[string]uint64),
		requests: make(map[string]uint64),
	}
}

// SetClientsFunc installs the source of the connected-clients gauge.
func (m *Metrics) SetClientsFunc(f func() int) {
	m.mu.Lock()
	m.clients = f
	m.mu.Unlock()
}

// ConnectionOpened counts one accepted websocket session.
func (m *Metrics) ConnectionOpened() { m.connections.Add(1) }

// SendFailed counts one message that could not be queued or written.
func (m *Metrics) SendFailed() { m.sendFailures.Add(1) }

// DecodeFailed counts one dropped inbound frame.
func (m *Metrics) DecodeFailed() { m.decodeErrors.Add(1) }

// Tick counts one broadcast tick that reached at least one client.
func (m *Metrics) Tick() { m.ticks.Add(1) }

// MessageSent counts n queued messages of the given envelope type.
func (m *Metrics) MessageSent(kind string, n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.sent[kind] += uint64(n)
	m.mu.Unlock()
}

// Request counts one decoded client request.
func (m *Metrics) Request(kind string) {
	m.mu.Lock()
	m.requests[kind]++
	m.mu.Unlock()
}

// Gather returns the current value of every family, sorted by name.
func (m *Metrics) Gather() []*dto.MetricFamily {
	m.mu.Lock()
	clients := 0
	if m.clients != nil {
		clients = m.clients()
	}
	sent := labelled("type", m.sent)
	requests := labelled("type", m.requests)
	m.mu.Unlock()

	return []*dto.MetricFamily{
		counter("broadcast_ticks_total", "Broadcast ticks delivered to at least one client.", m.ticks.Load()),
		gauge("clients_connected", "Currently registered websocket clients.", float64(clients)),
		counter("connections_total", "Websocket sessions accepted.", m.connections.Load()),
		counter("decode_errors_total", "Inbound frames dropped because they could not be decoded.", m.decodeErrors.Load()),
		family("messages_sent_total", "Envelopes queued for delivery, by type.", dto.MetricType_COUNTER, sent),
		family("requests_total", "Client requests handled, by type.", dto.MetricType_COUNTER, requests),
		counter("send_failures_total", "Envelopes that could not be delivered.", m.sendFailures.Load()),
	}
}

// WriteText writes every non-empty family in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	for _, mf := range m.Gather() {
		// expfmt rejects families without samples.
		if len(mf.GetMetric()) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// ServeHTTP serves GET /metrics.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	if err := m.WriteText(w); err != nil {
		slog.Warn("metrics: write failed", "err", err)
	}
}

// --- family builders -------------------------------------------------------

func counter(name, help string, v uint64) *dto.MetricFamily {
	return family(name, help, dto.MetricType_COUNTER, []*dto.Metric{{
		Counter: &dto.Counter{Value: proto.Float64(float64(v))},
	}})
}

func gauge(name, help string, v float64) *dto.MetricFamily {
	return family(name, help, dto.MetricType_GAUGE, []*dto.Metric{{
		Gauge: &dto.Gauge{Value: proto.Float64(v)},
	}})
}

func family(name, help string, typ dto.MetricType, metrics []*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(namespace + name),
		Help:   proto.String(help),
		Type:   typ.Enum(),
		Metric: metrics,
	}
}

// labelled turns a counter map into one metric per key, ordered by key.
// Caller must hold the lock protecting counts.
func labelled(label string, counts map[string]uint64) []*dto.Metric {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*dto.Metric, 0, len(keys))
	for _, k := range keys {
		out = append(out, &dto.Metric{
			Label:   []*dto.LabelPair{{Name: proto.String(label), Value: proto.String(k)}},
			Counter: &dto.Counter{Value: proto.Float64(float64(counts[k]))},
		})
	}
	return out
}
