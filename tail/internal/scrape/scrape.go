package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const defaultTimeout = 10 * time.Second

// Server metric names read by Scrape.
const (
	metricClients      = "switchwatch_clients_connected"
	metricConnections  = "switchwatch_connections_total"
	metricSent         = "switchwatch_messages_sent_total"
	metricSendFailures = "switchwatch_send_failures_total"
	metricDecodeErrors = "switchwatch_decode_errors_total"
	metricRequests     = "switchwatch_requests_total"
	metricTicks        = "switchwatch_broadcast_ticks_total"
)

// Stats is one scrape of the server. Counters hold raw totals since start.
type Stats struct {
	ScrapedAt    time.Time
	Clients      float64
	Connections  float64
	MessagesSent float64
	SendFailures float64
	DecodeErrors float64
	Requests     float64
	Ticks        float64
}

// Scraper fetches and parses the server's metrics.
type Scraper struct {
	url    string
	client *http.Client
}

// New returns a Scraper for url. When key is non-empty it is sent in header
// on every request.
func New(url, header, key string) *Scraper {
	var rt http.RoundTripper = http.DefaultTransport
	if key != "" {
		rt = &authRoundTripper{base: rt, header: header, key: key}
	}
	return &Scraper{
		url:    url,
		client: &http.Client{Transport: rt, Timeout: defaultTimeout},
	}
}

// Scrape fetches the endpoint once.
func (s *Scraper) Scrape(ctx context.Context) (*Stats, error) {
	mfs, err := fetchMetrics(ctx, s.client, s.url)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", s.url, err)
	}
	return &Stats{
		ScrapedAt:    time.Now().UTC(),
		Clients:      sumFamily(mfs[metricClients]),
		Connections:  sumFamily(mfs[metricConnections]),
		MessagesSent: sumFamily(mfs[metricSent]),
		SendFailures: sumFamily(mfs[metricSendFailures]),
		DecodeErrors: sumFamily(mfs[metricDecodeErrors]),
		Requests:     sumFamily(mfs[metricRequests]),
		Ticks:        sumFamily(mfs[metricTicks]),
	}, nil
}

// Poll scrapes every interval and passes each result to onStats until ctx is
// cancelled. Failed scrapes are logged and skipped.
func (s *Scraper) Poll(ctx context.Context, interval time.Duration, onStats func(*Stats)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st, err := s.Scrape(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("scrape: fetch failed", "url", s.url, "err", err)
				}
				continue
			}
			onStats(st)
		}
	}
}

// Log writes st at info level.
func Log(st *Stats) {
	slog.Info("scrape: server stats",
		"clients", st.Clients,
		"connections", st.Connections,
		"messages_sent", st.MessagesSent,
		"send_failures", st.SendFailures,
		"decode_errors", st.DecodeErrors,
		"requests", st.Requests,
		"ticks", st.Ticks,
	)
}

// authRoundTripper injects the API key header into every outgoing request.
type authRoundTripper struct {
	base   http.RoundTripper
	header string
	key    string
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(t.header, t.key)
	return t.base.RoundTrip(req)
}

// fetchMetrics performs an HTTP GET to url and returns parsed metric families.
func fetchMetrics(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a Prometheus text exposition. A partial result with a
// parse warning still counts as success.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// sumFamily adds up every counter, gauge or untyped value in mf. A missing
// family sums to 0.
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		}
	}
	return total
}
