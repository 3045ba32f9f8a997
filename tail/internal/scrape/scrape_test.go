package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exposition = `# HELP switchwatch_clients_connected Currently registered websocket clients.
# TYPE switchwatch_clients_connected gauge
switchwatch_clients_connected 3
# TYPE switchwatch_connections_total counter
switchwatch_connections_total 7
# TYPE switchwatch_messages_sent_total counter
switchwatch_messages_sent_total{type="initial_data"} 7
switchwatch_messages_sent_total{type="port_update"} 40
# TYPE switchwatch_requests_total counter
switchwatch_requests_total{type="get_switch_ports"} 2
`

func metricsServer(t *testing.T, wantKey string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantKey != "" && r.Header.Get("X-Api-Key") != wantKey {
			http.Error(w, "invalid api key", http.StatusUnauthorized)
			return
		}
		w.Write([]byte(exposition)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScrape_SumsFamilies(t *testing.T) {
	srv := metricsServer(t, "")

	st, err := New(srv.URL, "x-api-key", "").Scrape(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3.0, st.Clients)
	assert.Equal(t, 7.0, st.Connections)
	assert.Equal(t, 47.0, st.MessagesSent)
	assert.Equal(t, 2.0, st.Requests)
	assert.Zero(t, st.SendFailures, "absent family")
}

func TestScrape_APIKey(t *testing.T) {
	srv := metricsServer(t, "secret")

	_, err := New(srv.URL, "x-api-key", "").Scrape(context.Background())
	assert.ErrorContains(t, err, "401")

	st, err := New(srv.URL, "x-api-key", "secret").Scrape(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3.0, st.Clients)
}

func TestParseMetrics_Garbage(t *testing.T) {
	_, err := parseMetrics(strings.NewReader("{not prometheus"))
	assert.Error(t, err)
}

func TestPoll_DeliversUntilCancel(t *testing.T) {
	srv := metricsServer(t, "")
	s := New(srv.URL, "x-api-key", "")

	var n atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Poll(ctx, 10*time.Millisecond, func(*Stats) { n.Add(1) })
		close(done)
	}()

	require.Eventually(t, func() bool { return n.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
