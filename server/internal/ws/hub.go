package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/switchwatch/switchwatch/pkg/protocol"
	"github.com/switchwatch/switchwatch/pkg/types"
	"github.com/switchwatch/switchwatch/server/internal/metrics"
	"github.com/switchwatch/switchwatch/server/internal/policy"
	"github.com/switchwatch/switchwatch/server/internal/registry"
)

// Source supplies the switch state served by the hub. Calls must return
// after a bounded amount of local work.
type Source interface {
	CurrentEntities() []types.MonitoredEntity
	SubResourcesFor(entityID string) ([]types.SubResource, error)
	SubResource(entityID string, n int) (types.SubResource, error)
}

// Options tunes a Hub. Zero fields take the defaults below.
type Options struct {
	Interval     time.Duration
	Policy       policy.Policy
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
	PongWait     time.Duration
	ReadLimit    int64
	MaxFrame     int64
	Metrics      *metrics.Metrics
}

const (
	defaultInterval     = 5 * time.Second
	defaultSendBuffer   = 16
	defaultWriteTimeout = 10 * time.Second
	defaultPongWait     = 30 * time.Second
	defaultReadLimit    = 4096
	defaultMaxFrame     = 1 << 20

	// closeGrace is how long a draining session waits for the peer to answer
	// its close frame.
	closeGrace = time.Second
)

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = defaultInterval
	}
	if o.Policy == nil {
		o.Policy = policy.All{}
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = defaultSendBuffer
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.PongWait {
		o.PingInterval = (o.PongWait * 9) / 10
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = defaultReadLimit
	}
	if o.MaxFrame < o.ReadLimit {
		o.MaxFrame = max(defaultMaxFrame, o.ReadLimit)
	}
	if o.Metrics == nil {
		o.Metrics = metrics.New()
	}
	return o
}

// Hub manages websocket sessions and broadcasts port updates to all of them
// every interval.
type Hub struct {
	source   Source
	opts     Options
	metrics  *metrics.Metrics
	clients  *registry.Registry[*session]
	upgrader websocket.Upgrader
	now      func() time.Time // injectable for deterministic tests

	policyMu sync.RWMutex
	policy   policy.Policy

	interval atomic.Int64 // time.Duration
	resetC   chan time.Duration
	seq      atomic.Uint64

	// lifecycle orders sessions.Add against Shutdown's Wait.
	lifecycle sync.Mutex
	closing   atomic.Bool
	sessions  sync.WaitGroup
}

// New creates a Hub that reads switch state from src.
func New(src Source, opts Options) *Hub {
	opts = opts.withDefaults()
	h := &Hub{
		source:  src,
		opts:    opts,
		metrics: opts.Metrics,
		clients: registry.New[*session](),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Allow all origins; callers restrict access in front of the hub.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		now:    time.Now,
		policy: opts.Policy,
		resetC: make(chan time.Duration, 1),
	}
	h.interval.Store(int64(opts.Interval))
	h.metrics.SetClientsFunc(h.clients.Count)
	return h
}

// Count returns the number of registered clients.
func (h *Hub) Count() int { return h.clients.Count() }

// Closing reports whether Shutdown has been called.
func (h *Hub) Closing() bool { return h.closing.Load() }

// Interval returns the current broadcast interval.
func (h *Hub) Interval() time.Duration { return time.Duration(h.interval.Load()) }

// PolicyName returns the name of the active selection policy.
func (h *Hub) PolicyName() string {
	h.policyMu.RLock()
	defer h.policyMu.RUnlock()
	return h.policy.Name()
}

// Reconfigure swaps the broadcast interval and selection policy. A
// non-positive interval or nil policy leaves that setting unchanged. The new
// interval takes effect from the next tick.
func (h *Hub) Reconfigure(interval time.Duration, p policy.Policy) {
	if p != nil {
		h.policyMu.Lock()
		h.policy = p
		h.policyMu.Unlock()
	}
	if interval <= 0 || interval == h.Interval() {
		return
	}
	h.interval.Store(int64(interval))
	for {
		select {
		case h.resetC <- interval:
			return
		default:
			// Drop a pending reset nobody has consumed yet.
			select {
			case <-h.resetC:
			default:
			}
		}
	}
}

// Run starts the broadcast ticker loop. It blocks until ctx is cancelled and
// returns nil, or returns a *FatalSchedulingError if a tick fails internally.
// Run does not close any client; see Shutdown.
func (h *Hub) Run(ctx context.Context) error {
	t := time.NewTicker(h.Interval())
	defer t.Stop()

	slog.Info("ws: broadcast loop started", "interval", h.Interval(), "policy", h.PolicyName())
	for {
		select {
		case <-ctx.Done():
			slog.Info("ws: broadcast loop stopped")
			return nil
		case d := <-h.resetC:
			t.Reset(d)
			slog.Info("ws: broadcast interval changed", "interval", d)
		case <-t.C:
			if err := h.tick(); err != nil {
				return err
			}
		}
	}
}

// tick runs one broadcast and converts a panic into a fatal error.
func (h *Hub) tick() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &FatalSchedulingError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	h.broadcast()
	return nil
}

// ServeHTTP upgrades the HTTP connection to websocket and serves the client.
// Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.lifecycle.Lock()
	if h.closing.Load() {
		h.lifecycle.Unlock()
		http.Error(w, errShutdown.Error(), http.StatusServiceUnavailable)
		return
	}
	h.sessions.Add(1)
	h.lifecycle.Unlock()
	defer h.sessions.Done()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		slog.Debug("ws: upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	s := newSession(h, conn, r.RemoteAddr)
	h.metrics.ConnectionOpened()

	// Queue initial_data before registering so it precedes every broadcast
	// this session can see. The queue is empty, so this cannot block.
	msg, err := h.initialMessage()
	if err != nil {
		slog.Error("ws: build initial_data", "client", s.id, "err", err)
		conn.Close()
		return
	}
	s.send <- msg
	h.metrics.MessageSent(string(protocol.KindInitialData), 1)

	h.clients.Add(s)
	if h.closing.Load() {
		s.requestDrain()
	}

	go s.writePump()
	s.readPump() // blocks until connection closes
}

// Shutdown stops accepting sessions, asks every registered session to flush
// its queue and close, and waits for them. When ctx expires first the
// remaining connections are closed immediately and ctx.Err() is returned.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.lifecycle.Lock()
	h.closing.Store(true)
	h.lifecycle.Unlock()

	targets := h.clients.Snapshot()
	slog.Info("ws: draining sessions", "count", len(targets))
	for _, s := range targets {
		s.requestDrain()
	}

	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		left := h.clients.Snapshot()
		slog.Warn("ws: shutdown timed out, closing remaining sessions", "count", len(left))
		for _, s := range left {
			s.close(errShutdown)
		}
		return ctx.Err()
	}
}

// --- internal ---------------------------------------------------------------

// broadcast sends one port_update to every client registered at tick start.
// Enqueueing never blocks; each session's writer goroutine performs the
// actual write, so a slow client delays nobody else.
func (h *Hub) broadcast() {
	targets := h.clients.Snapshot()
	if len(targets) == 0 {
		return
	}

	msg, err := h.updateMessage()
	if err != nil {
		slog.Error("ws: build port_update", "err", err)
		return
	}

	var failed []*session
	for _, s := range targets {
		if !s.enqueue(msg) {
			failed = append(failed, s)
		}
	}

	h.metrics.Tick()
	h.metrics.MessageSent(string(protocol.KindPortUpdate), len(targets)-len(failed))

	// Removal happens after the iteration over the snapshot.
	for _, s := range failed {
		h.metrics.SendFailed()
		slog.Warn("ws: dropping client during broadcast", "client", s.id, "remote", s.remote, "err", errSlowClient)
		s.close(errSlowClient)
	}
}

func (h *Hub) envelope(kind protocol.Kind, payload any) protocol.Envelope {
	return protocol.Envelope{Type: kind, Timestamp: h.now().UTC(), Payload: payload}
}

func (h *Hub) initialMessage() ([]byte, error) {
	entities := h.source.CurrentEntities()
	if entities == nil {
		entities = []types.MonitoredEntity{}
	}
	return protocol.Encode(h.envelope(protocol.KindInitialData, protocol.InitialData{Entities: entities}))
}

func (h *Hub) updateMessage() ([]byte, error) {
	h.policyMu.RLock()
	p := h.policy
	h.policyMu.RUnlock()

	entities := h.source.CurrentEntities()
	updates := make([]protocol.EntityUpdate, 0, len(entities))
	for _, e := range entities {
		ports, err := h.source.SubResourcesFor(e.ID)
		if err != nil {
			// The entity disappeared between the two calls (config reload).
			slog.Debug("ws: skipping entity in broadcast", "entity", e.ID, "err", err)
			continue
		}
		updates = append(updates, protocol.EntityUpdate{
			EntityID:     e.ID,
			EntityName:   e.Name,
			SubResources: p.Select(ports),
		})
	}

	return protocol.Encode(h.envelope(protocol.KindPortUpdate, protocol.PortUpdate{
		Sequence: h.seq.Add(1),
		Updates:  updates,
	}))
}
