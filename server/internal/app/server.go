package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/switchwatch/switchwatch/pkg/types"
	"github.com/switchwatch/switchwatch/server/internal/api"
	"github.com/switchwatch/switchwatch/server/internal/auth"
	"github.com/switchwatch/switchwatch/server/internal/config"
	"github.com/switchwatch/switchwatch/server/internal/health"
	"github.com/switchwatch/switchwatch/server/internal/inventory"
	"github.com/switchwatch/switchwatch/server/internal/metrics"
	"github.com/switchwatch/switchwatch/server/internal/policy"
	"github.com/switchwatch/switchwatch/server/internal/ws"
)

// ErrFatal marks failures that stop the server: listener errors and a broken
// broadcast loop. main exits non-zero on it.
var ErrFatal = errors.New("fatal server error")

// Server is one switchwatch-server instance.
type Server struct {
	store   *inventory.Store
	sim     *inventory.Simulator
	metrics *metrics.Metrics
	hub     *ws.Hub
	health  *health.Server
	http    *http.Server

	mu  sync.Mutex
	cfg config.ServerConfig // last applied
}

// New wires a Server from cfg. Nothing listens until Run or Serve.
func New(cfg *config.Config) (*Server, error) {
	sc := cfg.Server
	store := inventory.NewStore(entities(sc.Inventory)...)
	sim := inventory.NewSimulator(store, sc.Inventory.Seed)

	b := sc.Broadcast
	p, err := policy.New(b.Policy, b.MinSubResources, b.MaxSubResources, sim.Intn)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	m := metrics.New()
	hub := ws.New(sim, ws.Options{
		Interval:     b.Interval,
		Policy:       p,
		SendBuffer:   sc.Session.SendBuffer,
		WriteTimeout: sc.Session.WriteTimeout,
		PingInterval: sc.Session.PingInterval,
		PongWait:     sc.Session.PongWait,
		ReadLimit:    sc.Session.ReadLimit,
		MaxFrame:     sc.Session.MaxFrame,
		Metrics:      m,
	})

	s := &Server{
		store:   store,
		sim:     sim,
		metrics: m,
		hub:     hub,
		cfg:     sc,
	}
	if sc.HealthAddr != "" {
		s.health = health.New(sc.Auth.Mode, sc.Auth.EffectiveHeader(), sc.Auth.Key())
	}

	mux := http.NewServeMux()
	apiHandler := api.New(hub, store, m)
	mux.Handle("/api/", apiHandler)
	mux.Handle("/metrics", apiHandler)
	mux.Handle(sc.WSPath, auth.Middleware(sc.Auth.Mode, sc.Auth.EffectiveHeader(), sc.Auth.Key(), hub))
	s.http = &http.Server{Handler: mux}

	return s, nil
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub { return s.hub }

// Run listens on the configured addresses and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	sc := s.cfg
	s.mu.Unlock()

	lis, err := net.Listen("tcp", sc.ListenAddr)
	if err != nil {
		return fmt.Errorf("%w: listen %s: %w", ErrFatal, sc.ListenAddr, err)
	}

	var healthLis net.Listener
	if s.health != nil {
		healthLis, err = net.Listen("tcp", sc.HealthAddr)
		if err != nil {
			lis.Close()
			return fmt.Errorf("%w: listen %s: %w", ErrFatal, sc.HealthAddr, err)
		}
	}

	return s.Serve(ctx, lis, healthLis)
}

// Serve serves websocket and HTTP traffic on lis and the gRPC health service
// on healthLis (ignored when health is disabled) until ctx is cancelled or a
// component fails. It returns nil after a clean shutdown and an error
// wrapping ErrFatal otherwise.
func (s *Server) Serve(ctx context.Context, lis, healthLis net.Listener) error {
	s.mu.Lock()
	wsPath := s.cfg.WSPath
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	slog.Info("server: listening",
		"addr", lis.Addr().String(),
		"ws_path", wsPath,
		"entities", s.store.Count(),
		"interval", s.hub.Interval(),
		"policy", s.hub.PolicyName(),
	)

	g.Go(func() error {
		if err := s.hub.Run(hubCtx); err != nil {
			return fmt.Errorf("%w: %w", ErrFatal, err)
		}
		return nil
	})

	g.Go(func() error {
		if err := s.http.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%w: http: %w", ErrFatal, err)
		}
		return nil
	})

	if s.health != nil && healthLis != nil {
		slog.Info("server: health service listening", "addr", healthLis.Addr().String())
		s.health.SetServing(true)
		g.Go(func() error {
			if err := s.health.Serve(healthLis); err != nil {
				return fmt.Errorf("%w: health: %w", ErrFatal, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.shutdown(stopHub)
		return nil
	})

	return g.Wait()
}

// shutdown runs the ordered teardown bounded by shutdown_timeout.
func (s *Server) shutdown(stopHub context.CancelFunc) {
	s.mu.Lock()
	timeout := s.cfg.ShutdownTimeout
	s.mu.Unlock()

	slog.Info("server: shutting down", "clients", s.hub.Count(), "timeout", timeout)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if s.health != nil {
		s.health.SetServing(false)
	}
	if err := s.http.Shutdown(ctx); err != nil {
		slog.Warn("server: http shutdown", "err", err)
	}
	stopHub()
	if err := s.hub.Shutdown(ctx); err != nil {
		slog.Warn("server: sessions force-closed", "err", err)
	}
	if s.health != nil {
		s.health.Stop()
	}
	slog.Info("server: stopped")
}

// Reconfigure applies a reloaded config. The broadcast interval, selection
// policy and entity list change in place; other settings need a restart and
// are only reported.
func (s *Server) Reconfigure(cfg *config.Config) {
	next := cfg.Server
	b := next.Broadcast
	p, err := policy.New(b.Policy, b.MinSubResources, b.MaxSubResources, s.sim.Intn)
	if err != nil {
		slog.Error("server: reload rejected", "err", err)
		return
	}

	s.mu.Lock()
	prev := s.cfg
	s.cfg.Broadcast = next.Broadcast
	s.cfg.Inventory = next.Inventory
	s.mu.Unlock()

	for _, field := range restartOnly(prev, next) {
		slog.Warn("server: setting changed, restart to apply", "setting", field)
	}

	s.hub.Reconfigure(b.Interval, p)
	s.store.Replace(entities(next.Inventory))
	slog.Info("server: config applied",
		"interval", b.Interval,
		"policy", p.Name(),
		"entities", s.store.Count(),
	)
}

func restartOnly(prev, next config.ServerConfig) []string {
	var out []string
	if prev.ListenAddr != next.ListenAddr {
		out = append(out, "listen_addr")
	}
	if prev.WSPath != next.WSPath {
		out = append(out, "ws_path")
	}
	if prev.HealthAddr != next.HealthAddr {
		out = append(out, "health_addr")
	}
	if prev.Auth != next.Auth {
		out = append(out, "auth")
	}
	if prev.Session != next.Session {
		out = append(out, "session")
	}
	if prev.Inventory.Seed != next.Inventory.Seed {
		out = append(out, "inventory.seed")
	}
	return out
}

func entities(inv config.InventoryConfig) []types.MonitoredEntity {
	out := make([]types.MonitoredEntity, 0, len(inv.Entities))
	for _, e := range inv.Entities {
		out = append(out, types.MonitoredEntity{ID: e.ID, Name: e.Name, SubResourceCount: e.SubResources})
	}
	return out
}
