package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/switchwatch/switchwatch/server/internal/app"
	"github.com/switchwatch/switchwatch/server/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to config file; built-in defaults when empty")
	logLevel := flag.String("log-level", "info", "debug | info | warn | error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("switchwatch-server starting", "config", *configPath)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "err", err)
			os.Exit(1)
		}
	}

	slog.Info("config loaded",
		"listen_addr", cfg.Server.ListenAddr,
		"health_addr", cfg.Server.HealthAddr,
		"auth_mode", cfg.Server.Auth.Mode,
		"interval", cfg.Server.Broadcast.Interval,
		"policy", cfg.Server.Broadcast.Policy,
		"entities", len(cfg.Server.Inventory.Entities),
	)

	srv, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to build server", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *configPath != "" {
		go func() {
			if err := config.Watch(ctx, *configPath, srv.Reconfigure); err != nil {
				slog.Warn("config watch disabled", "path", *configPath, "err", err)
			}
		}()
	}

	if err := srv.Run(ctx); err != nil {
		slog.Error("switchwatch-server stopped", "err", err, "fatal", errors.Is(err, app.ErrFatal))
		os.Exit(1)
	}
	slog.Info("switchwatch-server exited")
}
