package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/switchwatch/switchwatch/tail/internal/follow"
	"github.com/switchwatch/switchwatch/tail/internal/scrape"
)

func main() {
	url := flag.String("url", "ws://127.0.0.1:8765/", "switchwatch-server websocket URL")
	keyEnv := flag.String("api-key-env", "", "environment variable holding the API key; none when empty")
	header := flag.String("api-key-header", "x-api-key", "header carrying the API key")
	switches := flag.String("switches", "", "comma-separated switch ids to query with get_switch_ports on connect")
	idle := flag.Duration("idle-timeout", 0, "reconnect when nothing arrives for this long; 0 disables")
	metricsURL := flag.String("metrics-url", "", "also poll this /metrics URL and log server totals; disabled when empty")
	metricsEvery := flag.Duration("metrics-interval", 30*time.Second, "metrics poll interval")
	logLevel := flag.String("log-level", "info", "debug | info | warn | error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	var key string
	opts := follow.Options{URL: *url, IdleTimeout: *idle}
	if *keyEnv != "" {
		key = os.Getenv(*keyEnv)
		opts.Header = http.Header{}
		opts.Header.Set(*header, key)
	}
	for _, id := range strings.Split(*switches, ",") {
		if id = strings.TrimSpace(id); id != "" {
			opts.Switches = append(opts.Switches, id)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *metricsURL != "" {
		go scrape.New(*metricsURL, *header, key).Poll(ctx, *metricsEvery, scrape.Log)
	}

	slog.Info("switchwatch-tail starting", "url", *url, "switches", len(opts.Switches))
	if err := follow.New(opts).Run(ctx); err != nil {
		slog.Error("switchwatch-tail stopped", "err", err)
		os.Exit(1)
	}
}
