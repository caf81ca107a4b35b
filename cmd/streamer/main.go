// Command streamer runs the long-lived streaming supervisor: it connects
// worker pools to the wire protocol, keeps the order book and activity
// tracker current, projects own-order/own-trade events into portfolio
// state, and optionally serves the Reader API for a TUI/GUI client.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"polymarket-index/internal/api"
	"polymarket-index/internal/config"
	"polymarket-index/internal/exchange"
	"polymarket-index/internal/portfolio"
	"polymarket-index/internal/store"
	"polymarket-index/internal/streaming"
	"polymarket-index/internal/worker"
	"polymarket-index/pkg/types"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("POLY_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	s, err := store.Open(cfg.Store.Path, true)
	if err != nil {
		logger.Error("failed to open store", "error", err, "path", cfg.Store.Path)
		os.Exit(1)
	}
	defer s.Close()

	var tokens []string
	if err := s.ScanTokens(func(id string, t types.Token) error {
		tokens = append(tokens, id)
		return nil
	}); err != nil {
		logger.Error("failed to load tokens from store", "error", err)
		os.Exit(1)
	}

	gateway := exchange.NewClient(cfg.API.CLOBBaseURL, logger)

	svc := streaming.New(streaming.Config{
		WSMarketURL:              cfg.API.WSMarketURL,
		WSUserURL:                cfg.API.WSUserURL,
		TokensPerWorker:          cfg.Streaming.TokensPerWorker,
		EventBufferSize:          cfg.Streaming.EventBufferSize,
		WorkerEventBufferSize:    cfg.Streaming.WorkerEventBufferSize,
		AutoReconnect:            cfg.Streaming.AutoReconnect,
		ReconnectDelayMs:         cfg.Streaming.ReconnectDelayMs,
		MaxReconnectDelayMs:      cfg.Streaming.MaxReconnectDelayMs,
		MaxReconnectAttempts:     cfg.Streaming.MaxReconnectAttempts,
		HealthCheckIntervalSecs:  cfg.Streaming.HealthCheckIntervalSecs,
		StatsIntervalSecs:        cfg.Streaming.StatsIntervalSecs,
		WorkerConnectionDelayMs:  cfg.Streaming.WorkerConnectionDelayMs,
		MaxConcurrentConnections: cfg.Streaming.MaxConcurrentConnections,
	}, worker.NewDialer(), gateway, prometheus.DefaultRegisterer, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		logger.Error("failed to start streaming service", "error", err)
		os.Exit(1)
	}

	if len(tokens) > 0 {
		if err := svc.AddTokens(tokens); err != nil {
			logger.Error("failed to add tokens", "error", err)
			os.Exit(1)
		}
		logger.Info("streaming started", "tokens", len(tokens))
	} else {
		logger.Warn("no tokens found in store; run the indexer first")
	}

	proj := portfolio.New()
	_, ownEvents, unsubOwn := svc.SubscribeEvents(cfg.Streaming.EventBufferSize)
	go func() {
		for evt := range ownEvents {
			proj.Apply(evt)
		}
	}()
	defer unsubOwn()

	var apiServer *api.Server
	if cfg.Dashboard.Enabled {
		apiServer = api.NewServer(cfg.Dashboard, svc, proj, logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("reader api failed", "error", err)
			}
		}()
		logger.Info("reader api started", "url", fmt.Sprintf("http://localhost:%d", cfg.Dashboard.Port))
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error("failed to stop reader api", "error", err)
		}
	}
	svc.Stop()
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
