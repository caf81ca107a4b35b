// Package api is the Reader API: a read-only HTTP/WebSocket surface over
// the streaming supervisor's order books and worker fleet and the
// portfolio projector's positions, so a TUI or GUI client can poll a
// snapshot or hold a live feed without touching the event bus directly.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"polymarket-index/internal/config"
	"polymarket-index/pkg/types"
)

// Server runs the HTTP/WebSocket Reader API.
type Server struct {
	cfg       config.DashboardConfig
	streaming StreamingProvider
	portfolio PortfolioProvider
	hub       *Hub
	handlers  *Handlers
	server    *http.Server
	logger    *slog.Logger
}

// NewServer creates a new Reader API server.
func NewServer(cfg config.DashboardConfig, streaming StreamingProvider, portfolio PortfolioProvider, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(streaming, portfolio, cfg, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/api/snapshot", handlers.HandleSnapshot)
	mux.HandleFunc("/api/book", handlers.HandleBook)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)
	mux.Handle("/", http.FileServer(http.Dir("web")))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:       cfg,
		streaming: streaming,
		portfolio: portfolio,
		hub:       hub,
		handlers:  handlers,
		server:    server,
		logger:    logger.With("component", "api-server"),
	}
}

// Start starts the WebSocket hub, the event consumer, and the HTTP server.
// It blocks until the server shuts down.
func (s *Server) Start() error {
	go s.hub.Run()
	go s.consumeEvents()

	s.logger.Info("reader api starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.logger.Info("stopping reader api")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// consumeEvents subscribes to the streaming supervisor's live event feed
// and relays each event to every connected WebSocket client. An event that
// touches the caller's own orders or fills also triggers a fresh portfolio
// broadcast, since the projector's derived state (fills, P&L) changed too.
func (s *Server) consumeEvents() {
	_, events, unsub := s.streaming.SubscribeEvents(0)
	defer unsub()

	for evt := range events {
		s.hub.Broadcast(Event{
			Type:      string(evt.Kind),
			Timestamp: time.Now(),
			AssetID:   evt.AssetID,
			Data:      evt,
		})

		if evt.Kind == types.EventMyOrder || evt.Kind == types.EventMyTrade {
			s.hub.Broadcast(Event{
				Type:      "portfolio",
				Timestamp: time.Now(),
				Data:      s.portfolio.Stats(),
			})
		}
	}
}
