// Command indexer runs one ingest pass over a directory of market chunk
// files, writing conditions and tokens into the bbolt store. It exits
// once the run completes (or fails); it does not stay resident.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"polymarket-index/internal/config"
	"polymarket-index/internal/indexer"
	"polymarket-index/internal/progress"
	"polymarket-index/internal/store"
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

	s, err := store.Open(cfg.Store.Path, false)
	if err != nil {
		logger.Error("failed to open store", "error", err, "path", cfg.Store.Path)
		os.Exit(1)
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	progressCh := make(chan progress.Update, 256)
	go logProgress(logger, progressCh)

	ix := indexer.New(s, indexer.Config{
		SourceDir:      cfg.Indexer.SourceDir,
		SkipDuplicates: cfg.Indexer.SkipDuplicates,
		BatchSize:      cfg.Indexer.BatchSize,
		ThreadCount:    cfg.Indexer.ThreadCount,
	}, logger, progressCh)

	if err := ix.Run(ctx); err != nil {
		logger.Error("indexing run failed", "error", err)
		os.Exit(1)
	}
	logger.Info("indexing run complete")
}

func logProgress(logger *slog.Logger, ch <-chan progress.Update) {
	for u := range ch {
		switch u.Kind {
		case progress.KindFileStart:
			logger.Info("processing file", "file", u.FileName, "index", u.FileIndex, "total", u.TotalFiles, "markets", u.MarketCount)
		case progress.KindFileComplete:
			logger.Info("file complete", "file", u.FileName, "duplicates", u.Duplicates)
		case progress.KindPhaseChange:
			if u.Phase == progress.PhaseFailed {
				logger.Warn("phase change", "phase", u.Phase, "reason", u.FailureMsg)
			} else {
				logger.Info("phase change", "phase", u.Phase)
			}
		case progress.KindConditionCount:
			logger.Info("conditions indexed", "count", u.Count)
		case progress.KindTokenCount:
			logger.Info("tokens indexed", "count", u.Count)
		case progress.KindComplete:
			logger.Info("run complete")
		case progress.KindError:
			logger.Warn("progress error", "message", u.Message)
		}
	}
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
