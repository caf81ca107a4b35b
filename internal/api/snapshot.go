package api

import (
	"time"

	"github.com/shopspring/decimal"

	"polymarket-index/internal/orderbook"
	"polymarket-index/pkg/types"
)

// StreamingProvider is the narrow read surface the Reader API needs from
// the streaming supervisor.
type StreamingProvider interface {
	GetStreamingTokens() []string
	GetOrderBook(assetID string) (orderbook.Snapshot, bool)
	GetLastTradePrice(assetID string) (decimal.Decimal, bool)
	GetStats() types.StreamingStats
	GetWorkerStatuses() []types.WorkerStatus
	Activity(tokenID string) (types.ActivityCounters, bool)
	SubscribeEvents(bufSize int) (uint64, <-chan types.MarketEvent, func())
}

// PortfolioProvider is the narrow read surface the Reader API needs from
// the portfolio projector.
type PortfolioProvider interface {
	Positions() []types.Position
	Stats() types.PortfolioStats
}

// BuildSnapshot aggregates the streaming and portfolio state into one
// dashboard-ready payload.
func BuildSnapshot(streaming StreamingProvider, portfolio PortfolioProvider) ReaderSnapshot {
	assets := streaming.GetStreamingTokens()
	tokens := make([]TokenSnapshot, 0, len(assets))
	for _, assetID := range assets {
		ts := TokenSnapshot{AssetID: assetID}
		if snap, ok := streaming.GetOrderBook(assetID); ok {
			view := newBookView(snap)
			ts.Book = &view
		}
		if act, ok := streaming.Activity(assetID); ok {
			ts.Activity = act
		}
		tokens = append(tokens, ts)
	}

	return ReaderSnapshot{
		Timestamp: time.Now(),
		Tokens:    tokens,
		Streaming: streaming.GetStats(),
		Workers:   streaming.GetWorkerStatuses(),
		Portfolio: portfolio.Stats(),
		Positions: portfolio.Positions(),
	}
}
