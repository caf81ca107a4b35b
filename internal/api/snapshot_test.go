package api

import (
	"testing"

	"github.com/shopspring/decimal"

	"polymarket-index/internal/orderbook"
	"polymarket-index/pkg/types"
)

type fakeStreaming struct {
	tokens   []string
	books    map[string]orderbook.Snapshot
	activity map[string]types.ActivityCounters
	stats    types.StreamingStats
	workers  []types.WorkerStatus
}

func (f *fakeStreaming) GetStreamingTokens() []string { return f.tokens }

func (f *fakeStreaming) GetOrderBook(assetID string) (orderbook.Snapshot, bool) {
	snap, ok := f.books[assetID]
	return snap, ok
}

func (f *fakeStreaming) GetLastTradePrice(assetID string) (decimal.Decimal, bool) {
	snap, ok := f.books[assetID]
	if !ok || !snap.HasLastTrade {
		return decimal.Zero, false
	}
	return snap.LastTradePrice, true
}

func (f *fakeStreaming) GetStats() types.StreamingStats { return f.stats }

func (f *fakeStreaming) GetWorkerStatuses() []types.WorkerStatus { return f.workers }

func (f *fakeStreaming) Activity(tokenID string) (types.ActivityCounters, bool) {
	c, ok := f.activity[tokenID]
	return c, ok
}

func (f *fakeStreaming) SubscribeEvents(bufSize int) (uint64, <-chan types.MarketEvent, func()) {
	ch := make(chan types.MarketEvent)
	close(ch)
	return 0, ch, func() {}
}

type fakePortfolio struct {
	positions []types.Position
	stats     types.PortfolioStats
}

func (f *fakePortfolio) Positions() []types.Position      { return f.positions }
func (f *fakePortfolio) Stats() types.PortfolioStats { return f.stats }

func TestBuildSnapshotIncludesBookAndActivityPerToken(t *testing.T) {
	streaming := &fakeStreaming{
		tokens: []string{"tok1"},
		books: map[string]orderbook.Snapshot{
			"tok1": {
				AssetID: "tok1",
				Bids:    []orderbook.Level{{Price: decimal.RequireFromString("0.40"), Size: decimal.RequireFromString("10")}},
				Asks:    []orderbook.Level{{Price: decimal.RequireFromString("0.60"), Size: decimal.RequireFromString("10")}},
			},
		},
		activity: map[string]types.ActivityCounters{
			"tok1": {TokenID: "tok1", EventCount: 3},
		},
	}
	portfolio := &fakePortfolio{}

	snap := BuildSnapshot(streaming, portfolio)

	if len(snap.Tokens) != 1 {
		t.Fatalf("Tokens = %d, want 1", len(snap.Tokens))
	}
	tok := snap.Tokens[0]
	if tok.AssetID != "tok1" {
		t.Errorf("AssetID = %s, want tok1", tok.AssetID)
	}
	if tok.Book == nil {
		t.Fatal("Book = nil, want a populated view")
	}
	if tok.Book.Mid == nil || !tok.Book.Mid.Equal(decimal.RequireFromString("0.50")) {
		t.Errorf("Mid = %v, want 0.50", tok.Book.Mid)
	}
	if tok.Activity.EventCount != 3 {
		t.Errorf("EventCount = %d, want 3", tok.Activity.EventCount)
	}
}

func TestBuildSnapshotOmitsBookForUnseenToken(t *testing.T) {
	streaming := &fakeStreaming{tokens: []string{"tok2"}, books: map[string]orderbook.Snapshot{}}
	portfolio := &fakePortfolio{}

	snap := BuildSnapshot(streaming, portfolio)

	if snap.Tokens[0].Book != nil {
		t.Error("Book should be nil when no snapshot has been applied yet")
	}
}

func TestBuildSnapshotIncludesPortfolioAggregates(t *testing.T) {
	streaming := &fakeStreaming{}
	portfolio := &fakePortfolio{
		positions: []types.Position{{TokenID: "tok1", Side: types.PositionLong}},
		stats:     types.PortfolioStats{OpenPositions: 1},
	}

	snap := BuildSnapshot(streaming, portfolio)

	if len(snap.Positions) != 1 {
		t.Errorf("Positions = %d, want 1", len(snap.Positions))
	}
	if snap.Portfolio.OpenPositions != 1 {
		t.Errorf("OpenPositions = %d, want 1", snap.Portfolio.OpenPositions)
	}
}
