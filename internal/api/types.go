package api

import (
	"time"

	"github.com/shopspring/decimal"

	"polymarket-index/internal/orderbook"
	"polymarket-index/pkg/types"
)

// ReaderSnapshot is the complete point-in-time view the Reader API hands to
// a freshly connected client, and that HandleSnapshot serves on demand.
type ReaderSnapshot struct {
	Timestamp time.Time            `json:"timestamp"`
	Tokens    []TokenSnapshot      `json:"tokens"`
	Streaming types.StreamingStats `json:"streaming"`
	Workers   []types.WorkerStatus `json:"workers"`
	Portfolio types.PortfolioStats `json:"portfolio"`
	Positions []types.Position    `json:"positions"`
}

// TokenSnapshot is one streamed token's book and activity state.
type TokenSnapshot struct {
	AssetID  string                 `json:"asset_id"`
	Book     *BookView              `json:"book,omitempty"`
	Activity types.ActivityCounters `json:"activity"`
}

// BookView is the JSON-friendly projection of an orderbook.Snapshot: the
// raw bid/ask ladders plus the derived mid and last trade price, since
// those are cheap to compute once here rather than on every client.
type BookView struct {
	Bids           []orderbook.Level `json:"bids"`
	Asks           []orderbook.Level `json:"asks"`
	Mid            *decimal.Decimal  `json:"mid,omitempty"`
	LastTradePrice *decimal.Decimal  `json:"last_trade_price,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func newBookView(snap orderbook.Snapshot) BookView {
	view := BookView{Bids: snap.Bids, Asks: snap.Asks, UpdatedAt: snap.UpdatedAt}
	if mid, ok := snap.Mid(); ok {
		view.Mid = &mid
	}
	if snap.HasLastTrade {
		price := snap.LastTradePrice
		view.LastTradePrice = &price
	}
	return view
}
