package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the resting side of a price level or an order.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// PriceLevel is one resting price/size pair in an order book. Prices carry
// four decimal places and sizes two, per the venue's tick convention;
// decimal.Decimal is used throughout instead of float64 so that level
// comparisons and aggregation never suffer binary floating-point drift.
type PriceLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// BookSnapshot is a full order book replacement for one asset (token).
// Levels are kept in the order the source delivered them and may include
// zero sizes; orderbook.Book.ApplySnapshot drops zero-size levels and
// sorts each side.
type BookSnapshot struct {
	AssetID   string       `json:"asset_id"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Hash      string       `json:"hash,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// PriceChange is one delta to a single price level on one side of the
// book. Size of zero removes the level entirely.
type PriceChange struct {
	AssetID string          `json:"asset_id"`
	Side    Side            `json:"side"`
	Price   decimal.Decimal `json:"price"`
	Size    decimal.Decimal `json:"size"`
}

// Trade is a public fill notice. It updates last-trade-price/time on a
// book but never mutates price levels by itself — the venue always
// follows a trade with the price_change deltas that actually move the book.
type Trade struct {
	AssetID   string          `json:"asset_id"`
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	Side      Side            `json:"side"`
	Timestamp time.Time       `json:"timestamp"`
}
