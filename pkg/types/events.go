package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind discriminates the tagged union carried by MarketEvent.
type EventKind string

const (
	EventBook           EventKind = "book"
	EventPriceChange    EventKind = "price_change"
	EventTrade          EventKind = "trade"
	EventTickSizeChange EventKind = "tick_size_change"
	EventLastTradePrice EventKind = "last_trade_price"
	EventMyOrder        EventKind = "order"
	EventMyTrade        EventKind = "my_trade"
)

// MarketEvent is the normalized event every Worker emits after translating
// a wire frame. Exactly one of the payload fields is populated, selected
// by Kind; this is Go's answer to a tagged union without a variant type.
type MarketEvent struct {
	Kind    EventKind `json:"kind"`
	AssetID string    `json:"asset_id"`

	Book           *BookSnapshot   `json:"book,omitempty"`
	PriceChange    *PriceChange    `json:"price_change,omitempty"`
	Trade          *Trade          `json:"trade,omitempty"`
	TickSizeChange *TickSizeChange `json:"tick_size_change,omitempty"`
	LastTradePrice *LastTradePrice `json:"last_trade_price,omitempty"`
	MyOrder        *OrderUpdate    `json:"my_order,omitempty"`
	MyTrade        *TradeExecution `json:"my_trade,omitempty"`
}

// TickSizeChange notifies that an asset's minimum price increment changed.
type TickSizeChange struct {
	AssetID  string          `json:"asset_id"`
	OldTick  decimal.Decimal `json:"old_tick_size"`
	NewTick  decimal.Decimal `json:"new_tick_size"`
	Timestamp time.Time      `json:"timestamp"`
}

// LastTradePrice is a lightweight last-trade ticker update, distinct from
// a full Trade (it carries no size/side).
type LastTradePrice struct {
	AssetID   string          `json:"asset_id"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}
