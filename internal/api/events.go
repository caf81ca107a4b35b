package api

import (
	"time"
)

// Event is the envelope for everything pushed to a connected WebSocket
// client: an initial full snapshot, then a stream of live market events as
// they're applied, plus a portfolio refresh whenever one touches the
// caller's own orders or fills.
type Event struct {
	Type      string      `json:"type"` // "snapshot", "portfolio", or a market event kind ("book", "price_change", "trade", "tick_size_change", "last_trade_price", "order", "my_trade")
	Timestamp time.Time   `json:"timestamp"`
	AssetID   string      `json:"asset_id,omitempty"`
	Data      interface{} `json:"data"`
}

func newSnapshotEvent(snapshot ReaderSnapshot) Event {
	return Event{Type: "snapshot", Timestamp: time.Now(), Data: snapshot}
}
