// Package activity maintains per-token activity counters, fed from the
// same event stream the order book consumes (both subscribe to
// eventbus.Bus independently).
package activity

import (
	"sync"
	"time"

	"polymarket-index/pkg/types"
)

// Tracker holds one ActivityCounters row per token, safe for concurrent
// updates from the event consumer and reads from any caller.
type Tracker struct {
	mu       sync.RWMutex
	counters map[string]types.ActivityCounters
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{counters: make(map[string]types.ActivityCounters)}
}

// Apply folds one MarketEvent into the counters for its token. Every event
// bumps EventCount and LastUpdate; only book/price_change/trade events
// touch the kind-specific fields.
func (t *Tracker) Apply(evt types.MarketEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.counters[evt.AssetID]
	c.TokenID = evt.AssetID
	c.EventCount++
	c.LastUpdate = time.Now()

	switch evt.Kind {
	case types.EventBook:
		if evt.Book != nil {
			if len(evt.Book.Bids) > 0 {
				c.LastBid = evt.Book.Bids[0].Price.String()
			}
			if len(evt.Book.Asks) > 0 {
				c.LastAsk = evt.Book.Asks[0].Price.String()
			}
		}
	case types.EventPriceChange:
		if pc := evt.PriceChange; pc != nil {
			switch pc.Side {
			case types.Buy:
				c.LastBid = pc.Price.String()
			case types.Sell:
				c.LastAsk = pc.Price.String()
			}
		}
	case types.EventTrade:
		if tr := evt.Trade; tr != nil {
			c.TradeCount++
			c.TotalVolume += tr.Price.InexactFloat64() * tr.Size.InexactFloat64()
			c.LastTradePrice = tr.Price.String()
			c.LastTradeAt = tr.Timestamp
		}
	}

	t.counters[evt.AssetID] = c
}

// Get returns the current counters for a token, or false if no event for
// that token has been observed yet.
func (t *Tracker) Get(tokenID string) (types.ActivityCounters, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.counters[tokenID]
	return c, ok
}

// ActiveSince returns every token whose LastUpdate is at or after cutoff —
// the "active in last 5 min" view is ActiveSince(time.Now().Add(-5*time.Minute)).
func (t *Tracker) ActiveSince(cutoff time.Time) []types.ActivityCounters {
	t.mu.RLock()
	defer t.mu.RUnlock()

	active := make([]types.ActivityCounters, 0)
	for _, c := range t.counters {
		if !c.LastUpdate.Before(cutoff) {
			active = append(active, c)
		}
	}
	return active
}
