// Package orderbook maintains one local mirror per asset of the venue's
// order book: a snapshot apply, an incremental delta apply, a trade apply
// that only updates the last-trade tuple, and an atomic snapshot read.
// Prices and sizes are shopspring/decimal throughout — book mutation and
// comparison never touches float64.
package orderbook

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-index/pkg/types"
)

// Level is one price/size pair on a side of the book.
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Snapshot is an immutable read of one asset's book at a point in time.
// Bids are sorted descending by price, asks ascending; the caller owns
// the returned slices.
type Snapshot struct {
	AssetID        string
	Bids           []Level
	Asks           []Level
	LastTradePrice decimal.Decimal
	HasLastTrade   bool
	LastTradeAt    time.Time
	CrossedAnomaly uint64
	UpdatedAt      time.Time
}

// Mid returns the mid price and true, or false if the book is one-sided or
// crossed (best_bid >= best_ask), per the "crossed market" reporting rule.
func (s Snapshot) Mid() (decimal.Decimal, bool) {
	if len(s.Bids) == 0 || len(s.Asks) == 0 {
		return decimal.Zero, false
	}
	bid, ask := s.Bids[0].Price, s.Asks[0].Price
	if !bid.LessThan(ask) {
		return decimal.Zero, false
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), true
}

// SpreadPercent returns (ask-bid)/mid*100 rounded to two decimal places, or
// false under the same one-sided/crossed conditions as Mid.
func (s Snapshot) SpreadPercent() (decimal.Decimal, bool) {
	mid, ok := s.Mid()
	if !ok || mid.IsZero() {
		return decimal.Zero, false
	}
	bid, ask := s.Bids[0].Price, s.Asks[0].Price
	pct := ask.Sub(bid).Div(mid).Mul(decimal.NewFromInt(100))
	return pct.Round(2), true
}

// book is the mutable per-asset state guarded by Book's RWMutex.
type book struct {
	bids           []Level // descending by price
	asks           []Level // ascending by price
	lastTradePrice decimal.Decimal
	hasLastTrade   bool
	lastTradeAt    time.Time
	crossedCount   uint64
	updatedAt      time.Time
}

// Book holds one local order book mirror per asset ID, safe for concurrent
// use by a single applying writer (the worker/eventbus consumer) and many
// readers (Snapshot).
type Book struct {
	mu     sync.RWMutex
	assets map[string]*book
}

// New returns an empty Book.
func New() *Book {
	return &Book{assets: make(map[string]*book)}
}

func (bk *Book) entry(assetID string) *book {
	b, ok := bk.assets[assetID]
	if !ok {
		b = &book{}
		bk.assets[assetID] = b
	}
	return b
}

// ApplySnapshot replaces the entire book for an asset, dropping any
// zero-size level and re-sorting both sides.
func (bk *Book) ApplySnapshot(snap types.BookSnapshot) {
	bk.mu.Lock()
	defer bk.mu.Unlock()

	b := bk.entry(snap.AssetID)
	b.bids = levelsFromWire(snap.Bids)
	b.asks = levelsFromWire(snap.Asks)
	sortBids(b.bids)
	sortAsks(b.asks)
	b.updatedAt = time.Now()
	b.crossedCount += countCrossed(b)
}

func levelsFromWire(src []types.PriceLevel) []Level {
	out := make([]Level, 0, len(src))
	for _, l := range src {
		if l.Size.IsZero() {
			continue
		}
		out = append(out, Level{Price: l.Price, Size: l.Size})
	}
	return out
}

// ApplyDelta upserts or removes a single (side, price, size) level: size
// zero removes the level, a positive size upserts it, a negative size is
// rejected outright (the existing level, if any, is left untouched). After
// applying, the best-bid/best-ask invariant is checked; a violation
// increments CrossedAnomaly for that tick rather than rejecting the update.
func (bk *Book) ApplyDelta(change types.PriceChange) {
	bk.mu.Lock()
	defer bk.mu.Unlock()

	b := bk.entry(change.AssetID)
	switch change.Side {
	case types.Buy:
		b.bids = upsertLevel(b.bids, change.Price, change.Size, true)
	case types.Sell:
		b.asks = upsertLevel(b.asks, change.Price, change.Size, false)
	}
	b.updatedAt = time.Now()
	b.crossedCount += countCrossed(b)
}

// upsertLevel removes the level at price if size is zero, rejects the
// update outright if size is negative (leaving any existing level at that
// price untouched), otherwise replaces or inserts it in sorted order
// (descending for bids, ascending for asks).
func upsertLevel(levels []Level, price, size decimal.Decimal, descending bool) []Level {
	if size.IsNegative() {
		return levels
	}

	idx := -1
	for i, l := range levels {
		if l.Price.Equal(price) {
			idx = i
			break
		}
	}

	if size.IsZero() {
		if idx >= 0 {
			levels = append(levels[:idx], levels[idx+1:]...)
		}
		return levels
	}

	if idx >= 0 {
		levels[idx].Size = size
		return levels
	}

	levels = append(levels, Level{Price: price, Size: size})
	if descending {
		sortBids(levels)
	} else {
		sortAsks(levels)
	}
	return levels
}

func sortBids(levels []Level) {
	sort.Slice(levels, func(i, j int) bool { return levels[i].Price.GreaterThan(levels[j].Price) })
}

func sortAsks(levels []Level) {
	sort.Slice(levels, func(i, j int) bool { return levels[i].Price.LessThan(levels[j].Price) })
}

// countCrossed returns 1 if the book is currently crossed (best bid >= best
// ask), else 0.
func countCrossed(b *book) uint64 {
	if len(b.bids) == 0 || len(b.asks) == 0 {
		return 0
	}
	if b.bids[0].Price.GreaterThanOrEqual(b.asks[0].Price) {
		return 1
	}
	return 0
}

// ApplyTrade records the last trade price/timestamp without touching any
// level.
func (bk *Book) ApplyTrade(trade types.Trade) {
	bk.mu.Lock()
	defer bk.mu.Unlock()

	b := bk.entry(trade.AssetID)
	b.lastTradePrice = trade.Price
	b.hasLastTrade = true
	b.lastTradeAt = trade.Timestamp
	b.updatedAt = time.Now()
}

// Snapshot returns an atomic, independent copy of the current book state
// for one asset. Readers never observe a partially applied delta because
// the copy is taken under the same RWMutex guarding every Apply* method.
func (bk *Book) Snapshot(assetID string) (Snapshot, bool) {
	bk.mu.RLock()
	defer bk.mu.RUnlock()

	b, ok := bk.assets[assetID]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		AssetID:        assetID,
		Bids:           append([]Level(nil), b.bids...),
		Asks:           append([]Level(nil), b.asks...),
		LastTradePrice: b.lastTradePrice,
		HasLastTrade:   b.hasLastTrade,
		LastTradeAt:    b.lastTradeAt,
		CrossedAnomaly: b.crossedCount,
		UpdatedAt:      b.updatedAt,
	}, true
}

// Assets returns every asset ID with a book entry, in no particular order.
func (bk *Book) Assets() []string {
	bk.mu.RLock()
	defer bk.mu.RUnlock()

	ids := make([]string, 0, len(bk.assets))
	for id := range bk.assets {
		ids = append(ids, id)
	}
	return ids
}
