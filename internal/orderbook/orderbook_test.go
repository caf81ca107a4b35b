package orderbook

import (
	"testing"

	"github.com/shopspring/decimal"

	"polymarket-index/pkg/types"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func level(price, size string) types.PriceLevel {
	return types.PriceLevel{Price: dec(price), Size: dec(size)}
}

// Scenario B from the spec: a snapshot, a delta that removes the best bid,
// then a trade that updates last-trade without touching levels.
func TestApplySnapshotDeltaTrade(t *testing.T) {
	bk := New()

	bk.ApplySnapshot(types.BookSnapshot{
		AssetID: "t1",
		Bids:    []types.PriceLevel{level("0.60", "100"), level("0.59", "50")},
		Asks:    []types.PriceLevel{level("0.61", "80")},
	})

	bk.ApplyDelta(types.PriceChange{AssetID: "t1", Side: types.Buy, Price: dec("0.60"), Size: decimal.Zero})
	bk.ApplyTrade(types.Trade{AssetID: "t1", Price: dec("0.605"), Size: dec("10"), Side: types.Buy})

	snap, ok := bk.Snapshot("t1")
	if !ok {
		t.Fatal("Snapshot: not found")
	}

	if len(snap.Bids) != 1 || !snap.Bids[0].Price.Equal(dec("0.59")) || !snap.Bids[0].Size.Equal(dec("50")) {
		t.Errorf("bids = %+v, want [(0.59,50)]", snap.Bids)
	}
	if len(snap.Asks) != 1 || !snap.Asks[0].Price.Equal(dec("0.61")) || !snap.Asks[0].Size.Equal(dec("80")) {
		t.Errorf("asks = %+v, want [(0.61,80)]", snap.Asks)
	}
	if !snap.HasLastTrade || !snap.LastTradePrice.Equal(dec("0.605")) {
		t.Errorf("last trade price = %v (has=%v), want 0.605", snap.LastTradePrice, snap.HasLastTrade)
	}
	if snap.CrossedAnomaly != 0 {
		t.Errorf("CrossedAnomaly = %d, want 0", snap.CrossedAnomaly)
	}
}

// Scenario E from the spec: a delta causing best_bid >= best_ask increments
// CrossedAnomaly, does not panic, and a later non-crossing delta leaves the
// book readable (the counter is cumulative, never reset retroactively).
func TestCrossedMarketAnomaly(t *testing.T) {
	bk := New()
	bk.ApplySnapshot(types.BookSnapshot{
		AssetID: "t1",
		Bids:    []types.PriceLevel{level("0.60", "100")},
		Asks:    []types.PriceLevel{level("0.61", "80")},
	})

	bk.ApplyDelta(types.PriceChange{AssetID: "t1", Side: types.Buy, Price: dec("0.62"), Size: dec("10")})

	snap, ok := bk.Snapshot("t1")
	if !ok {
		t.Fatal("Snapshot: not found")
	}
	if snap.CrossedAnomaly != 1 {
		t.Fatalf("CrossedAnomaly = %d, want 1", snap.CrossedAnomaly)
	}
	if len(snap.Bids) == 0 || !snap.Bids[0].Price.Equal(dec("0.62")) {
		t.Errorf("crossed book should still expose its raw bids, got %+v", snap.Bids)
	}

	bk.ApplyDelta(types.PriceChange{AssetID: "t1", Side: types.Buy, Price: dec("0.62"), Size: decimal.Zero})
	snap, _ = bk.Snapshot("t1")
	if snap.CrossedAnomaly != 1 {
		t.Errorf("CrossedAnomaly after clearing = %d, want still 1 (cumulative counter)", snap.CrossedAnomaly)
	}
	if mid, ok := snap.Mid(); !ok || !mid.Equal(dec("0.605")) {
		t.Errorf("Mid() = %v, ok=%v, want 0.605", mid, ok)
	}
}

func TestMidAndSpreadOnOneSidedBook(t *testing.T) {
	bk := New()
	bk.ApplySnapshot(types.BookSnapshot{
		AssetID: "t1",
		Bids:    []types.PriceLevel{level("0.60", "100")},
	})

	snap, _ := bk.Snapshot("t1")
	if _, ok := snap.Mid(); ok {
		t.Error("Mid() should report false on a one-sided book")
	}
	if _, ok := snap.SpreadPercent(); ok {
		t.Error("SpreadPercent() should report false on a one-sided book")
	}
}

func TestSpreadPercentRounding(t *testing.T) {
	bk := New()
	bk.ApplySnapshot(types.BookSnapshot{
		AssetID: "t1",
		Bids:    []types.PriceLevel{level("0.50", "100")},
		Asks:    []types.PriceLevel{level("0.51", "100")},
	})

	snap, _ := bk.Snapshot("t1")
	pct, ok := snap.SpreadPercent()
	if !ok {
		t.Fatal("SpreadPercent: not ok")
	}
	want := dec("1.98")
	if !pct.Equal(want) {
		t.Errorf("SpreadPercent() = %v, want %v", pct, want)
	}
}

func TestApplySnapshotDropsZeroSizeLevels(t *testing.T) {
	bk := New()
	bk.ApplySnapshot(types.BookSnapshot{
		AssetID: "t1",
		Bids:    []types.PriceLevel{level("0.60", "100"), level("0.59", "0")},
		Asks:    []types.PriceLevel{level("0.61", "80")},
	})

	snap, _ := bk.Snapshot("t1")
	if len(snap.Bids) != 1 {
		t.Errorf("bids = %+v, want exactly one level (zero-size dropped)", snap.Bids)
	}
}

// A negative size is rejected outright, per spec: it neither inserts a new
// level nor overwrites an existing one at that price.
func TestApplyDeltaRejectsNegativeSize(t *testing.T) {
	bk := New()
	bk.ApplySnapshot(types.BookSnapshot{
		AssetID: "t1",
		Bids:    []types.PriceLevel{level("0.60", "100")},
		Asks:    []types.PriceLevel{level("0.61", "80")},
	})

	bk.ApplyDelta(types.PriceChange{AssetID: "t1", Side: types.Buy, Price: dec("0.60"), Size: dec("-5")})
	bk.ApplyDelta(types.PriceChange{AssetID: "t1", Side: types.Buy, Price: dec("0.58"), Size: dec("-5")})

	snap, _ := bk.Snapshot("t1")
	if len(snap.Bids) != 1 || !snap.Bids[0].Price.Equal(dec("0.60")) || !snap.Bids[0].Size.Equal(dec("100")) {
		t.Errorf("bids = %+v, want unchanged [(0.60,100)] (negative size rejected)", snap.Bids)
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	bk := New()
	bk.ApplySnapshot(types.BookSnapshot{
		AssetID: "t1",
		Bids:    []types.PriceLevel{level("0.60", "100")},
		Asks:    []types.PriceLevel{level("0.61", "80")},
	})

	snap, _ := bk.Snapshot("t1")
	snap.Bids[0].Size = dec("999")

	snap2, _ := bk.Snapshot("t1")
	if !snap2.Bids[0].Size.Equal(dec("100")) {
		t.Errorf("mutating a returned snapshot leaked into the book: size = %v", snap2.Bids[0].Size)
	}
}

func TestSnapshotMissingAsset(t *testing.T) {
	bk := New()
	if _, ok := bk.Snapshot("nope"); ok {
		t.Error("Snapshot for unknown asset should report false")
	}
}
