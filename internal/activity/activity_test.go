package activity

import (
	"testing"
	"time"

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

func TestApplyTradeUpdatesCounters(t *testing.T) {
	tr := New()
	tr.Apply(types.MarketEvent{
		Kind:    types.EventTrade,
		AssetID: "t1",
		Trade:   &types.Trade{AssetID: "t1", Price: dec("0.5"), Size: dec("10"), Side: types.Buy},
	})

	c, ok := tr.Get("t1")
	if !ok {
		t.Fatal("Get: not found")
	}
	if c.TradeCount != 1 {
		t.Errorf("TradeCount = %d, want 1", c.TradeCount)
	}
	if c.EventCount != 1 {
		t.Errorf("EventCount = %d, want 1", c.EventCount)
	}
	if c.TotalVolume != 5 {
		t.Errorf("TotalVolume = %v, want 5", c.TotalVolume)
	}
	if c.LastTradePrice != "0.5" {
		t.Errorf("LastTradePrice = %s, want 0.5", c.LastTradePrice)
	}
}

func TestApplyPriceChangeUpdatesBidAsk(t *testing.T) {
	tr := New()
	tr.Apply(types.MarketEvent{
		Kind:        types.EventPriceChange,
		AssetID:     "t1",
		PriceChange: &types.PriceChange{AssetID: "t1", Side: types.Buy, Price: dec("0.42"), Size: dec("5")},
	})
	tr.Apply(types.MarketEvent{
		Kind:        types.EventPriceChange,
		AssetID:     "t1",
		PriceChange: &types.PriceChange{AssetID: "t1", Side: types.Sell, Price: dec("0.44"), Size: dec("5")},
	})

	c, _ := tr.Get("t1")
	if c.LastBid != "0.42" {
		t.Errorf("LastBid = %s, want 0.42", c.LastBid)
	}
	if c.LastAsk != "0.44" {
		t.Errorf("LastAsk = %s, want 0.44", c.LastAsk)
	}
}

func TestActiveSinceFiltersOnLastUpdate(t *testing.T) {
	tr := New()
	tr.Apply(types.MarketEvent{Kind: types.EventTrade, AssetID: "t1", Trade: &types.Trade{AssetID: "t1", Price: dec("1"), Size: dec("1")}})

	if len(tr.ActiveSince(time.Now().Add(-time.Minute))) != 1 {
		t.Error("expected t1 to be active within the last minute")
	}
	if len(tr.ActiveSince(time.Now().Add(time.Minute))) != 0 {
		t.Error("expected no tokens active as of a minute in the future")
	}
}

func TestGetUnknownToken(t *testing.T) {
	tr := New()
	if _, ok := tr.Get("nope"); ok {
		t.Error("Get should report false for a token with no events")
	}
}
