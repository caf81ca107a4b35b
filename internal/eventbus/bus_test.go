package eventbus

import (
	"testing"

	"polymarket-index/pkg/types"
)

func tradeEvent(assetID string) types.MarketEvent {
	return types.MarketEvent{Kind: types.EventTrade, AssetID: assetID, Trade: &types.Trade{AssetID: assetID}}
}

func TestPublishFanOut(t *testing.T) {
	bus := New()
	_, ch1, unsub1 := bus.Subscribe(4)
	_, ch2, unsub2 := bus.Subscribe(4)
	defer unsub1()
	defer unsub2()

	bus.Publish(tradeEvent("t1"))

	for _, ch := range []<-chan types.MarketEvent{ch1, ch2} {
		select {
		case evt := <-ch:
			if evt.AssetID != "t1" {
				t.Errorf("AssetID = %s, want t1", evt.AssetID)
			}
		default:
			t.Error("expected event on subscriber channel")
		}
	}
}

func TestLaggedIncrementsOnFullBuffer(t *testing.T) {
	bus := New()
	id, _, unsub := bus.Subscribe(1)
	defer unsub()

	bus.Publish(tradeEvent("a"))
	bus.Publish(tradeEvent("b")) // buffer full, should drop and count

	lagged, ok := bus.Lagged(id)
	if !ok {
		t.Fatal("Lagged: subscriber not found")
	}
	if lagged != 1 {
		t.Errorf("Lagged = %d, want 1", lagged)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	id, ch, unsub := bus.Subscribe(1)
	unsub()

	if _, stillOpen := <-ch; stillOpen {
		t.Error("channel should be closed after Unsubscribe")
	}
	if _, ok := bus.Lagged(id); ok {
		t.Error("Lagged should report unknown after Unsubscribe")
	}
}

func TestSubscriberCount(t *testing.T) {
	bus := New()
	if bus.SubscriberCount() != 0 {
		t.Fatalf("SubscriberCount = %d, want 0", bus.SubscriberCount())
	}
	_, _, unsub := bus.Subscribe(1)
	if bus.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", bus.SubscriberCount())
	}
	unsub()
	if bus.SubscriberCount() != 0 {
		t.Fatalf("SubscriberCount = %d, want 0 after unsubscribe", bus.SubscriberCount())
	}
}
