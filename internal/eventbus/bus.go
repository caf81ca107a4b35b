// Package eventbus broadcasts normalized MarketEvents from every worker to
// every subscriber — the order book, activity tracker, and portfolio
// projector all subscribe independently, and an external caller can
// subscribe too (streaming.Service.SubscribeEvents). Unlike the teacher's
// websocket Hub, a slow subscriber is never disconnected: its drops are
// counted and exposed via Lagged so a caller can decide what to do about
// it.
package eventbus

import (
	"sync"
	"sync/atomic"

	"polymarket-index/pkg/types"
)

type subscriber struct {
	ch     chan types.MarketEvent
	lagged atomic.Uint64
}

// Bus is a multi-producer, multi-consumer broadcast of MarketEvents with a
// bounded per-subscriber buffer.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[uint64]*subscriber)}
}

// Subscribe registers a new subscriber with the given buffered channel
// capacity and returns its ID, its receive channel, and an Unsubscribe
// closure. The channel is closed when Unsubscribe is called.
func (b *Bus) Subscribe(bufSize int) (id uint64, events <-chan types.MarketEvent, unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id = b.nextID
	sub := &subscriber{ch: make(chan types.MarketEvent, bufSize)}
	b.subs[id] = sub

	return id, sub.ch, func() { b.unsubscribe(id) }
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.ch)
}

// Publish fans evt out to every current subscriber. A subscriber whose
// buffer is full does not block the publisher and does not get
// disconnected — the event is dropped and that subscriber's Lagged
// counter increments.
func (b *Bus) Publish(evt types.MarketEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		select {
		case sub.ch <- evt:
		default:
			sub.lagged.Add(1)
		}
	}
}

// Lagged returns how many events have been dropped for subscriber id since
// it registered, or false if id is unknown (already unsubscribed, or never
// existed).
func (b *Bus) Lagged(id uint64) (uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sub, ok := b.subs[id]
	if !ok {
		return 0, false
	}
	return sub.lagged.Load(), true
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
