package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"polymarket-index/internal/eventbus"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Scenario D from the spec: reconnect_delay_ms=1000, max_reconnect_delay_ms=60000
// gives delays 1000, 2000, 4000, 8000, 16000 for attempts 0..4.
func TestBackoffDelaySequence(t *testing.T) {
	base := time.Second
	max := 60 * time.Second
	want := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
	}
	for attempts, w := range want {
		got := backoffDelay(base, max, attempts)
		if got != w {
			t.Errorf("backoffDelay(attempts=%d) = %v, want %v", attempts, got, w)
		}
	}
}

func TestBackoffDelayCapsAtMax(t *testing.T) {
	got := backoffDelay(time.Second, 10*time.Second, 10)
	if got != 10*time.Second {
		t.Errorf("backoffDelay capped = %v, want 10s", got)
	}
}

// alwaysFailDialer never succeeds — used to drive the worker into Failed
// after MaxReconnectAttempts.
type alwaysFailDialer struct {
	dials int
	mu    sync.Mutex
}

func (d *alwaysFailDialer) DialContext(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	d.dials++
	d.mu.Unlock()
	return nil, errors.New("dial refused")
}

func TestWorkerEntersFailedAfterMaxReconnectAttempts(t *testing.T) {
	dialer := &alwaysFailDialer{}
	bus := eventbus.New()
	w := New(Config{
		ID:                   "w1",
		URL:                  "wss://example.invalid",
		ChannelType:          "market",
		ReconnectDelay:       time.Millisecond,
		MaxReconnectDelay:    5 * time.Millisecond,
		MaxReconnectAttempts: 3,
	}, dialer, bus, testLogger())

	err := w.Run(context.Background())
	if err == nil {
		t.Fatal("Run: expected error after exhausting reconnect attempts")
	}
	if w.Status().State != "failed" {
		t.Errorf("State = %s, want failed", w.Status().State)
	}
}

// fakeConn lets a test script a sequence of frames, then errors on read to
// simulate a dropped connection.
type fakeConn struct {
	frames  [][]byte
	idx     int
	written []any
	mu      sync.Mutex
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.idx >= len(c.frames) {
		return 0, nil, errors.New("connection closed")
	}
	f := c.frames[c.idx]
	c.idx++
	return 1, f, nil
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, v)
	return nil
}

func (c *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (c *fakeConn) Close() error                    { return nil }

// scriptedDialer hands out conn exactly once, then fails every subsequent
// dial — enough to exercise one connect/read/disconnect cycle without
// hot-looping forever in a test.
type scriptedDialer struct {
	conn  *fakeConn
	dials int
	mu    sync.Mutex
}

func (d *scriptedDialer) DialContext(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.dials > 1 {
		return nil, errors.New("dial refused")
	}
	return d.conn, nil
}

func TestWorkerPublishesParsedFrames(t *testing.T) {
	conn := &fakeConn{frames: [][]byte{
		[]byte(`{"event_type":"trade","asset_id":"t1","side":"BUY","price":"0.5","size":"10","timestamp":"1700000000000"}`),
	}}
	dialer := &scriptedDialer{conn: conn}
	bus := eventbus.New()
	_, events, unsub := bus.Subscribe(4)
	defer unsub()

	w := New(Config{
		ID:                   "w1",
		URL:                  "wss://example.invalid",
		ChannelType:          "market",
		AssignedTokens:       []string{"t1"},
		ReconnectDelay:       time.Millisecond,
		MaxReconnectDelay:    time.Millisecond,
		MaxReconnectAttempts: 1,
	}, dialer, bus, testLogger())

	_ = w.Run(context.Background())

	select {
	case evt := <-events:
		if evt.AssetID != "t1" || evt.Trade == nil {
			t.Errorf("event = %+v, want trade on t1", evt)
		}
	default:
		t.Error("expected a published trade event")
	}

	if w.Status().EventsProcessed != 1 {
		t.Errorf("EventsProcessed = %d, want 1", w.Status().EventsProcessed)
	}
}

func TestWorkerDrainsOnCancellation(t *testing.T) {
	conn := &fakeConn{frames: [][]byte{}}
	dialer := &scriptedDialer{conn: conn}
	bus := eventbus.New()

	w := New(Config{
		ID:             "w1",
		URL:            "wss://example.invalid",
		ChannelType:    "market",
		ReconnectDelay: time.Millisecond,
	}, dialer, bus, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if w.Status().State != "terminated" {
		t.Errorf("State = %s, want terminated", w.Status().State)
	}
}
