// Package worker implements one streaming connection: dial, subscribe,
// read frames and normalize them onto the shared event bus, reconnect
// with exponential backoff on loss, and drain cleanly on cancellation.
// Adapted from the teacher's exchange.WSFeed, generalized from two
// hardcoded channel types (market/user) to one worker per assigned token
// subset, and with the connection/backoff/frame-dispatch state now
// observable through an explicit WorkerState rather than only log lines.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"polymarket-index/internal/eventbus"
	"polymarket-index/pkg/types"
)

// ErrConn is wrapped by every dial/read/write failure a Worker surfaces.
var ErrConn = errors.New("worker: connection error")

const (
	defaultReadTimeout  = 90 * time.Second
	defaultPingInterval = 50 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultDrainTimeout = 2 * time.Second
)

// Conn is the minimal surface Worker needs from a wire connection, so
// tests can substitute a fake instead of a real *websocket.Conn.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteJSON(v any) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// Dialer opens a Conn to a URL. The default implementation wraps
// gorilla/websocket; tests supply a fake.
type Dialer interface {
	DialContext(ctx context.Context, url string) (Conn, error)
}

// NewDialer returns the default Dialer, backed by gorilla/websocket.
func NewDialer() Dialer { return websocketDialer{} }

type websocketDialer struct{}

func (websocketDialer) DialContext(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrConn, url, err)
	}
	return conn, nil
}

// Config describes one worker's assignment and reconnect policy.
type Config struct {
	ID                   string
	URL                  string
	ChannelType          string // "market" or "user"
	AssignedTokens       []string
	Auth                 *types.WireAuth
	ReconnectDelay       time.Duration // base delay; default 1s
	MaxReconnectDelay    time.Duration // cap; default 30s
	MaxReconnectAttempts int           // 0 = unlimited
	ReadTimeout          time.Duration
	PingInterval         time.Duration
	DrainTimeout         time.Duration
}

func (c Config) withDefaults() Config {
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = time.Second
	}
	if c.MaxReconnectDelay <= 0 {
		c.MaxReconnectDelay = 30 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = defaultPingInterval
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = defaultDrainTimeout
	}
	return c
}

// Worker owns one wire connection and republishes every frame it reads as
// a normalized MarketEvent onto bus.
type Worker struct {
	cfg    Config
	dialer Dialer
	bus    *eventbus.Bus
	logger *slog.Logger

	mu             sync.RWMutex
	state          types.WorkerState
	isConnected    bool
	eventsHandled  uint64
	droppedFrames  uint64
	reconnectCount int
	lastActivity   time.Time
	lastError      string
}

// New creates a Worker publishing onto bus.
func New(cfg Config, dialer Dialer, bus *eventbus.Bus, logger *slog.Logger) *Worker {
	if dialer == nil {
		dialer = websocketDialer{}
	}
	return &Worker{
		cfg:    cfg.withDefaults(),
		dialer: dialer,
		bus:    bus,
		logger: logger.With("worker_id", cfg.ID),
		state:  types.WorkerInitializing,
	}
}

// Status returns a point-in-time read of this worker's state.
func (w *Worker) Status() types.WorkerStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return types.WorkerStatus{
		WorkerID:        w.cfg.ID,
		State:           w.state,
		IsConnected:     w.isConnected,
		EventsProcessed: w.eventsHandled,
		DroppedFrames:   w.droppedFrames,
		ReconnectCount:  w.reconnectCount,
		LastActivity:    w.lastActivity,
		AssignedTokens:  append([]string(nil), w.cfg.AssignedTokens...),
		LastError:       w.lastError,
	}
}

func (w *Worker) setState(s types.WorkerState) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *Worker) setError(err error) {
	w.mu.Lock()
	w.lastError = err.Error()
	w.mu.Unlock()
}

// Run drives the worker's full lifecycle until ctx is cancelled: connect,
// subscribe, read frames, reconnect with exponential backoff on loss, and
// drain cleanly on cancellation. It returns ctx.Err() on a clean stop, or
// the last connection error once MaxReconnectAttempts is exhausted.
func (w *Worker) Run(ctx context.Context) error {
	attempts := 0

	for {
		if ctx.Err() != nil {
			w.setState(types.WorkerDraining)
			w.drain()
			w.setState(types.WorkerTerminated)
			return ctx.Err()
		}

		w.setState(types.WorkerConnecting)
		connected, err := w.connectAndRead(ctx)
		w.mu.Lock()
		w.isConnected = false
		w.mu.Unlock()

		if ctx.Err() != nil {
			w.setState(types.WorkerDraining)
			w.drain()
			w.setState(types.WorkerTerminated)
			return ctx.Err()
		}

		if err != nil {
			w.setError(err)
			w.logger.Warn("worker connection lost", "error", err)
		}

		if connected {
			// Reached Connected at least once before failing: the backoff
			// sequence restarts from the base delay, per the reconnect
			// contract (a successful reconnect resets the attempt counter).
			attempts = 0
		}
		attempts++
		w.mu.Lock()
		w.reconnectCount = attempts
		w.mu.Unlock()
		if w.cfg.MaxReconnectAttempts > 0 && attempts > w.cfg.MaxReconnectAttempts {
			w.setState(types.WorkerFailed)
			return fmt.Errorf("%w: exceeded %d reconnect attempts", ErrConn, w.cfg.MaxReconnectAttempts)
		}

		delay := backoffDelay(w.cfg.ReconnectDelay, w.cfg.MaxReconnectDelay, attempts-1)
		w.setState(types.WorkerBackoff)
		select {
		case <-ctx.Done():
			w.setState(types.WorkerDraining)
			w.drain()
			w.setState(types.WorkerTerminated)
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// backoffDelay computes delay = min(max, base*2^attempts), matching the
// reconnect math every worker follows.
func backoffDelay(base, maxDelay time.Duration, attempts int) time.Duration {
	d := base
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= maxDelay {
			return maxDelay
		}
	}
	if d > maxDelay {
		return maxDelay
	}
	return d
}

// drain is the bounded window between Draining and Terminated. The read
// loop has already returned by the time this runs and Publish never
// blocks, so there is no outbound queue left to flush here — the window
// exists for symmetry with the state machine and as a hook for a future
// outbound command queue.
func (w *Worker) drain() {
	time.Sleep(0)
}

// connectAndRead dials, subscribes, and reads frames until the connection
// breaks or ctx is cancelled. The returned bool reports whether it ever
// reached Connected, so Run knows whether to reset the backoff sequence.
func (w *Worker) connectAndRead(ctx context.Context) (bool, error) {
	conn, err := w.dialer.DialContext(ctx, w.cfg.URL)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	if err := w.subscribe(conn); err != nil {
		return false, fmt.Errorf("%w: subscribe: %w", ErrConn, err)
	}

	w.mu.Lock()
	w.isConnected = true
	w.reconnectCount = 0
	w.mu.Unlock()
	w.setState(types.WorkerConnected)

	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go w.pingLoop(pingCtx, conn)

	for {
		if ctx.Err() != nil {
			return true, nil
		}
		if err := conn.SetReadDeadline(time.Now().Add(w.cfg.ReadTimeout)); err != nil {
			return true, fmt.Errorf("%w: set read deadline: %w", ErrConn, err)
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("%w: read: %w", ErrConn, err)
		}
		w.handleFrame(data)
	}
}

func (w *Worker) subscribe(conn Conn) error {
	msg := types.WireSubscribe{Action: "subscribe", Type: w.cfg.ChannelType}
	if w.cfg.ChannelType == "user" {
		msg.Markets = w.cfg.AssignedTokens
		msg.Auth = w.cfg.Auth
	} else {
		msg.AssetIDs = w.cfg.AssignedTokens
	}
	return conn.WriteJSON(msg)
}

func (w *Worker) handleFrame(data []byte) {
	events, err := parseFrame(data)
	if err != nil {
		w.logger.Warn("dropping unparseable frame", "error", err)
		w.mu.Lock()
		w.droppedFrames++
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	w.lastActivity = time.Now()
	w.eventsHandled += uint64(len(events))
	w.mu.Unlock()

	for _, evt := range events {
		w.bus.Publish(evt)
	}
}

func (w *Worker) pingLoop(ctx context.Context, conn Conn) {
	ticker := time.NewTicker(w.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteJSON(json.RawMessage(`{"type":"PING"}`)); err != nil {
				return
			}
		}
	}
}
