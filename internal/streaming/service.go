// Package streaming is the supervisor that partitions a token set across
// bounded-concurrency Worker connections, fans their normalized events into
// one eventbus.Bus, applies them to the shared order book and activity
// tracker, seeds a fresh token's book over HTTP via exchange.Gateway until
// the wire protocol's first snapshot arrives, and exposes the full
// external contract (start, add_tokens, subscribe_events, get_order_book,
// get_last_trade_price, get_streaming_tokens, get_stats,
// get_worker_statuses, stop). Grounded on
// the teacher's engine.Engine dispatch-by-map + RWMutex-guarded-maps +
// goroutine-per-unit-of-work + context-cancel-cascade style, generalized
// from one goroutine per market to one goroutine per worker-assigned token
// subset.
package streaming

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"polymarket-index/internal/activity"
	"polymarket-index/internal/eventbus"
	"polymarket-index/internal/exchange"
	"polymarket-index/internal/orderbook"
	"polymarket-index/internal/worker"
	"polymarket-index/pkg/types"
)

// Config is the streaming supervisor's configuration, matching the table
// in the core's configuration surface.
type Config struct {
	WSMarketURL              string
	WSUserURL                string
	TokensPerWorker          int
	EventBufferSize          int // buffer given to external SubscribeEvents callers
	WorkerEventBufferSize    int // buffer given to internal consumers (book/activity)
	AutoReconnect            bool
	ReconnectDelayMs         int
	MaxReconnectDelayMs      int
	MaxReconnectAttempts     int
	HealthCheckIntervalSecs  int
	StatsIntervalSecs        int
	WorkerConnectionDelayMs  int
	MaxConcurrentConnections int
}

func (c Config) withDefaults() Config {
	if c.TokensPerWorker <= 0 {
		c.TokensPerWorker = 25
	}
	if c.EventBufferSize <= 0 {
		c.EventBufferSize = 256
	}
	if c.WorkerEventBufferSize <= 0 {
		c.WorkerEventBufferSize = 256
	}
	if c.ReconnectDelayMs <= 0 {
		c.ReconnectDelayMs = 1000
	}
	if c.MaxReconnectDelayMs <= 0 {
		c.MaxReconnectDelayMs = 30000
	}
	if c.StatsIntervalSecs <= 0 {
		c.StatsIntervalSecs = 5
	}
	if c.MaxConcurrentConnections <= 0 {
		c.MaxConcurrentConnections = 4
	}
	return c
}

// Service is the running streaming supervisor.
type Service struct {
	cfg     Config
	dialer  worker.Dialer
	gateway exchange.Gateway
	logger  *slog.Logger

	bus      *eventbus.Bus
	book     *orderbook.Book
	activity *activity.Tracker
	metrics  *metrics

	mu      sync.RWMutex
	workers map[string]*worker.Worker
	tokens  map[string]bool

	startedAt time.Time
	totalSeen uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Service. reg may be nil to skip Prometheus registration
// (e.g. in tests). gateway may be nil to skip the HTTP book-seeding
// fallback entirely (e.g. in tests that only exercise the wire path).
func New(cfg Config, dialer worker.Dialer, gateway exchange.Gateway, reg prometheus.Registerer, logger *slog.Logger) *Service {
	return &Service{
		cfg:      cfg.withDefaults(),
		dialer:   dialer,
		gateway:  gateway,
		logger:   logger.With("component", "streaming"),
		bus:      eventbus.New(),
		book:     orderbook.New(),
		activity: activity.New(),
		metrics:  newMetrics(reg),
		workers:  make(map[string]*worker.Worker),
		tokens:   make(map[string]bool),
	}
}

// Start brings up the internal consumer (book/activity) and the stats
// loop. It does not connect any workers by itself — call AddTokens once
// the caller knows which tokens to stream.
func (s *Service) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.startedAt = time.Now()

	_, events, unsub := s.bus.Subscribe(s.cfg.WorkerEventBufferSize)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer unsub()
		s.consume(events)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.statsLoop()
	}()

	return nil
}

func (s *Service) consume(events <-chan types.MarketEvent) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			s.applyEvent(evt)
		}
	}
}

func (s *Service) applyEvent(evt types.MarketEvent) {
	switch evt.Kind {
	case types.EventBook:
		if evt.Book != nil {
			s.book.ApplySnapshot(*evt.Book)
		}
	case types.EventPriceChange:
		if evt.PriceChange != nil {
			s.book.ApplyDelta(*evt.PriceChange)
		}
	case types.EventTrade:
		if evt.Trade != nil {
			s.book.ApplyTrade(*evt.Trade)
		}
	}
	s.activity.Apply(evt)

	s.mu.Lock()
	s.totalSeen++
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.eventsTotal.Inc()
	}
}

func (s *Service) statsLoop() {
	ticker := time.NewTicker(time.Duration(s.cfg.StatsIntervalSecs) * time.Second)
	defer ticker.Stop()
	var reportedDrops uint64
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.metrics != nil {
				s.metrics.activeConnections.Set(float64(s.countConnected()))
				if drops := s.GetStats().LaggedReceivers; drops > reportedDrops {
					s.metrics.workerDropsTotal.Add(float64(drops - reportedDrops))
					reportedDrops = drops
				}
			}
		}
	}
}

func (s *Service) countConnected() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, w := range s.workers {
		if w.Status().IsConnected {
			n++
		}
	}
	return n
}

// gatedDialer bounds how many workers may be mid-dial concurrently: it
// wraps a shared semaphore and releases its slot as soon as its own first
// dial attempt completes, success or failure, so the next queued worker
// can start connecting.
type gatedDialer struct {
	inner worker.Dialer
	sem   chan struct{}
	once  sync.Once
}

func (g *gatedDialer) DialContext(ctx context.Context, url string) (worker.Conn, error) {
	conn, err := g.inner.DialContext(ctx, url)
	g.once.Do(func() { <-g.sem })
	return conn, err
}

// AddTokens partitions newTokens into groups of TokensPerWorker and spawns
// one Worker per group, each with a distinct worker ID. Worker start is
// bounded to MaxConcurrentConnections simultaneous dial attempts and
// staggered by WorkerConnectionDelayMs between group launches, matching
// the spec's partition-and-bound contract (scenario C: tokens_per_worker=25,
// max_concurrent_connections=2, 80 tokens -> ceil(80/25)=4 workers, at most
// 2 simultaneously Connecting).
func (s *Service) AddTokens(newTokens []string) error {
	if s.ctx == nil {
		return fmt.Errorf("streaming: Start must be called before AddTokens")
	}

	s.mu.Lock()
	fresh := make([]string, 0, len(newTokens))
	for _, t := range newTokens {
		if !s.tokens[t] {
			s.tokens[t] = true
			fresh = append(fresh, t)
		}
	}
	s.mu.Unlock()

	if s.gateway != nil {
		for _, t := range fresh {
			go s.seedBook(t)
		}
	}

	groups := partition(fresh, s.cfg.TokensPerWorker)
	sem := make(chan struct{}, s.cfg.MaxConcurrentConnections)

	for i, group := range groups {
		sem <- struct{}{}
		s.spawnWorker(group, sem)
		if s.cfg.WorkerConnectionDelayMs > 0 && i < len(groups)-1 {
			time.Sleep(time.Duration(s.cfg.WorkerConnectionDelayMs) * time.Millisecond)
		}
	}
	return nil
}

// seedBook fetches an HTTP snapshot for tokenID and applies it to the
// shared book, but only if the wire protocol hasn't already delivered its
// own snapshot for that asset — a late HTTP response must never clobber a
// fresher wire snapshot.
func (s *Service) seedBook(tokenID string) {
	if _, ok := s.book.Snapshot(tokenID); ok {
		return
	}
	resp, err := s.gateway.GetOrderBook(s.ctx, tokenID)
	if err != nil {
		s.logger.Warn("book seed fallback failed", "asset_id", tokenID, "error", err)
		return
	}
	if _, ok := s.book.Snapshot(tokenID); ok {
		return
	}
	s.book.ApplySnapshot(resp.ToSnapshot())
}

func partition(tokens []string, size int) [][]string {
	if len(tokens) == 0 {
		return nil
	}
	groups := make([][]string, 0, (len(tokens)+size-1)/size)
	for start := 0; start < len(tokens); start += size {
		end := min(start+size, len(tokens))
		groups = append(groups, tokens[start:end])
	}
	return groups
}

func (s *Service) spawnWorker(tokens []string, sem chan struct{}) {
	s.mu.Lock()
	id := fmt.Sprintf("worker-%d-%s", len(s.workers), uuid.NewString()[:8])
	wctx := s.ctx
	w := worker.New(worker.Config{
		ID:                   id,
		URL:                  s.cfg.WSMarketURL,
		ChannelType:          "market",
		AssignedTokens:       tokens,
		ReconnectDelay:       time.Duration(s.cfg.ReconnectDelayMs) * time.Millisecond,
		MaxReconnectDelay:    time.Duration(s.cfg.MaxReconnectDelayMs) * time.Millisecond,
		MaxReconnectAttempts: s.cfg.MaxReconnectAttempts,
	}, &gatedDialer{inner: s.dialer, sem: sem}, s.bus, s.logger)
	s.workers[id] = w
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := w.Run(wctx); err != nil && wctx.Err() == nil {
			s.logger.Warn("worker exited", "worker_id", id, "error", err)
		}
	}()
}

// SubscribeEvents registers an external subscriber on the shared bus.
func (s *Service) SubscribeEvents(bufSize int) (uint64, <-chan types.MarketEvent, func()) {
	if bufSize <= 0 {
		bufSize = s.cfg.EventBufferSize
	}
	return s.bus.Subscribe(bufSize)
}

// GetOrderBook returns the current book snapshot for assetID.
func (s *Service) GetOrderBook(assetID string) (orderbook.Snapshot, bool) {
	return s.book.Snapshot(assetID)
}

// GetLastTradePrice returns the last observed trade price for assetID.
func (s *Service) GetLastTradePrice(assetID string) (decimal.Decimal, bool) {
	snap, ok := s.book.Snapshot(assetID)
	if !ok || !snap.HasLastTrade {
		return decimal.Zero, false
	}
	return snap.LastTradePrice, true
}

// GetStreamingTokens returns every token ever added via AddTokens.
func (s *Service) GetStreamingTokens() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tokens := make([]string, 0, len(s.tokens))
	for t := range s.tokens {
		tokens = append(tokens, t)
	}
	return tokens
}

// GetStats returns the fleet-wide rollup.
func (s *Service) GetStats() types.StreamingStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lagged uint64
	connected := 0
	for _, w := range s.workers {
		st := w.Status()
		if st.IsConnected {
			connected++
		}
		lagged += st.DroppedFrames
	}

	uptime := time.Since(s.startedAt).Seconds()
	eps := 0.0
	if uptime > 0 {
		eps = float64(s.totalSeen) / uptime
	}

	return types.StreamingStats{
		ActiveConnections:   connected,
		TotalWorkers:        len(s.workers),
		TotalEventsReceived: s.totalSeen,
		EventsPerSecond:     eps,
		UptimeSeconds:       uptime,
		LaggedReceivers:     lagged,
		LastUpdated:         time.Now(),
	}
}

// Activity returns the running activity counters for a token, or false if
// no event has been observed for it yet.
func (s *Service) Activity(tokenID string) (types.ActivityCounters, bool) {
	return s.activity.Get(tokenID)
}

// GetWorkerStatuses returns a snapshot of every worker's status.
func (s *Service) GetWorkerStatuses() []types.WorkerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.WorkerStatus, 0, len(s.workers))
	for _, w := range s.workers {
		out = append(out, w.Status())
	}
	return out
}

// Stop cancels every worker and the internal consumer, then waits for
// them to finish.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
