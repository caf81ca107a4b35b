// Package indexer implements the chunked JSON ingest pipeline: discovery
// of chunk files, parallel parsing, a best-effort duplicate guard,
// mutex-guarded condition/token aggregation, and batched atomic commits
// to internal/store, with typed progress events throughout.
package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"polymarket-index/internal/progress"
	"polymarket-index/internal/store"
	"polymarket-index/pkg/types"
)

var errSkipNoCondition = errors.New("indexer: market missing condition_id")

// Config controls one indexing run.
type Config struct {
	SourceDir      string   // directory to glob for chunk files, if ChunkFiles is empty
	ChunkFiles     []string // explicit file list; takes precedence over SourceDir
	SkipDuplicates bool     // best-effort existence check before enqueuing a write; the zero value is off (the config loader defaults it to true)
	BatchSize      int      // default 1000: rows per atomic commit
	ThreadCount    int      // 0 = runtime.NumCPU()
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 1000
	}
	if c.ThreadCount <= 0 {
		c.ThreadCount = runtime.NumCPU()
	}
	return c
}

// Indexer runs the ingest pipeline against one Store.
type Indexer struct {
	store    *store.Store
	cfg      Config
	logger   *slog.Logger
	progress chan<- progress.Update
}

// New creates an Indexer writing to s, reporting to progressCh. The Indexer
// never closes progressCh. Each update is a plain blocking send, so a full
// channel that nobody drains stalls Run.
func New(s *store.Store, cfg Config, logger *slog.Logger, progressCh chan<- progress.Update) *Indexer {
	return &Indexer{store: s, cfg: cfg.withDefaults(), logger: logger, progress: progressCh}
}

func (ix *Indexer) emit(u progress.Update) {
	if ix.progress != nil {
		ix.progress <- u
	}
}

// parsedMarket is the output of the parallel parse stage for one market
// value: either a fully parsed row, ready for commit, or a skip reason.
type parsedMarket struct {
	market types.Market
	id     string
	index  types.MarketIndex
	hasIdx bool
	skip   error
}

// conditionAgg is the mutex-guarded aggregation state shared across every
// chunk and every file in the run.
type conditionAgg struct {
	mu         sync.Mutex
	conditions map[string]types.Condition
	tokens     map[string][]types.Token
}

func newConditionAgg() *conditionAgg {
	return &conditionAgg{
		conditions: make(map[string]types.Condition),
		tokens:     make(map[string][]types.Token),
	}
}

func (a *conditionAgg) add(m types.Market) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if cond, ok := m.ExtractCondition(); ok {
		existing, found := a.conditions[cond.ID]
		if found {
			existing.MarketCount++
			a.conditions[cond.ID] = existing
		} else {
			a.conditions[cond.ID] = cond
		}
	}
	a.tokens[m.ConditionID] = append(a.tokens[m.ConditionID], m.ExtractTokens()...)
}

// Run executes the full pipeline: discovery, parallel parse, aggregation,
// batched commit per file, and finalization. It returns the first fatal
// error (a failed batch commit); malformed individual rows are logged and
// skipped, never fatal.
func (ix *Indexer) Run(ctx context.Context) error {
	ix.emit(progress.PhaseChange(progress.PhaseStarting, ""))

	files := ix.cfg.ChunkFiles
	if len(files) == 0 {
		discovered, err := DiscoverChunkFiles(ix.cfg.SourceDir)
		if err != nil {
			ix.emit(progress.PhaseChange(progress.PhaseFailed, err.Error()))
			return err
		}
		files = discovered
	}

	pool, err := ants.NewPool(ix.cfg.ThreadCount)
	if err != nil {
		ix.emit(progress.PhaseChange(progress.PhaseFailed, err.Error()))
		return fmt.Errorf("indexer: create worker pool: %w", err)
	}
	defer pool.Release()

	agg := newConditionAgg()

	ix.emit(progress.PhaseChange(progress.PhaseProcessingFiles, ""))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			return ix.processFile(gctx, pool, agg, i, len(files), path)
		})
	}
	if err := g.Wait(); err != nil {
		ix.emit(progress.PhaseChange(progress.PhaseFailed, err.Error()))
		return err
	}

	if err := ix.finalize(agg); err != nil {
		ix.emit(progress.PhaseChange(progress.PhaseFailed, err.Error()))
		return err
	}

	ix.emit(progress.PhaseChange(progress.PhaseCompleted, ""))
	ix.emit(progress.Complete())
	return nil
}

func (ix *Indexer) processFile(ctx context.Context, pool *ants.Pool, agg *conditionAgg, fileIndex, totalFiles int, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("indexer: read %s: %w", path, err)
	}

	raw, err := rawMarketValues(data)
	if err != nil {
		ix.logger.Warn("skipping unparseable chunk file", "file", path, "error", err)
		return nil
	}

	ix.emit(progress.FileStart(fileIndex, totalFiles, path, len(raw)))

	var duplicates int
	batch := make([]parsedMarket, 0, ix.cfg.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := ix.commitBatch(batch, agg)
		if err != nil {
			return err
		}
		ix.emit(progress.MarketProcessed(n))
		batch = batch[:0]
		return nil
	}

	const subChunkSize = 100
	for start := 0; start < len(raw); start += subChunkSize {
		end := min(start+subChunkSize, len(raw))
		parsed := ix.parseSubChunk(pool, raw[start:end])

		for _, pm := range parsed {
			if pm.skip != nil {
				if errors.Is(pm.skip, errDuplicateMarket) {
					duplicates++
				}
				continue
			}
			batch = append(batch, pm)
			if len(batch) >= ix.cfg.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	ix.emit(progress.FileComplete(duplicates))
	return nil
}

var errDuplicateMarket = errors.New("indexer: duplicate market")

// parseSubChunk parses ~100 raw market values in parallel across the
// worker pool, applying the duplicate guard before returning. CPU-bound
// JSON decoding never suspends; only the duplicate-existence check
// touches the store.
func (ix *Indexer) parseSubChunk(pool *ants.Pool, raw []json.RawMessage) []parsedMarket {
	results := make([]parsedMarket, len(raw))
	var wg sync.WaitGroup
	wg.Add(len(raw))

	for i, value := range raw {
		i, value := i, value
		task := func() {
			defer wg.Done()
			results[i] = ix.parseOne(value)
		}
		if err := pool.Submit(task); err != nil {
			// Pool saturated or closing: fall back to running inline so a
			// transient scheduling failure never drops a market silently.
			task()
		}
	}
	wg.Wait()
	return results
}

func (ix *Indexer) parseOne(raw json.RawMessage) parsedMarket {
	m, id, err := parseMarket(raw)
	if err != nil {
		ix.logger.Warn("skipping unparseable market", "error", err)
		return parsedMarket{skip: err}
	}

	if ix.cfg.SkipDuplicates {
		exists, err := ix.store.ExistsMarket(id)
		if err != nil {
			ix.logger.Warn("duplicate check failed, proceeding with write", "market_id", id, "error", err)
		} else if exists {
			return parsedMarket{skip: errDuplicateMarket}
		}
	}

	idx, hasIdx := m.ExtractIndex()
	return parsedMarket{market: m, id: id, index: idx, hasIdx: hasIdx}
}
