package indexer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"polymarket-index/internal/progress"
	"polymarket-index/internal/store"
	"polymarket-index/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeChunkFile(t *testing.T, dir, name string, markets []map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data, err := json.Marshal(markets)
	if err != nil {
		t.Fatalf("marshal chunk: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
	return path
}

func marketJSON(id, condID, question string, tokenIDs ...string) map[string]any {
	tokens := make([]map[string]any, len(tokenIDs))
	for i, tid := range tokenIDs {
		tokens[i] = map[string]any{"token_id": tid, "outcome": "Yes", "price": 0.5}
	}
	m := map[string]any{
		"condition_id": condID,
		"question":     question,
		"tokens":       tokens,
	}
	if id != "" {
		m["id"] = id
	}
	return m
}

// Scenario A from the spec: 3 markets, condition_id in {c1,c1,c2}, 2 tokens
// each; expect conditions c1 (market_count=2) and c2 (market_count=1),
// tokens_by_condition[c1] has 4 tokens, and every token_index entry
// resolves to the right condition.
func TestIndexThenQuery(t *testing.T) {
	dir := t.TempDir()
	writeChunkFile(t, dir, "markets_chunk_0.json", []map[string]any{
		marketJSON("m1", "c1", "q1", "t1", "t2"),
		marketJSON("m2", "c1", "q2", "t3", "t4"),
		marketJSON("m3", "c2", "q3", "t5", "t6"),
	})

	s, err := store.Open(filepath.Join(dir, "db"), false)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer s.Close()

	progressCh := make(chan progress.Update, 256)
	ix := New(s, Config{SourceDir: dir}, testLogger(), progressCh)

	if err := ix.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	c1, found, err := s.GetCondition("c1")
	if err != nil || !found {
		t.Fatalf("GetCondition(c1): found=%v err=%v", found, err)
	}
	if c1.MarketCount != 2 {
		t.Errorf("c1.MarketCount = %d, want 2", c1.MarketCount)
	}

	c2, found, err := s.GetCondition("c2")
	if err != nil || !found {
		t.Fatalf("GetCondition(c2): found=%v err=%v", found, err)
	}
	if c2.MarketCount != 1 {
		t.Errorf("c2.MarketCount = %d, want 1", c2.MarketCount)
	}

	toks, found, err := s.GetTokensByCondition("c1")
	if err != nil || !found {
		t.Fatalf("GetTokensByCondition(c1): found=%v err=%v", found, err)
	}
	if len(toks) != 4 {
		t.Errorf("len(tokens_by_condition[c1]) = %d, want 4", len(toks))
	}

	for _, tid := range []string{"t1", "t2", "t3", "t4"} {
		cond, found, err := s.GetTokenIndex(tid)
		if err != nil || !found {
			t.Fatalf("GetTokenIndex(%s): found=%v err=%v", tid, found, err)
		}
		if cond != "c1" {
			t.Errorf("token_index[%s] = %s, want c1", tid, cond)
		}
	}
	for _, tid := range []string{"t5", "t6"} {
		cond, _, _ := s.GetTokenIndex(tid)
		if cond != "c2" {
			t.Errorf("token_index[%s] = %s, want c2", tid, cond)
		}
	}
}

func TestRejectsMissingConditionID(t *testing.T) {
	dir := t.TempDir()
	writeChunkFile(t, dir, "markets_chunk_0.json", []map[string]any{
		{"question": "no condition id here"},
	})

	s, err := store.Open(filepath.Join(dir, "db"), false)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer s.Close()

	ix := New(s, Config{SourceDir: dir}, testLogger(), nil)
	if err := ix.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	count := 0
	if err := s.ScanMarkets(func(id string, m types.Market) error {
		count++
		return nil
	}); err != nil {
		t.Fatalf("ScanMarkets: %v", err)
	}
	if count != 0 {
		t.Errorf("stored market count = %d, want 0 (missing condition_id must be skipped)", count)
	}
}

func TestSynthesizesMarketIDFromConditionID(t *testing.T) {
	dir := t.TempDir()
	writeChunkFile(t, dir, "markets_chunk_0.json", []map[string]any{
		marketJSON("", "c9", "q9", "t9"),
	})

	s, err := store.Open(filepath.Join(dir, "db"), false)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer s.Close()

	ix := New(s, Config{SourceDir: dir}, testLogger(), nil)
	if err := ix.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	m, found, err := s.GetMarket("market_c9")
	if err != nil || !found {
		t.Fatalf("GetMarket(market_c9): found=%v err=%v", found, err)
	}
	if m.ConditionID != "c9" {
		t.Errorf("ConditionID = %s, want c9", m.ConditionID)
	}
}

func TestReindexSkipsDuplicates(t *testing.T) {
	dir := t.TempDir()
	writeChunkFile(t, dir, "markets_chunk_0.json", []map[string]any{
		marketJSON("m1", "c1", "q1", "t1"),
	})

	s, err := store.Open(filepath.Join(dir, "db"), false)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer s.Close()

	cfg := Config{SourceDir: dir, SkipDuplicates: true}
	if err := New(s, cfg, testLogger(), nil).Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := New(s, cfg, testLogger(), nil).Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	c1, found, err := s.GetCondition("c1")
	if err != nil || !found {
		t.Fatalf("GetCondition(c1): found=%v err=%v", found, err)
	}
	if c1.MarketCount != 1 {
		t.Errorf("c1.MarketCount = %d after reindex, want 1 (duplicate skipped)", c1.MarketCount)
	}
}
