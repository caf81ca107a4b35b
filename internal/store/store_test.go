package store

import (
	"path/filepath"
	"testing"

	"polymarket-index/pkg/types"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetMarket(t *testing.T) {
	s := openTest(t)

	m := types.Market{ID: "m1", ConditionID: "c1", Question: "Will it rain?"}
	if err := s.PutMarket(m.ID, m); err != nil {
		t.Fatalf("PutMarket: %v", err)
	}

	got, found, err := s.GetMarket("m1")
	if err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	if !found {
		t.Fatal("expected market to be found")
	}
	if got.Question != m.Question {
		t.Errorf("Question = %q, want %q", got.Question, m.Question)
	}
}

func TestGetMarketMissing(t *testing.T) {
	s := openTest(t)

	_, found, err := s.GetMarket("nonexistent")
	if err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	if found {
		t.Error("expected not found")
	}
}

func TestExistsMarket(t *testing.T) {
	s := openTest(t)

	ok, err := s.ExistsMarket("m1")
	if err != nil {
		t.Fatalf("ExistsMarket: %v", err)
	}
	if ok {
		t.Fatal("expected market to not exist yet")
	}

	_ = s.PutMarket("m1", types.Market{ID: "m1"})

	ok, err = s.ExistsMarket("m1")
	if err != nil {
		t.Fatalf("ExistsMarket: %v", err)
	}
	if !ok {
		t.Error("expected market to exist after put")
	}
}

func TestBatchWriteAtomicAcrossTables(t *testing.T) {
	s := openTest(t)

	m := types.Market{ID: "m1", ConditionID: "c1", Question: "q"}
	err := s.BatchWrite(func(b *Batch) error {
		if err := b.PutMarket(m.ID, m); err != nil {
			return err
		}
		if err := b.PutMarketByCondition(m.ConditionID, m); err != nil {
			return err
		}
		return b.PutTokenIndex("t1", m.ConditionID)
	})
	if err != nil {
		t.Fatalf("BatchWrite: %v", err)
	}

	if _, found, _ := s.GetMarket("m1"); !found {
		t.Error("markets table missing row after batch write")
	}
	if _, found, _ := s.GetMarketByCondition("c1"); !found {
		t.Error("markets_by_condition table missing row after batch write")
	}
	condID, found, err := s.GetTokenIndex("t1")
	if err != nil || !found {
		t.Fatalf("GetTokenIndex: found=%v err=%v", found, err)
	}
	if condID != "c1" {
		t.Errorf("condID = %q, want c1", condID)
	}
}

func TestBatchWriteRollsBackOnError(t *testing.T) {
	s := openTest(t)

	sentinel := errorFor("forced failure")
	err := s.BatchWrite(func(b *Batch) error {
		if err := b.PutMarket("m1", types.Market{ID: "m1"}); err != nil {
			return err
		}
		return sentinel
	})
	if err == nil {
		t.Fatal("expected BatchWrite to return the forced error")
	}

	if _, found, _ := s.GetMarket("m1"); found {
		t.Error("expected no partial write to survive a failed batch")
	}
}

func TestScanConditions(t *testing.T) {
	s := openTest(t)

	_ = s.PutCondition("c1", types.Condition{ID: "c1", MarketCount: 2})
	_ = s.PutCondition("c2", types.Condition{ID: "c2", MarketCount: 1})

	seen := map[string]int{}
	err := s.ScanConditions(func(id string, c types.Condition) error {
		seen[id] = c.MarketCount
		return nil
	})
	if err != nil {
		t.Fatalf("ScanConditions: %v", err)
	}
	if seen["c1"] != 2 || seen["c2"] != 1 {
		t.Errorf("seen = %+v, want c1:2 c2:1", seen)
	}
}

type errorFor string

func (e errorFor) Error() string { return string(e) }
