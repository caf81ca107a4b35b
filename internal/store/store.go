// Package store implements the typed column-family key-value store: one
// bbolt bucket per logical table, atomic multi-table batch writes, and
// ordered single-pass scans. It is the durable, single-process
// persistence layer the Indexer writes to and read-only handles query.
package store

import (
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"polymarket-index/internal/codec"
	"polymarket-index/pkg/types"
)

// ErrNotFound is a sentinel for a missing key. The Get<Table> accessors do
// not return it; they report an absent key as found=false with a nil error.
var ErrNotFound = errors.New("store: not found")

// allTables lists every column family created on Open, matching the
// eight-table layout of the persistent store.
var allTables = []codec.Prefix{
	codec.PrefixMarkets,
	codec.PrefixMarketsByCondition,
	codec.PrefixConditions,
	codec.PrefixTokens,
	codec.PrefixTokensByCondition,
	codec.PrefixMarketIndex,
	codec.PrefixTokenIndex,
	codec.PrefixConditionIndex,
}

// Store is a single-process, single-file key-value store partitioned into
// the eight column families the core defines. Open failures are fatal to
// the owning subsystem; per-operation errors surface as typed errors.
type Store struct {
	db       *bbolt.DB
	readOnly bool
}

// Open creates the database file and every column family if absent, and
// returns a handle. A read-only handle only ever observes committed
// batches; it never creates buckets.
func Open(path string, readOnly bool) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{ReadOnly: readOnly})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	if !readOnly {
		err = db.Update(func(tx *bbolt.Tx) error {
			for _, p := range allTables {
				if _, err := tx.CreateBucketIfNotExists([]byte(p.TableName())); err != nil {
					return fmt.Errorf("create bucket %s: %w", p.TableName(), err)
				}
			}
			return nil
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: init buckets: %w", err)
		}
	}

	return &Store{db: db, readOnly: readOnly}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) put(p codec.Prefix, id string, value any) error {
	data, err := codec.Encode(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(p.TableName()))
		if b == nil {
			return fmt.Errorf("store: missing bucket %s", p.TableName())
		}
		return b.Put(codec.Key(p, id), data)
	})
}

func (s *Store) get(p codec.Prefix, id string, out any) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(p.TableName()))
		if b == nil {
			return fmt.Errorf("store: missing bucket %s", p.TableName())
		}
		data := b.Get(codec.Key(p, id))
		if data == nil {
			return nil
		}
		found = true
		return codec.Decode(data, out)
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (s *Store) exists(p codec.Prefix, id string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(p.TableName()))
		if b == nil {
			return fmt.Errorf("store: missing bucket %s", p.TableName())
		}
		found = b.Get(codec.Key(p, id)) != nil
		return nil
	})
	return found, err
}

func (s *Store) delete(p codec.Prefix, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(p.TableName()))
		if b == nil {
			return fmt.Errorf("store: missing bucket %s", p.TableName())
		}
		return b.Delete(codec.Key(p, id))
	})
}

// PutMarket, GetMarket, ExistsMarket, DeleteMarket — the `markets` table.
func (s *Store) PutMarket(id string, m types.Market) error { return s.put(codec.PrefixMarkets, id, m) }
func (s *Store) GetMarket(id string) (types.Market, bool, error) {
	var m types.Market
	found, err := s.get(codec.PrefixMarkets, id, &m)
	return m, found, err
}
func (s *Store) ExistsMarket(id string) (bool, error) { return s.exists(codec.PrefixMarkets, id) }
func (s *Store) DeleteMarket(id string) error          { return s.delete(codec.PrefixMarkets, id) }

// PutMarketByCondition / GetMarketByCondition — the `markets_by_condition` table.
func (s *Store) PutMarketByCondition(condID string, m types.Market) error {
	return s.put(codec.PrefixMarketsByCondition, condID, m)
}
func (s *Store) GetMarketByCondition(condID string) (types.Market, bool, error) {
	var m types.Market
	found, err := s.get(codec.PrefixMarketsByCondition, condID, &m)
	return m, found, err
}

// PutCondition / GetCondition — the `conditions` table.
func (s *Store) PutCondition(id string, c types.Condition) error {
	return s.put(codec.PrefixConditions, id, c)
}
func (s *Store) GetCondition(id string) (types.Condition, bool, error) {
	var c types.Condition
	found, err := s.get(codec.PrefixConditions, id, &c)
	return c, found, err
}

// PutToken / GetToken — the `tokens` table.
func (s *Store) PutToken(id string, t types.Token) error { return s.put(codec.PrefixTokens, id, t) }
func (s *Store) GetToken(id string) (types.Token, bool, error) {
	var t types.Token
	found, err := s.get(codec.PrefixTokens, id, &t)
	return t, found, err
}

// PutTokensByCondition / GetTokensByCondition — the `tokens_by_condition` table.
func (s *Store) PutTokensByCondition(condID string, tokens []types.Token) error {
	return s.put(codec.PrefixTokensByCondition, condID, tokens)
}
func (s *Store) GetTokensByCondition(condID string) ([]types.Token, bool, error) {
	var tokens []types.Token
	found, err := s.get(codec.PrefixTokensByCondition, condID, &tokens)
	return tokens, found, err
}

// PutMarketIndex / GetMarketIndex — the `market_index` table.
func (s *Store) PutMarketIndex(marketID string, idx types.MarketIndex) error {
	return s.put(codec.PrefixMarketIndex, marketID, idx)
}
func (s *Store) GetMarketIndex(marketID string) (types.MarketIndex, bool, error) {
	var idx types.MarketIndex
	found, err := s.get(codec.PrefixMarketIndex, marketID, &idx)
	return idx, found, err
}

// PutTokenIndex / GetTokenIndex — the `token_index` table (token_id -> condition_id).
func (s *Store) PutTokenIndex(tokenID, conditionID string) error {
	return s.put(codec.PrefixTokenIndex, tokenID, conditionID)
}
func (s *Store) GetTokenIndex(tokenID string) (string, bool, error) {
	var condID string
	found, err := s.get(codec.PrefixTokenIndex, tokenID, &condID)
	return condID, found, err
}

// PutConditionIndex / GetConditionIndex — the `condition_index` table
// (condition_id -> [token_id]).
func (s *Store) PutConditionIndex(conditionID string, tokenIDs []string) error {
	return s.put(codec.PrefixConditionIndex, conditionID, tokenIDs)
}
func (s *Store) GetConditionIndex(conditionID string) ([]string, bool, error) {
	var ids []string
	found, err := s.get(codec.PrefixConditionIndex, conditionID, &ids)
	return ids, found, err
}

// ScanMarkets returns every (market_id, Market) pair in key order. The
// callback stops iteration early by returning a non-nil error.
func (s *Store) ScanMarkets(fn func(id string, m types.Market) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(codec.PrefixMarkets.TableName()))
		return b.ForEach(func(k, v []byte) error {
			id, err := codec.SplitKey(codec.PrefixMarkets, k)
			if err != nil {
				return err
			}
			var m types.Market
			if err := codec.Decode(v, &m); err != nil {
				return err
			}
			return fn(id, m)
		})
	})
}

// ScanTokens returns every (token_id, Token) pair in key order.
func (s *Store) ScanTokens(fn func(id string, t types.Token) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(codec.PrefixTokens.TableName()))
		return b.ForEach(func(k, v []byte) error {
			id, err := codec.SplitKey(codec.PrefixTokens, k)
			if err != nil {
				return err
			}
			var t types.Token
			if err := codec.Decode(v, &t); err != nil {
				return err
			}
			return fn(id, t)
		})
	})
}

// ScanConditions returns every (condition_id, Condition) pair in key order.
func (s *Store) ScanConditions(fn func(id string, c types.Condition) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(codec.PrefixConditions.TableName()))
		return b.ForEach(func(k, v []byte) error {
			id, err := codec.SplitKey(codec.PrefixConditions, k)
			if err != nil {
				return err
			}
			var c types.Condition
			if err := codec.Decode(v, &c); err != nil {
				return err
			}
			return fn(id, c)
		})
	})
}
