package store

import (
	"fmt"

	"go.etcd.io/bbolt"

	"polymarket-index/internal/codec"
	"polymarket-index/pkg/types"
)

// Batch accumulates typed puts across multiple column families for one
// atomic commit. It is the only path the Indexer uses to write more than
// one table's worth of rows together.
type Batch struct {
	tx *bbolt.Tx
}

func (b *Batch) put(p codec.Prefix, id string, value any) error {
	data, err := codec.Encode(value)
	if err != nil {
		return err
	}
	bucket := b.tx.Bucket([]byte(p.TableName()))
	if bucket == nil {
		return fmt.Errorf("store: missing bucket %s", p.TableName())
	}
	return bucket.Put(codec.Key(p, id), data)
}

func (b *Batch) delete(p codec.Prefix, id string) error {
	bucket := b.tx.Bucket([]byte(p.TableName()))
	if bucket == nil {
		return fmt.Errorf("store: missing bucket %s", p.TableName())
	}
	return bucket.Delete(codec.Key(p, id))
}

// PutMarket stages a markets[id] = m write.
func (b *Batch) PutMarket(id string, m types.Market) error { return b.put(codec.PrefixMarkets, id, m) }

// PutMarketByCondition stages a markets_by_condition[condID] = m write.
func (b *Batch) PutMarketByCondition(condID string, m types.Market) error {
	return b.put(codec.PrefixMarketsByCondition, condID, m)
}

// PutCondition stages a conditions[id] = c write.
func (b *Batch) PutCondition(id string, c types.Condition) error {
	return b.put(codec.PrefixConditions, id, c)
}

// PutToken stages a tokens[id] = t write.
func (b *Batch) PutToken(id string, t types.Token) error { return b.put(codec.PrefixTokens, id, t) }

// PutTokensByCondition stages a tokens_by_condition[condID] = [tokens] write.
func (b *Batch) PutTokensByCondition(condID string, tokens []types.Token) error {
	return b.put(codec.PrefixTokensByCondition, condID, tokens)
}

// PutMarketIndex stages a market_index[marketID] = idx write.
func (b *Batch) PutMarketIndex(marketID string, idx types.MarketIndex) error {
	return b.put(codec.PrefixMarketIndex, marketID, idx)
}

// PutTokenIndex stages a token_index[tokenID] = conditionID write.
func (b *Batch) PutTokenIndex(tokenID string, conditionID string) error {
	return b.put(codec.PrefixTokenIndex, tokenID, conditionID)
}

// PutConditionIndex stages a condition_index[conditionID] = [tokenIDs] write.
func (b *Batch) PutConditionIndex(conditionID string, tokenIDs []string) error {
	return b.put(codec.PrefixConditionIndex, conditionID, tokenIDs)
}

// DeleteMarket stages a markets[id] delete.
func (b *Batch) DeleteMarket(id string) error { return b.delete(codec.PrefixMarkets, id) }

// BatchWrite accepts a closure that accumulates typed puts and deletes
// across multiple column families; the batch is committed atomically in
// a single bbolt transaction, or not at all if fn returns an error.
func (s *Store) BatchWrite(fn func(b *Batch) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return fn(&Batch{tx: tx})
	})
}
