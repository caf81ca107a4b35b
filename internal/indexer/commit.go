package indexer

import (
	"fmt"

	"polymarket-index/internal/store"
)

// commitBatch writes one atomic batch touching markets, markets_by_condition,
// market_index, token_index (per token), and a per-market condition_index
// snapshot, then folds every market into the shared aggregation state.
// It returns the number of markets committed.
func (ix *Indexer) commitBatch(batch []parsedMarket, agg *conditionAgg) (int, error) {
	err := ix.store.BatchWrite(func(b *store.Batch) error {
		for _, pm := range batch {
			if err := b.PutMarket(pm.id, pm.market); err != nil {
				return fmt.Errorf("put market %s: %w", pm.id, err)
			}
			if pm.market.ConditionID != "" {
				if err := b.PutMarketByCondition(pm.market.ConditionID, pm.market); err != nil {
					return fmt.Errorf("put market_by_condition %s: %w", pm.market.ConditionID, err)
				}
			}
			if pm.hasIdx {
				if err := b.PutMarketIndex(pm.id, pm.index); err != nil {
					return fmt.Errorf("put market_index %s: %w", pm.id, err)
				}
			}

			tokenIDs := make([]string, 0, len(pm.market.Tokens))
			for _, t := range pm.market.Tokens {
				if t.TokenID == "" {
					continue
				}
				tokenIDs = append(tokenIDs, t.TokenID)
				if err := b.PutTokenIndex(t.TokenID, pm.market.ConditionID); err != nil {
					return fmt.Errorf("put token_index %s: %w", t.TokenID, err)
				}
			}
			if pm.market.ConditionID != "" && len(tokenIDs) > 0 {
				if err := b.PutConditionIndex(pm.market.ConditionID, tokenIDs); err != nil {
					return fmt.Errorf("put condition_index %s: %w", pm.market.ConditionID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("indexer: commit batch: %w", err)
	}

	for _, pm := range batch {
		agg.add(pm.market)
	}
	return len(batch), nil
}
