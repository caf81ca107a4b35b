package indexer

import (
	"fmt"

	"polymarket-index/internal/progress"
	"polymarket-index/internal/store"
	"polymarket-index/pkg/types"
)

const finalizeBatchRows = 1000

// finalize writes the aggregated conditions and per-condition token lists
// once every file has been processed. market_count on each Condition is
// read straight from the aggregation map — never incremented per commit —
// so the result is deterministic regardless of how file processing
// interleaved (scenario F: disjoint chunk sets referencing the same
// condition must sum to the true total, not a per-thread subtotal).
//
// condition_index is rewritten here too, from the same aggregated token
// lists, so every condition's index entry holds its complete token set
// rather than whatever single market's tokens happened to be in the last
// batch that touched it.
func (ix *Indexer) finalize(agg *conditionAgg) error {
	agg.mu.Lock()
	conditions := make([]types.Condition, 0, len(agg.conditions))
	for _, c := range agg.conditions {
		conditions = append(conditions, c)
	}
	tokensByCondition := make(map[string][]types.Token, len(agg.tokens))
	for condID, toks := range agg.tokens {
		tokensByCondition[condID] = toks
	}
	agg.mu.Unlock()

	ix.emit(progress.PhaseChange(progress.PhaseIndexingConditions, ""))
	if err := ix.writeConditions(conditions); err != nil {
		return err
	}
	ix.emit(progress.ConditionCount(len(conditions)))

	ix.emit(progress.PhaseChange(progress.PhaseIndexingTokens, ""))
	tokenCount, err := ix.writeTokens(tokensByCondition)
	if err != nil {
		return err
	}
	ix.emit(progress.TokenCount(tokenCount))

	ix.emit(progress.PhaseChange(progress.PhaseFinalizing, ""))
	return nil
}

func (ix *Indexer) writeConditions(conditions []types.Condition) error {
	for start := 0; start < len(conditions); start += finalizeBatchRows {
		end := min(start+finalizeBatchRows, len(conditions))
		chunk := conditions[start:end]
		err := ix.store.BatchWrite(func(b *store.Batch) error {
			for _, c := range chunk {
				if err := b.PutCondition(c.ID, c); err != nil {
					return fmt.Errorf("put condition %s: %w", c.ID, err)
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("indexer: finalize conditions: %w", err)
		}
	}
	return nil
}

func (ix *Indexer) writeTokens(tokensByCondition map[string][]types.Token) (int, error) {
	condIDs := make([]string, 0, len(tokensByCondition))
	for condID := range tokensByCondition {
		condIDs = append(condIDs, condID)
	}

	total := 0
	for start := 0; start < len(condIDs); start += finalizeBatchRows {
		end := min(start+finalizeBatchRows, len(condIDs))
		chunk := condIDs[start:end]
		err := ix.store.BatchWrite(func(b *store.Batch) error {
			for _, condID := range chunk {
				toks := tokensByCondition[condID]
				if err := b.PutTokensByCondition(condID, toks); err != nil {
					return fmt.Errorf("put tokens_by_condition %s: %w", condID, err)
				}
				ids := make([]string, len(toks))
				for i, t := range toks {
					ids[i] = t.ID
					if err := b.PutToken(t.ID, t); err != nil {
						return fmt.Errorf("put token %s: %w", t.ID, err)
					}
				}
				if err := b.PutConditionIndex(condID, ids); err != nil {
					return fmt.Errorf("put condition_index %s: %w", condID, err)
				}
				total += len(toks)
			}
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("indexer: finalize tokens: %w", err)
		}
	}
	return total, nil
}
