package indexer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"polymarket-index/pkg/types"
)

// DiscoverChunkFiles lists the chunk files a run should process: every
// "markets_chunk_*.json" in dir plus a bare "markets.json" if present,
// sorted for deterministic file ordering.
func DiscoverChunkFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "markets_chunk_*.json"))
	if err != nil {
		return nil, fmt.Errorf("indexer: glob chunk files: %w", err)
	}
	bare := filepath.Join(dir, "markets.json")
	if _, err := os.Stat(bare); err == nil {
		matches = append(matches, bare)
	}
	sort.Strings(matches)
	return matches, nil
}

// rawMarketValues parses one chunk file's top-level JSON, which may be a
// bare array, an object with a "markets" array, or a single market object,
// and normalizes it to a flat list of raw market values.
func rawMarketValues(data []byte) ([]json.RawMessage, error) {
	trimmed := trimLeadingSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("indexer: empty chunk file")
	}

	switch trimmed[0] {
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(data, &arr); err != nil {
			return nil, fmt.Errorf("indexer: parse array: %w", err)
		}
		return arr, nil
	case '{':
		var wrapper struct {
			Markets []json.RawMessage `json:"markets"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("indexer: parse object: %w", err)
		}
		if wrapper.Markets != nil {
			return wrapper.Markets, nil
		}
		// A single bare market object.
		return []json.RawMessage{json.RawMessage(data)}, nil
	default:
		return nil, fmt.Errorf("indexer: unrecognized chunk file shape")
	}
}

func trimLeadingSpace(b []byte) []byte {
	i := 0
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\n', '\r':
			i++
			continue
		}
		break
	}
	return b[i:]
}

// parseMarket decodes one raw market value into a Market, resolving a
// missing market id from the condition id and rejecting a market with no
// condition id at all, per the indexer's id-synthesis and rejection rules.
func parseMarket(raw json.RawMessage) (types.Market, string, error) {
	var m types.Market
	if err := json.Unmarshal(raw, &m); err != nil {
		return types.Market{}, "", fmt.Errorf("indexer: parse market: %w", err)
	}
	if m.ConditionID == "" {
		return types.Market{}, "", errSkipNoCondition
	}
	if m.ID == "" {
		m.ID = "market_" + m.ConditionID
	}
	return m, m.ID, nil
}
