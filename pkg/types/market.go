// Package types defines the shared vocabulary for indexing and streaming
// Polymarket market data — markets, conditions, tokens, order book
// snapshots, wire events, and portfolio entities. It has no dependencies
// on internal packages so it can be imported by every layer.
package types

import "time"

// Token is one outcome of a Condition — e.g. "Yes" or "No", or one
// candidate in a multi-outcome election market. CurrentPrice is the last
// price observed for this token, independent of which Market surfaced it.
type Token struct {
	ID          string  `json:"id"`
	Outcome     string  `json:"outcome"`
	ConditionID string  `json:"condition_id"`
	MarketID    string  `json:"market_id,omitempty"`
	CurrentPrice float64 `json:"current_price"`
	Volume       float64 `json:"volume,omitempty"`
	Volume24h    float64 `json:"volume_24hr,omitempty"`
	Supply       float64 `json:"supply,omitempty"`
	MarketCap    float64 `json:"market_cap,omitempty"`
	Winner       *bool   `json:"winner,omitempty"`
	LastUpdated  string  `json:"last_updated,omitempty"`
}

// Condition is the on-chain CTF condition a Market resolves against.
// MarketCount is the number of distinct Markets seen during indexing that
// reference this condition — it is aggregated, never copied from a single
// Market's view, since a condition can be listed by more than one market.
type Condition struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Outcomes    []string `json:"outcomes,omitempty"`
	Creator     string   `json:"creator,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	MarketCount int      `json:"market_count"`
}

// MarketToken is a Token as it appears embedded inside a Market payload,
// before extraction into the standalone Token table.
type MarketToken struct {
	TokenID   string  `json:"token_id"`
	Outcome   string  `json:"outcome"`
	Price     float64 `json:"price"`
	Winner    *bool   `json:"winner,omitempty"`
	Volume    float64 `json:"volume,omitempty"`
	Volume24h float64 `json:"volume_24hr,omitempty"`
	Supply    float64 `json:"supply,omitempty"`
	MarketCap float64 `json:"market_cap,omitempty"`
}

// Market is one listing on the venue. Markets are N-outcome: a binary
// yes/no market has two Tokens, a multi-candidate election market has one
// Token per candidate. ConditionID, when present, must match the ID of the
// Condition this market's tokens are extracted into.
type Market struct {
	ID               string        `json:"id,omitempty"`
	ConditionID      string        `json:"condition_id,omitempty"`
	Question         string        `json:"question"`
	Description      string        `json:"description,omitempty"`
	Category         string        `json:"category,omitempty"`
	Tags             []string      `json:"tags,omitempty"`
	Tokens           []MarketToken `json:"tokens"`
	Active           bool          `json:"active"`
	Closed           bool          `json:"closed"`
	Archived         bool          `json:"archived,omitempty"`
	AcceptingOrders  bool          `json:"accepting_orders"`
	MinimumOrderSize float64       `json:"minimum_order_size,omitempty"`
	MinimumTickSize  float64       `json:"minimum_tick_size,omitempty"`
	EndDateISO       string        `json:"end_date_iso,omitempty"`
	CreatedAt        string        `json:"created_at,omitempty"`
	UpdatedAt        string        `json:"updated_at,omitempty"`
	Volume           float64       `json:"volume,omitempty"`
	Volume24h        float64       `json:"volume_24hr,omitempty"`
	Liquidity        float64       `json:"liquidity,omitempty"`
	Outcomes         []string      `json:"outcomes,omitempty"`
	OutcomePrices    []float64     `json:"outcome_prices,omitempty"`
	MarketSlug       string        `json:"market_slug,omitempty"`
	Creator          string        `json:"creator,omitempty"`
	FeeRateBps       float64       `json:"fee_rate,omitempty"`
}

// ExtractCondition derives this market's Condition row. MarketCount is
// always 1 here; the indexer aggregates it across every market that
// references the same condition ID before committing.
func (m Market) ExtractCondition() (Condition, bool) {
	if m.ConditionID == "" {
		return Condition{}, false
	}
	return Condition{
		ID:          m.ConditionID,
		Question:    m.Question,
		Description: m.Description,
		Category:    m.Category,
		Tags:        m.Tags,
		Outcomes:    m.Outcomes,
		Creator:     m.Creator,
		CreatedAt:   m.CreatedAt,
		MarketCount: 1,
	}, true
}

// ExtractTokens derives standalone Token rows from this market's embedded
// MarketTokens, so each token can be looked up independently of the
// market(s) that listed it.
func (m Market) ExtractTokens() []Token {
	tokens := make([]Token, 0, len(m.Tokens))
	for _, t := range m.Tokens {
		tokens = append(tokens, Token{
			ID:           t.TokenID,
			Outcome:      t.Outcome,
			ConditionID:  m.ConditionID,
			MarketID:     m.ID,
			CurrentPrice: t.Price,
			Volume:       t.Volume,
			Volume24h:    t.Volume24h,
			Supply:       t.Supply,
			MarketCap:    t.MarketCap,
			Winner:       t.Winner,
			LastUpdated:  m.UpdatedAt,
		})
	}
	return tokens
}

// MarketIndex is the lightweight search/filter row derived from a Market,
// with text fields pre-lowercased for case-insensitive lookups.
type MarketIndex struct {
	MarketID      string   `json:"market_id"`
	ConditionID   string   `json:"condition_id"`
	QuestionLower string   `json:"question_lower"`
	CategoryLower string   `json:"category_lower,omitempty"`
	TagsLower     []string `json:"tags_lower,omitempty"`
	Active        bool     `json:"active"`
	Closed        bool     `json:"closed"`
	Volume        float64  `json:"volume,omitempty"`
	Volume24h     float64  `json:"volume_24hr,omitempty"`
	CreatedAt     string   `json:"created_at,omitempty"`
}

// ExtractIndex builds a MarketIndex row, or false if the market lacks
// either a market ID or a condition ID (both are required to index it).
func (m Market) ExtractIndex() (MarketIndex, bool) {
	if m.ID == "" || m.ConditionID == "" {
		return MarketIndex{}, false
	}
	idx := MarketIndex{
		MarketID:    m.ID,
		ConditionID: m.ConditionID,
		Active:      m.Active,
		Closed:      m.Closed,
		Volume:      m.Volume,
		Volume24h:   m.Volume24h,
		CreatedAt:   m.CreatedAt,
	}
	idx.QuestionLower = lower(m.Question)
	if m.Category != "" {
		idx.CategoryLower = lower(m.Category)
	}
	if len(m.Tags) > 0 {
		idx.TagsLower = make([]string, len(m.Tags))
		for i, t := range m.Tags {
			idx.TagsLower[i] = lower(t)
		}
	}
	return idx, true
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// IndexedAt is stamped onto batches of freshly indexed rows for
// observability; it has no bearing on any invariant.
type IndexedAt = time.Time
