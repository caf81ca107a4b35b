// Package codec implements the prefix-byte key discipline and the
// value encoding/decoding layer shared by every column family in
// internal/store. Values are serialized as JSON: a self-describing,
// forward-compatible text encoding, exactly as the indexer's original
// design called for.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Prefix is the one-byte table discriminator prepended to every key.
// Within a shared column family it isolates logical tables; within a
// dedicated bucket (this module's bbolt layout gives every table its own
// bucket) it still guards against cross-table key collisions introduced
// during a future migration.
type Prefix byte

const (
	PrefixMarkets             Prefix = 0x01
	PrefixMarketsByCondition  Prefix = 0x02
	PrefixConditions          Prefix = 0x03
	PrefixTokens              Prefix = 0x04
	PrefixTokensByCondition   Prefix = 0x05
	PrefixMarketIndex         Prefix = 0x06
	PrefixTokenIndex          Prefix = 0x07
	PrefixConditionIndex      Prefix = 0x08
)

// TableName is the bbolt bucket name each Prefix is stored under.
func (p Prefix) TableName() string {
	switch p {
	case PrefixMarkets:
		return "markets"
	case PrefixMarketsByCondition:
		return "markets_by_condition"
	case PrefixConditions:
		return "conditions"
	case PrefixTokens:
		return "tokens"
	case PrefixTokensByCondition:
		return "tokens_by_condition"
	case PrefixMarketIndex:
		return "market_index"
	case PrefixTokenIndex:
		return "token_index"
	case PrefixConditionIndex:
		return "condition_index"
	default:
		return ""
	}
}

// ErrDecode and ErrEncode are the typed serialization error kinds the
// Store surfaces to callers; ErrUnknownPrefix guards against a key read
// back from the wrong bucket.
var (
	ErrEncode       = errors.New("codec: encode value")
	ErrDecode       = errors.New("codec: decode value")
	ErrUnknownPrefix = errors.New("codec: unknown table prefix")
)

// Key prepends p to id, producing the on-disk key for that row.
func Key(p Prefix, id string) []byte {
	buf := make([]byte, 0, len(id)+1)
	buf = append(buf, byte(p))
	buf = append(buf, id...)
	return buf
}

// SplitKey strips the prefix byte from a stored key and returns the row id,
// failing if the key's leading byte does not match want.
func SplitKey(want Prefix, key []byte) (string, error) {
	if len(key) == 0 || Prefix(key[0]) != want {
		return "", fmt.Errorf("%w: got %v, want %#x", ErrUnknownPrefix, key, byte(want))
	}
	return string(key[1:]), nil
}

// Encode serializes v as JSON.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return b, nil
}

// Decode deserializes data into v.
func Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}
