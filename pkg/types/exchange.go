package types

import "github.com/shopspring/decimal"

// BookResponse is the CLOB REST API's raw order book response, used only
// as an HTTP fallback to seed a book before the wire protocol's first
// snapshot arrives for an asset.
type BookResponse struct {
	Market    string           `json:"market"`
	AssetID   string           `json:"asset_id"`
	Bids      []WirePriceLevel `json:"bids"`
	Asks      []WirePriceLevel `json:"asks"`
	Hash      string           `json:"hash,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
}

// ToSnapshot converts the REST response into the same BookSnapshot shape
// the wire protocol's "book" frame produces.
func (r BookResponse) ToSnapshot() BookSnapshot {
	bids := make([]PriceLevel, len(r.Bids))
	for i, l := range r.Bids {
		bids[i] = PriceLevel{Price: parseDecimal(l.Price), Size: parseDecimal(l.Size)}
	}
	asks := make([]PriceLevel, len(r.Asks))
	for i, l := range r.Asks {
		asks[i] = PriceLevel{Price: parseDecimal(l.Price), Size: parseDecimal(l.Size)}
	}
	return BookSnapshot{AssetID: r.AssetID, Bids: bids, Asks: asks, Hash: r.Hash}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SignedOrder is a pre-signed order payload as produced by an external
// signer. This core never constructs or signs one — it only forwards
// whatever the caller hands it to the placement endpoint.
type SignedOrder struct {
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Side          string `json:"side"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Signature     string `json:"signature"`
	SignatureType int    `json:"signatureType"`
}

// OrderResponse is the placement endpoint's per-order acknowledgement.
type OrderResponse struct {
	Success      bool   `json:"success"`
	OrderID      string `json:"orderID"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMsg,omitempty"`
}

// CancelResponse reports which order IDs a cancel request actually removed.
type CancelResponse struct {
	Canceled []string `json:"canceled"`
	NotFound []string `json:"not_canceled,omitempty"`
}
