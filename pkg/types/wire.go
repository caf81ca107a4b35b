package types

// These structs map 1:1 to the JSON frames exchanged over the streaming
// wire protocol. Inbound frames carry an "event_type" discriminator;
// outbound frames are subscribe/update control messages.

// WireSubscribe is the initial subscription frame a Worker sends once its
// connection reaches Connected, naming the token set it owns.
type WireSubscribe struct {
	Action   string   `json:"action"` // "subscribe"
	Type     string   `json:"type"`   // "market" or "user"
	AssetIDs []string `json:"assets_ids,omitempty"`
	Markets  []string `json:"markets,omitempty"`
	Auth     *WireAuth `json:"auth,omitempty"`
}

// WireUpdate dynamically adds or removes tokens from an already-connected
// worker's subscription set.
type WireUpdate struct {
	AssetIDs  []string `json:"assets_ids,omitempty"`
	Markets   []string `json:"markets,omitempty"`
	Operation string   `json:"operation"` // "subscribe" or "unsubscribe"
}

// WireAuth carries L2 API credentials for the authenticated channel.
// The core only forwards these bytes; it never derives or signs them.
type WireAuth struct {
	ApiKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// WireBook is the "book" frame: a full snapshot replacement for one asset.
type WireBook struct {
	EventType string           `json:"event_type"`
	AssetID   string           `json:"asset_id"`
	Market    string           `json:"market"`
	Timestamp string           `json:"timestamp"`
	Hash      string           `json:"hash"`
	Buys      []WirePriceLevel `json:"buys"`
	Sells     []WirePriceLevel `json:"sells"`
}

// WirePriceLevel is a (price, size) pair as it comes over the wire —
// strings, since the venue preserves decimal precision in JSON text.
type WirePriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// WireDelta is one level change inside a "price_change" frame.
type WireDelta struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Side    string `json:"side"`
	Hash    string `json:"hash"`
}

// WirePriceChange is the "price_change" frame: one or more deltas applied
// together.
type WirePriceChange struct {
	EventType string      `json:"event_type"`
	Market    string      `json:"market"`
	Timestamp string      `json:"timestamp"`
	Changes   []WireDelta `json:"price_changes"`
}

// WireTrade is the "trade" frame: a public fill.
type WireTrade struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Timestamp string `json:"timestamp"`
}

// WireTickSizeChange is the "tick_size_change" frame.
type WireTickSizeChange struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	OldTick   string `json:"old_tick_size"`
	NewTick   string `json:"new_tick_size"`
	Timestamp string `json:"timestamp"`
}

// WireLastTradePrice is the "last_trade_price" frame.
type WireLastTradePrice struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Price     string `json:"price"`
	Timestamp string `json:"timestamp"`
}

// WireMyOrder is the "order" frame on the authenticated channel: an order
// lifecycle notification for one of the account's own orders.
type WireMyOrder struct {
	EventType    string `json:"event_type"`
	ID           string `json:"id"`
	Market       string `json:"market"`
	AssetID      string `json:"asset_id"`
	Side         string `json:"side"`
	Price        string `json:"price"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`
	Outcome      string `json:"outcome"`
	Timestamp    string `json:"timestamp"`
	Type         string `json:"type"` // PLACEMENT, UPDATE, CANCELLATION
}

// WireMyTrade is the "my_trade" frame on the authenticated channel: a fill
// against one of the account's own orders.
type WireMyTrade struct {
	EventType string `json:"event_type"`
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	Market    string `json:"market"`
	AssetID   string `json:"asset_id"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Fee       string `json:"fee"`
	IsMaker   bool   `json:"is_maker"`
	Timestamp string `json:"timestamp"`
}
