package worker

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-index/pkg/types"
)

// envelope peeks at the discriminator every inbound frame carries, without
// committing to a full type until the kind is known.
type envelope struct {
	EventType string `json:"event_type"`
}

// parseFrame decodes one raw wire message into zero or more normalized
// MarketEvents. A price_change frame expands into one event per delta, so
// each upsert reaches the order book individually. An unrecognized
// event_type (or a non-JSON ping/pong payload) yields no events and no
// error — it is simply not one of the frame kinds this core understands.
func parseFrame(data []byte) ([]types.MarketEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil
	}

	switch env.EventType {
	case "book":
		return parseBook(data)
	case "price_change":
		return parsePriceChange(data)
	case "trade":
		return parseTrade(data)
	case "tick_size_change":
		return parseTickSizeChange(data)
	case "last_trade_price":
		return parseLastTradePrice(data)
	case "order":
		return parseMyOrder(data)
	case "my_trade":
		return parseMyTrade(data)
	default:
		return nil, nil
	}
}

func parseBook(data []byte) ([]types.MarketEvent, error) {
	var w types.WireBook
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("worker: parse book frame: %w", err)
	}
	snap := types.BookSnapshot{
		AssetID:   w.AssetID,
		Bids:      levelsFromWire(w.Buys),
		Asks:      levelsFromWire(w.Sells),
		Hash:      w.Hash,
		Timestamp: parseTimestamp(w.Timestamp),
	}
	return []types.MarketEvent{{Kind: types.EventBook, AssetID: w.AssetID, Book: &snap}}, nil
}

func levelsFromWire(src []types.WirePriceLevel) []types.PriceLevel {
	out := make([]types.PriceLevel, len(src))
	for i, l := range src {
		out[i] = types.PriceLevel{Price: parsePrice(l.Price), Size: parseSize(l.Size)}
	}
	return out
}

func parsePriceChange(data []byte) ([]types.MarketEvent, error) {
	var w types.WirePriceChange
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("worker: parse price_change frame: %w", err)
	}
	events := make([]types.MarketEvent, 0, len(w.Changes))
	for _, d := range w.Changes {
		pc := types.PriceChange{
			AssetID: d.AssetID,
			Side:    parseSide(d.Side),
			Price:   parsePrice(d.Price),
			Size:    parseSize(d.Size),
		}
		events = append(events, types.MarketEvent{Kind: types.EventPriceChange, AssetID: d.AssetID, PriceChange: &pc})
	}
	return events, nil
}

func parseTrade(data []byte) ([]types.MarketEvent, error) {
	var w types.WireTrade
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("worker: parse trade frame: %w", err)
	}
	tr := types.Trade{
		AssetID:   w.AssetID,
		Price:     parsePrice(w.Price),
		Size:      parseSize(w.Size),
		Side:      parseSide(w.Side),
		Timestamp: parseTimestamp(w.Timestamp),
	}
	return []types.MarketEvent{{Kind: types.EventTrade, AssetID: w.AssetID, Trade: &tr}}, nil
}

func parseTickSizeChange(data []byte) ([]types.MarketEvent, error) {
	var w types.WireTickSizeChange
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("worker: parse tick_size_change frame: %w", err)
	}
	ts := types.TickSizeChange{
		AssetID:   w.AssetID,
		OldTick:   parsePrice(w.OldTick),
		NewTick:   parsePrice(w.NewTick),
		Timestamp: parseTimestamp(w.Timestamp),
	}
	return []types.MarketEvent{{Kind: types.EventTickSizeChange, AssetID: w.AssetID, TickSizeChange: &ts}}, nil
}

func parseLastTradePrice(data []byte) ([]types.MarketEvent, error) {
	var w types.WireLastTradePrice
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("worker: parse last_trade_price frame: %w", err)
	}
	ltp := types.LastTradePrice{
		AssetID:   w.AssetID,
		Price:     parsePrice(w.Price),
		Timestamp: parseTimestamp(w.Timestamp),
	}
	return []types.MarketEvent{{Kind: types.EventLastTradePrice, AssetID: w.AssetID, LastTradePrice: &ltp}}, nil
}

func parseMyOrder(data []byte) ([]types.MarketEvent, error) {
	var w types.WireMyOrder
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("worker: parse order frame: %w", err)
	}
	size := parseSize(w.OriginalSize)
	filled := parseSize(w.SizeMatched)
	order := types.ActiveOrder{
		OrderID:       w.ID,
		MarketID:      w.Market,
		TokenID:       w.AssetID,
		Outcome:       w.Outcome,
		Side:          parseOrderSide(w.Side),
		Price:         parsePrice(w.Price),
		Size:          size,
		FilledSize:    filled,
		RemainingSize: size.Sub(filled),
		Status:        orderStatusFromWireType(w.Type, size, filled),
		UpdatedAt:     parseTimestamp(w.Timestamp),
	}
	upd := types.OrderUpdate{
		OrderID:    w.ID,
		MarketID:   w.Market,
		TokenID:    w.AssetID,
		UpdateType: orderUpdateKindFromWireType(w.Type, size, filled),
		Timestamp:  parseTimestamp(w.Timestamp),
		Order:      order,
	}
	return []types.MarketEvent{{Kind: types.EventMyOrder, AssetID: w.AssetID, MyOrder: &upd}}, nil
}

func parseMyTrade(data []byte) ([]types.MarketEvent, error) {
	var w types.WireMyTrade
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("worker: parse my_trade frame: %w", err)
	}
	exec := types.TradeExecution{
		TradeID:   w.ID,
		OrderID:   w.OrderID,
		MarketID:  w.Market,
		TokenID:   w.AssetID,
		Side:      parseOrderSide(w.Side),
		Price:     parsePrice(w.Price),
		Size:      parseSize(w.Size),
		Fee:       parsePrice(w.Fee),
		Timestamp: parseTimestamp(w.Timestamp),
		IsMaker:   w.IsMaker,
	}
	return []types.MarketEvent{{Kind: types.EventMyTrade, AssetID: w.AssetID, MyTrade: &exec}}, nil
}

// parsePrice rounds to four decimal places, per the venue's price tick.
func parsePrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d.Round(4)
}

// parseSize rounds to two decimal places, per the venue's size tick.
func parseSize(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d.Round(2)
}

func parseSide(s string) types.Side {
	switch s {
	case "BUY", "buy":
		return types.Buy
	case "SELL", "sell":
		return types.Sell
	default:
		return types.Side(s)
	}
}

func parseOrderSide(s string) types.OrderSide {
	switch s {
	case "BUY", "buy":
		return types.OrderBuy
	case "SELL", "sell":
		return types.OrderSell
	default:
		return types.OrderSide(s)
	}
}

func orderUpdateKindFromWireType(wireType string, size, filled decimal.Decimal) types.OrderUpdateKind {
	switch wireType {
	case "PLACEMENT":
		return types.OrderUpdatePlaced
	case "CANCELLATION":
		return types.OrderUpdateCancelled
	case "UPDATE":
		if filled.GreaterThanOrEqual(size) && !size.IsZero() {
			return types.OrderUpdateFilled
		}
		return types.OrderUpdatePartiallyFilled
	default:
		return types.OrderUpdatePartiallyFilled
	}
}

func orderStatusFromWireType(wireType string, size, filled decimal.Decimal) types.OrderStatus {
	switch wireType {
	case "PLACEMENT":
		return types.OrderOpen
	case "CANCELLATION":
		return types.OrderCancelled
	case "UPDATE":
		if filled.IsZero() {
			return types.OrderOpen
		}
		if filled.GreaterThanOrEqual(size) && !size.IsZero() {
			return types.OrderFilled
		}
		return types.OrderPartiallyFilled
	default:
		return types.OrderOpen
	}
}

// parseTimestamp accepts either epoch milliseconds or RFC3339 text, falling
// back to the zero time if neither parses — a malformed timestamp should
// never abort processing of an otherwise valid frame.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
