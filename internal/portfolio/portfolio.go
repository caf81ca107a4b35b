// Package portfolio projects own-order and own-trade events into
// per-order lifecycle state and per-token position accounting. Adapted
// from the teacher's strategy.Inventory (mutex-guarded position record,
// OnFill-shaped mutator, a Snapshot reader), generalized from exactly
// two hardcoded tokens (yes/no) per market to an arbitrary number of
// tokens per condition, each keyed by its own token_id.
package portfolio

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"polymarket-index/pkg/types"
)

// Projector maintains order_id -> ActiveOrder and token_id -> Position
// maps from the MyOrder/MyTrade events on the shared bus.
type Projector struct {
	mu        sync.RWMutex
	orders    map[string]types.ActiveOrder
	positions map[string]types.Position
}

// New creates an empty Projector.
func New() *Projector {
	return &Projector{
		orders:    make(map[string]types.ActiveOrder),
		positions: make(map[string]types.Position),
	}
}

// Apply routes one MarketEvent to the order or position mutator it
// affects. Events unrelated to own orders/trades/books are ignored.
func (p *Projector) Apply(evt types.MarketEvent) {
	switch evt.Kind {
	case types.EventMyOrder:
		if evt.MyOrder != nil {
			p.applyOrderUpdate(*evt.MyOrder)
		}
	case types.EventMyTrade:
		if evt.MyTrade != nil {
			p.applyTrade(*evt.MyTrade)
		}
	case types.EventBook:
		if evt.Book != nil {
			p.markToMarket(*evt.Book)
		}
	}
}

func (p *Projector) applyOrderUpdate(upd types.OrderUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders[upd.OrderID] = upd.Order
}

// applyTrade updates the order's fill progress and the token's position,
// size-weighting the average entry price on opens and realizing P&L on
// reductions, matching the teacher's applyYesFill/applyNoFill math
// generalized to an explicit side-aware Position rather than a fixed
// yes/no pair.
func (p *Projector) applyTrade(exec types.TradeExecution) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if order, ok := p.orders[exec.OrderID]; ok {
		order.FilledSize = order.FilledSize.Add(exec.Size)
		order.RemainingSize = order.Size.Sub(order.FilledSize)
		if order.RemainingSize.IsNegative() {
			order.RemainingSize = decimal.Zero
		}
		order.UpdatedAt = exec.Timestamp
		if order.RemainingSize.IsZero() {
			order.Status = types.OrderFilled
		} else {
			order.Status = types.OrderPartiallyFilled
		}
		p.orders[exec.OrderID] = order
	}

	pos, existed := p.positions[exec.TokenID]
	if !existed {
		pos = types.Position{
			TokenID:  exec.TokenID,
			MarketID: exec.MarketID,
			Side:     sideFor(exec.Side),
			Status:   types.PositionOpen,
			OpenedAt: exec.Timestamp,
		}
	}
	pos.FeesPaid = pos.FeesPaid.Add(exec.Fee)
	pos.UpdatedAt = exec.Timestamp

	signedDelta := signedSize(exec.Side, exec.Size)
	netBefore := signedPositionSize(pos)

	switch {
	case netBefore.IsZero(), sameSign(netBefore, signedDelta):
		// Opening or adding to an existing directional position: the
		// average price is size-weighted across the combined size.
		totalCost := pos.AveragePrice.Mul(pos.Size).Add(exec.Price.Mul(exec.Size))
		pos.Size = pos.Size.Add(exec.Size)
		if !pos.Size.IsZero() {
			pos.AveragePrice = totalCost.Div(pos.Size)
		}
	default:
		// Reducing (or flipping) an existing position: realize P&L on
		// the portion that closes the prior side.
		closedSize := decimal.Min(exec.Size, pos.Size)
		if pos.Side == types.PositionLong {
			pos.RealizedPnL = pos.RealizedPnL.Add(exec.Price.Sub(pos.AveragePrice).Mul(closedSize))
		} else {
			pos.RealizedPnL = pos.RealizedPnL.Add(pos.AveragePrice.Sub(exec.Price).Mul(closedSize))
		}
		pos.Size = pos.Size.Sub(closedSize)

		remainder := exec.Size.Sub(closedSize)
		if pos.Size.IsZero() && remainder.IsPositive() {
			// The trade fully closed the old side and flips into the
			// opposite direction with the remainder at the trade price.
			pos.Side = sideFor(exec.Side)
			pos.Size = remainder
			pos.AveragePrice = exec.Price
		} else if pos.Size.IsZero() {
			pos.AveragePrice = decimal.Zero
		}
	}

	if pos.Size.IsZero() {
		pos.Status = types.PositionClosed
		now := exec.Timestamp
		pos.ClosedAt = &now
	} else {
		pos.Status = types.PositionOpen
		pos.ClosedAt = nil
	}

	p.positions[exec.TokenID] = pos
}

func sideFor(side types.OrderSide) types.PositionSide {
	if side == types.OrderBuy {
		return types.PositionLong
	}
	return types.PositionShort
}

func signedSize(side types.OrderSide, size decimal.Decimal) decimal.Decimal {
	if side == types.OrderBuy {
		return size
	}
	return size.Neg()
}

func signedPositionSize(pos types.Position) decimal.Decimal {
	if pos.Side == types.PositionShort {
		return pos.Size.Neg()
	}
	return pos.Size
}

func sameSign(a, b decimal.Decimal) bool {
	if a.IsZero() || b.IsZero() {
		return true
	}
	return a.IsPositive() == b.IsPositive()
}

// markToMarket recomputes unrealized P&L from the order book's current
// mid for the token the book event concerns.
func (p *Projector) markToMarket(book types.BookSnapshot) {
	mid, ok := midFromLevels(book.Bids, book.Asks)
	if !ok {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[book.AssetID]
	if !ok {
		return
	}
	pos.CurrentPrice = &mid
	var unrealized decimal.Decimal
	if pos.Side == types.PositionLong {
		unrealized = mid.Sub(pos.AveragePrice).Mul(pos.Size)
	} else {
		unrealized = pos.AveragePrice.Sub(mid).Mul(pos.Size)
	}
	pos.UnrealizedPnL = &unrealized
	p.positions[book.AssetID] = pos
}

func midFromLevels(bids, asks []types.PriceLevel) (decimal.Decimal, bool) {
	var bid, ask decimal.Decimal
	hasBid, hasAsk := false, false
	for _, l := range bids {
		if l.Size.IsPositive() && (!hasBid || l.Price.GreaterThan(bid)) {
			bid, hasBid = l.Price, true
		}
	}
	for _, l := range asks {
		if l.Size.IsPositive() && (!hasAsk || l.Price.LessThan(ask)) {
			ask, hasAsk = l.Price, true
		}
	}
	if !hasBid || !hasAsk || !bid.LessThan(ask) {
		return decimal.Zero, false
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), true
}

// Order returns the current lifecycle state of orderID.
func (p *Projector) Order(orderID string) (types.ActiveOrder, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	o, ok := p.orders[orderID]
	return o, ok
}

// Position returns the current accounting record for tokenID.
func (p *Projector) Position(tokenID string) (types.Position, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pos, ok := p.positions[tokenID]
	return pos, ok
}

// Positions returns every position the projector currently tracks.
func (p *Projector) Positions() []types.Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]types.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	return out
}

// Stats rolls up every tracked position into an account-wide summary.
func (p *Projector) Stats() types.PortfolioStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := types.PortfolioStats{LastUpdated: time.Now()}
	for _, pos := range p.positions {
		stats.TotalPositions++
		if pos.Status == types.PositionOpen {
			stats.OpenPositions++
		}
		stats.TotalRealizedPnL = stats.TotalRealizedPnL.Add(pos.RealizedPnL)
		if pos.UnrealizedPnL != nil {
			stats.TotalUnrealizedPnL = stats.TotalUnrealizedPnL.Add(*pos.UnrealizedPnL)
		}
		stats.TotalFeesPaid = stats.TotalFeesPaid.Add(pos.FeesPaid)
	}
	return stats
}
