package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionSide is long (net bought) or short (net sold) exposure in a token.
type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

// PositionStatus tracks a Position's lifecycle.
type PositionStatus string

const (
	PositionOpen       PositionStatus = "open"
	PositionClosed     PositionStatus = "closed"
	PositionLiquidated PositionStatus = "liquidated"
)

// Position is the Portfolio Projector's per-token accounting record,
// created on a token's first own-trade and mutated by every subsequent one.
type Position struct {
	MarketID      string           `json:"market_id"`
	TokenID       string           `json:"token_id"`
	Outcome       string           `json:"outcome"`
	Side          PositionSide     `json:"side"`
	Size          decimal.Decimal  `json:"size"`
	AveragePrice  decimal.Decimal  `json:"average_price"`
	CurrentPrice  *decimal.Decimal `json:"current_price,omitempty"`
	RealizedPnL   decimal.Decimal  `json:"realized_pnl"`
	UnrealizedPnL *decimal.Decimal `json:"unrealized_pnl,omitempty"`
	Status        PositionStatus   `json:"status"`
	OpenedAt      time.Time        `json:"opened_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	ClosedAt      *time.Time       `json:"closed_at,omitempty"`
	FeesPaid      decimal.Decimal  `json:"fees_paid"`
	MarketQuestion string          `json:"market_question,omitempty"`
}

// TotalPnL is realized plus unrealized profit and loss.
func (p Position) TotalPnL() decimal.Decimal {
	total := p.RealizedPnL
	if p.UnrealizedPnL != nil {
		total = total.Add(*p.UnrealizedPnL)
	}
	return total
}

// PnLPercentage is TotalPnL over the position's cost basis, or nil if the
// cost basis is zero.
func (p Position) PnLPercentage() *decimal.Decimal {
	costBasis := p.Size.Mul(p.AveragePrice)
	if costBasis.IsZero() {
		return nil
	}
	pct := p.TotalPnL().Div(costBasis).Mul(decimal.NewFromInt(100))
	return &pct
}

// OrderSide is the side of an ActiveOrder.
type OrderSide string

const (
	OrderBuy  OrderSide = "buy"
	OrderSell OrderSide = "sell"
)

// OrderKind distinguishes limit from market orders.
type OrderKind string

const (
	OrderLimit  OrderKind = "limit"
	OrderMarket OrderKind = "market"
)

// OrderStatus is an ActiveOrder's lifecycle state.
type OrderStatus string

const (
	OrderPending         OrderStatus = "pending"
	OrderOpen            OrderStatus = "open"
	OrderPartiallyFilled OrderStatus = "partially_filled"
	OrderFilled          OrderStatus = "filled"
	OrderCancelled       OrderStatus = "cancelled"
	OrderRejected        OrderStatus = "rejected"
	OrderExpired         OrderStatus = "expired"
)

// TimeInForce controls how long an order may rest before it is cancelled.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "gtc" // good till cancelled
	TimeInForceIOC TimeInForce = "ioc" // immediate or cancel
	TimeInForceFOK TimeInForce = "fok" // fill or kill
)

// ActiveOrder is the Portfolio Projector's per-order lifecycle record.
type ActiveOrder struct {
	OrderID       string          `json:"order_id"`
	MarketID      string          `json:"market_id"`
	TokenID       string          `json:"token_id"`
	Outcome       string          `json:"outcome"`
	Side          OrderSide       `json:"side"`
	OrderType     OrderKind       `json:"order_type"`
	Price         decimal.Decimal `json:"price"`
	Size          decimal.Decimal `json:"size"`
	FilledSize    decimal.Decimal `json:"filled_size"`
	RemainingSize decimal.Decimal `json:"remaining_size"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	TimeInForce   TimeInForce     `json:"time_in_force"`
	PostOnly      bool            `json:"post_only"`
	ReduceOnly    bool            `json:"reduce_only"`
}

// OrderUpdateKind discriminates an OrderUpdate's cause.
type OrderUpdateKind string

const (
	OrderUpdatePlaced          OrderUpdateKind = "placed"
	OrderUpdatePartiallyFilled OrderUpdateKind = "partially_filled"
	OrderUpdateFilled          OrderUpdateKind = "filled"
	OrderUpdateCancelled       OrderUpdateKind = "cancelled"
	OrderUpdateRejected        OrderUpdateKind = "rejected"
	OrderUpdateExpired         OrderUpdateKind = "expired"
)

// OrderUpdate is the MyOrder payload of a MarketEvent.
type OrderUpdate struct {
	OrderID    string          `json:"order_id"`
	MarketID   string          `json:"market_id"`
	TokenID    string          `json:"token_id"`
	UpdateType OrderUpdateKind `json:"update_type"`
	Timestamp  time.Time       `json:"timestamp"`
	Order      ActiveOrder     `json:"order"`
}

// TradeExecution is the MyTrade payload of a MarketEvent.
type TradeExecution struct {
	TradeID   string          `json:"trade_id"`
	OrderID   string          `json:"order_id"`
	MarketID  string          `json:"market_id"`
	TokenID   string          `json:"token_id"`
	Side      OrderSide       `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	Fee       decimal.Decimal `json:"fee"`
	Timestamp time.Time       `json:"timestamp"`
	IsMaker   bool            `json:"is_maker"`
}

// PortfolioStats is the account-wide rollup across every Position.
type PortfolioStats struct {
	TotalBalance      decimal.Decimal  `json:"total_balance"`
	AvailableBalance  decimal.Decimal  `json:"available_balance"`
	LockedBalance     decimal.Decimal  `json:"locked_balance"`
	TotalPositions    int              `json:"total_positions"`
	OpenPositions     int              `json:"open_positions"`
	TotalRealizedPnL  decimal.Decimal  `json:"total_realized_pnl"`
	TotalUnrealizedPnL decimal.Decimal `json:"total_unrealized_pnl"`
	TotalFeesPaid     decimal.Decimal  `json:"total_fees_paid"`
	WinRate           *decimal.Decimal `json:"win_rate,omitempty"`
	AverageWin        *decimal.Decimal `json:"average_win,omitempty"`
	AverageLoss       *decimal.Decimal `json:"average_loss,omitempty"`
	LastUpdated       time.Time        `json:"last_updated"`
}

// TotalPortfolioValue is balance plus unrealized P&L.
func (s PortfolioStats) TotalPortfolioValue() decimal.Decimal {
	return s.TotalBalance.Add(s.TotalUnrealizedPnL)
}

// TotalPnL is realized plus unrealized P&L across the whole account.
func (s PortfolioStats) TotalPnL() decimal.Decimal {
	return s.TotalRealizedPnL.Add(s.TotalUnrealizedPnL)
}

// MarketPositionSummary rolls up every Position held in one market.
type MarketPositionSummary struct {
	MarketID       string          `json:"market_id"`
	MarketQuestion string          `json:"market_question"`
	Positions      []Position      `json:"positions"`
	TotalExposure  decimal.Decimal `json:"total_exposure"`
	NetPosition    decimal.Decimal `json:"net_position"`
	TotalPnL       decimal.Decimal `json:"total_pnl"`
	HasOpenOrders  bool            `json:"has_open_orders"`
	OpenOrderCount int             `json:"open_order_count"`
}
