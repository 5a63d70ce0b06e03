package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the side of an order, BUY or SELL.
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// MarketOrder is a single entry of a market order book.
type MarketOrder struct {
	Side     OrderSide
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Total    decimal.Decimal
}

// OrderBook is a snapshot of a market's order book.
// SellOrders are sorted by ascending ask, BuyOrders by descending bid.
type OrderBook struct {
	MarketID   string
	SellOrders []MarketOrder
	BuyOrders  []MarketOrder
}

// OpenOrder is one of the caller's own orders still open on the exchange.
type OpenOrder struct {
	ID        string
	MarketID  string
	Side      OrderSide
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	CreatedAt time.Time
}

// BalanceInfo holds the account balances keyed by currency code.
type BalanceInfo struct {
	Available map[string]decimal.Decimal
	OnHold    map[string]decimal.Decimal
}

// Gateway is the contract every exchange adapter implements.
// Implementations must be safe for concurrent use: strategies bound to
// different markets may call the same gateway at the same time.
// Errors returned should be *Error values so callers can tell transient
// failures from fatal ones.
type Gateway interface {
	// Name returns the implementation name recorded in the transaction log.
	Name() string

	GetMarketOrders(ctx context.Context, marketID string) (*OrderBook, error)
	GetLatestMarketPrice(ctx context.Context, marketID string) (decimal.Decimal, error)
	GetBalanceInfo(ctx context.Context) (*BalanceInfo, error)

	// CreateOrder places a limit order and returns the exchange-assigned id.
	CreateOrder(ctx context.Context, marketID string, side OrderSide, quantity, price decimal.Decimal) (string, error)

	// GetOpenOrders returns the caller's open orders on the market.
	GetOpenOrders(ctx context.Context, marketID string) ([]OpenOrder, error)

	// RoundValue applies the exchange's precision rule.
	RoundValue(value decimal.Decimal) decimal.Decimal
}
