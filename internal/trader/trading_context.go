package trader

import (
	"context"
	"fmt"

	"cycle-trade-bot-go/internal/exchange"
	"github.com/shopspring/decimal"
)

// divisionPrecision is the number of fractional digits kept when converting a
// counter currency amount to base currency, before the exchange rounding rule.
const divisionPrecision = 16

// TradingContext binds one exchange gateway to one market.
type TradingContext struct {
	gateway exchange.Gateway
	market  Market
}

func NewTradingContext(gateway exchange.Gateway, market Market) *TradingContext {
	return &TradingContext{gateway: gateway, market: market}
}

func (tc *TradingContext) Market() Market          { return tc.market }
func (tc *TradingContext) MarketID() string        { return tc.market.ID }
func (tc *TradingContext) MarketName() string      { return tc.market.Name }
func (tc *TradingContext) BaseCurrency() string    { return tc.market.BaseCurrency }
func (tc *TradingContext) CounterCurrency() string { return tc.market.CounterCurrency }
func (tc *TradingContext) ExchangeName() string    { return tc.gateway.Name() }

// OrderBook returns both sides of the market's order book.
func (tc *TradingContext) OrderBook(ctx context.Context) (*exchange.OrderBook, error) {
	return tc.gateway.GetMarketOrders(ctx, tc.market.ID)
}

// BuyOrders returns the bids, best first.
func (tc *TradingContext) BuyOrders(ctx context.Context) ([]exchange.MarketOrder, error) {
	book, err := tc.OrderBook(ctx)
	if err != nil {
		return nil, err
	}
	return book.BuyOrders, nil
}

// SellOrders returns the asks, best first.
func (tc *TradingContext) SellOrders(ctx context.Context) ([]exchange.MarketOrder, error) {
	book, err := tc.OrderBook(ctx)
	if err != nil {
		return nil, err
	}
	return book.SellOrders, nil
}

func (tc *TradingContext) latestPrice(ctx context.Context) (decimal.Decimal, error) {
	price, err := tc.gateway.GetLatestMarketPrice(ctx, tc.market.ID)
	if err != nil {
		return decimal.Zero, err
	}
	if price.Sign() <= 0 {
		return decimal.Zero, exchange.NewFatalError("GetLatestMarketPrice",
			fmt.Errorf("non-positive latest price %s for market %s", price, tc.market.ID))
	}
	return price, nil
}

// AmountOfBaseCurrency converts a counter currency amount to base currency at
// the latest trade price. The quotient is kept to 16 digits (half up) and then
// rounded by the exchange rule, which gives the quantity that can actually be traded.
func (tc *TradingContext) AmountOfBaseCurrency(ctx context.Context, counterAmount decimal.Decimal) (decimal.Decimal, error) {
	price, err := tc.latestPrice(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return tc.gateway.RoundValue(counterAmount.DivRound(price, divisionPrecision)), nil
}

// CounterValueOfBase values a base currency amount in counter currency at the latest trade price.
func (tc *TradingContext) CounterValueOfBase(ctx context.Context, baseAmount decimal.Decimal) (decimal.Decimal, error) {
	price, err := tc.latestPrice(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return baseAmount.Mul(price), nil
}

// SendBuyOrder places one limit buy and returns its state.
func (tc *TradingContext) SendBuyOrder(ctx context.Context, amount, price decimal.Decimal) (*OrderState, error) {
	return tc.sendOrder(ctx, exchange.Buy, amount, price)
}

// SendSellOrder places one limit sell and returns its state.
func (tc *TradingContext) SendSellOrder(ctx context.Context, amount, price decimal.Decimal) (*OrderState, error) {
	return tc.sendOrder(ctx, exchange.Sell, amount, price)
}

func (tc *TradingContext) sendOrder(ctx context.Context, side exchange.OrderSide, amount, price decimal.Decimal) (*OrderState, error) {
	id, err := tc.gateway.CreateOrder(ctx, tc.market.ID, side, amount, price)
	if err != nil {
		return nil, err
	}
	return &OrderState{ID: id, Side: side, Price: price, Amount: amount}, nil
}

// IsOrderOpen reports whether the order is still in the market's open orders.
func (tc *TradingContext) IsOrderOpen(ctx context.Context, id string) (bool, error) {
	open, err := tc.openOrderIDs(ctx)
	if err != nil {
		return false, err
	}
	_, ok := open[id]
	return ok, nil
}

// FindFilledOrderIDs returns the candidates no longer open, in candidate order.
// A cancelled order is indistinguishable from a filled one here.
func (tc *TradingContext) FindFilledOrderIDs(ctx context.Context, candidates []string) ([]string, error) {
	open, err := tc.openOrderIDs(ctx)
	if err != nil {
		return nil, err
	}
	var filled []string
	for _, id := range candidates {
		if _, ok := open[id]; !ok {
			filled = append(filled, id)
		}
	}
	return filled, nil
}

func (tc *TradingContext) openOrderIDs(ctx context.Context) (map[string]struct{}, error) {
	orders, err := tc.gateway.GetOpenOrders(ctx, tc.market.ID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		ids[o.ID] = struct{}{}
	}
	return ids, nil
}

// AvailableBalances returns the available balances keyed by currency code.
func (tc *TradingContext) AvailableBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	info, err := tc.gateway.GetBalanceInfo(ctx)
	if err != nil {
		return nil, err
	}
	if info.Available == nil {
		return map[string]decimal.Decimal{}, nil
	}
	return info.Available, nil
}

// BaseCurrencyBalance returns the available base currency, zero if the exchange omits it.
func (tc *TradingContext) BaseCurrencyBalance(ctx context.Context) (decimal.Decimal, error) {
	return tc.balanceOf(ctx, tc.market.BaseCurrency)
}

// CounterCurrencyBalance returns the available counter currency, zero if the exchange omits it.
func (tc *TradingContext) CounterCurrencyBalance(ctx context.Context) (decimal.Decimal, error) {
	return tc.balanceOf(ctx, tc.market.CounterCurrency)
}

func (tc *TradingContext) balanceOf(ctx context.Context, currency string) (decimal.Decimal, error) {
	balances, err := tc.AvailableBalances(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return balances[currency], nil
}

// RoundValue applies the exchange's precision rule.
func (tc *TradingContext) RoundValue(value decimal.Decimal) decimal.Decimal {
	return tc.gateway.RoundValue(value)
}
