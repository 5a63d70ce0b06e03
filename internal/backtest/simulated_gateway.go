package backtest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"cycle-trade-bot-go/internal/exchange"
	"github.com/shopspring/decimal"
)

const (
	BaseCurrency    = "BTC"
	CounterCurrency = "USD"
)

var (
	initialBaseBalance    = decimal.RequireFromString("0.02")
	initialCounterBalance = decimal.NewFromInt(500)
	spread                = decimal.RequireFromString("0.0001")
	one                   = decimal.NewFromInt(1)
)

// SimulatedGateway is an exchange.Gateway that replays a price series.
// Orders fill in full when Advance moves the price through them.
type SimulatedGateway struct {
	name   string
	prices []decimal.Decimal

	mu       sync.Mutex
	index    int
	nextID   int64
	open     []exchange.OpenOrder
	filled   []exchange.OpenOrder
	balances map[string]decimal.Decimal
	failNext []exchange.ErrorKind
}

// NewSimulatedGateway starts at the first price with 0.02 BTC and 500 USD.
func NewSimulatedGateway(name string, prices []decimal.Decimal) (*SimulatedGateway, error) {
	if len(prices) == 0 {
		return nil, errors.New("simulated gateway needs at least one price")
	}
	return &SimulatedGateway{
		name:   name,
		prices: prices,
		balances: map[string]decimal.Decimal{
			BaseCurrency:    initialBaseBalance,
			CounterCurrency: initialCounterBalance,
		},
	}, nil
}

func (g *SimulatedGateway) Name() string {
	return g.name
}

// SetBalance overrides the available balance of a currency.
func (g *SimulatedGateway) SetBalance(currency string, amount decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.balances[currency] = amount
}

// FailNext makes the next gateway call fail with an error of the given kind.
// Calls queue up: FailNext twice fails the next two calls.
func (g *SimulatedGateway) FailNext(kind exchange.ErrorKind) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failNext = append(g.failNext, kind)
}

// injectedFailure must be called with mu held.
func (g *SimulatedGateway) injectedFailure(op string) error {
	if len(g.failNext) == 0 {
		return nil
	}
	kind := g.failNext[0]
	g.failNext = g.failNext[1:]
	err := fmt.Errorf("injected failure at cycle %d", g.index)
	if kind == exchange.KindTransient {
		return exchange.NewTransientError(op, err)
	}
	return exchange.NewFatalError(op, err)
}

// Len returns the number of prices in the series.
func (g *SimulatedGateway) Len() int {
	return len(g.prices)
}

// Price returns the current price.
func (g *SimulatedGateway) Price() decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prices[g.index]
}

// Advance moves to the next price and fills every buy priced at or above it
// and every sell priced at or below it. It returns false at the end of the series.
func (g *SimulatedGateway) Advance() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.index+1 >= len(g.prices) {
		return false
	}
	g.index++
	price := g.prices[g.index]

	stillOpen := g.open[:0]
	for _, o := range g.open {
		fills := (o.Side == exchange.Buy && o.Price.GreaterThanOrEqual(price)) ||
			(o.Side == exchange.Sell && o.Price.LessThanOrEqual(price))
		if !fills {
			stillOpen = append(stillOpen, o)
			continue
		}
		cost := o.Quantity.Mul(o.Price)
		if o.Side == exchange.Buy {
			g.balances[BaseCurrency] = g.balances[BaseCurrency].Add(o.Quantity)
			g.balances[CounterCurrency] = g.balances[CounterCurrency].Sub(cost)
		} else {
			g.balances[BaseCurrency] = g.balances[BaseCurrency].Sub(o.Quantity)
			g.balances[CounterCurrency] = g.balances[CounterCurrency].Add(cost)
		}
		g.filled = append(g.filled, o)
	}
	g.open = stillOpen
	return true
}

// Value returns the portfolio value in counter currency at the current price.
func (g *SimulatedGateway) Value() decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balances[CounterCurrency].Add(g.balances[BaseCurrency].Mul(g.prices[g.index]))
}

// FilledOrders returns the orders filled so far, in fill order.
func (g *SimulatedGateway) FilledOrders() []exchange.OpenOrder {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]exchange.OpenOrder(nil), g.filled...)
}

func (g *SimulatedGateway) GetMarketOrders(ctx context.Context, marketID string) (*exchange.OrderBook, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.injectedFailure("GetMarketOrders"); err != nil {
		return nil, err
	}

	price := g.prices[g.index]
	return &exchange.OrderBook{
		MarketID: marketID,
		BuyOrders: []exchange.MarketOrder{
			{Side: exchange.Buy, Price: price.Mul(one.Sub(spread)), Quantity: one},
		},
		SellOrders: []exchange.MarketOrder{
			{Side: exchange.Sell, Price: price.Mul(one.Add(spread)), Quantity: one},
		},
	}, nil
}

func (g *SimulatedGateway) GetLatestMarketPrice(ctx context.Context, marketID string) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.injectedFailure("GetLatestMarketPrice"); err != nil {
		return decimal.Zero, err
	}
	return g.prices[g.index], nil
}

func (g *SimulatedGateway) GetBalanceInfo(ctx context.Context) (*exchange.BalanceInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.injectedFailure("GetBalanceInfo"); err != nil {
		return nil, err
	}

	available := make(map[string]decimal.Decimal, len(g.balances))
	for currency, amount := range g.balances {
		available[currency] = amount
	}
	return &exchange.BalanceInfo{Available: available, OnHold: map[string]decimal.Decimal{}}, nil
}

func (g *SimulatedGateway) CreateOrder(ctx context.Context, marketID string, side exchange.OrderSide, quantity, price decimal.Decimal) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.injectedFailure("CreateOrder"); err != nil {
		return "", err
	}
	if quantity.Sign() <= 0 || price.Sign() <= 0 {
		return "", exchange.NewFatalError("CreateOrder",
			fmt.Errorf("rejected %s order: quantity %s price %s", side, quantity, price))
	}

	g.nextID++
	id := strconv.FormatInt(g.nextID, 10)
	g.open = append(g.open, exchange.OpenOrder{
		ID:        id,
		MarketID:  marketID,
		Side:      side,
		Price:     price,
		Quantity:  quantity,
		CreatedAt: time.Now(),
	})
	return id, nil
}

func (g *SimulatedGateway) GetOpenOrders(ctx context.Context, marketID string) ([]exchange.OpenOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.injectedFailure("GetOpenOrders"); err != nil {
		return nil, err
	}

	var orders []exchange.OpenOrder
	for _, o := range g.open {
		if o.MarketID == marketID {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func (g *SimulatedGateway) RoundValue(value decimal.Decimal) decimal.Decimal {
	return value.Round(8)
}
