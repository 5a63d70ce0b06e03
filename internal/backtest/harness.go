package backtest

import (
	"context"
	"fmt"

	"cycle-trade-bot-go/internal/models"
	"cycle-trade-bot-go/internal/trader"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SimulatedExchangeName is reported as the exchange on backtest transactions.
const SimulatedExchangeName = "Simulated"

// Market is the single market traded in a backtest.
var Market = trader.Market{
	ID:              "BTCUSD",
	Name:            "BTC/USD",
	BaseCurrency:    BaseCurrency,
	CounterCurrency: CounterCurrency,
}

// Result is the outcome of running one strategy over one scenario.
type Result struct {
	Scenario     string
	Strategy     string
	Cycles       int
	FinalValue   decimal.Decimal
	Transactions []models.Transaction
}

// CycleHook is called after every executed cycle.
type CycleHook func(cycle int, s trader.Strategy, gw *SimulatedGateway)

type options struct {
	logger *zap.Logger
	hook   CycleHook
	setup  func(gw *SimulatedGateway)
}

// Option configures Run.
type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithCycleHook(h CycleHook) Option {
	return func(o *options) { o.hook = h }
}

// WithGatewaySetup runs f on the gateway before the strategy is initialized.
func WithGatewaySetup(f func(gw *SimulatedGateway)) Option {
	return func(o *options) { o.setup = f }
}

// Run drives a fresh strategy of the given type over the scenario. Each cycle
// advances the price, which fills crossed orders, and then executes the
// strategy once. A strategy error stops the run; the partial result is
// returned with it.
func Run(ctx context.Context, strategyType string, items map[string]string, scenario Scenario, opts ...Option) (*Result, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	gw, err := NewSimulatedGateway(SimulatedExchangeName, scenario.Prices)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	if o.setup != nil {
		o.setup(gw)
	}

	strategy, err := trader.NewStrategy(strategyType)
	if err != nil {
		return nil, err
	}

	txLog := NewMemoryLog()
	strategyID := "backtest-" + strategyType
	err = strategy.Initialize(trader.StrategyContext{
		Logger:       o.logger.With(zap.String("scenario", scenario.Name)),
		Trading:      trader.NewTradingContext(gw, Market),
		Transactions: txLog,
		StrategyID:   strategyID,
		Config:       trader.NewConfigItems(strategyID, items),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s: %w", strategyType, err)
	}

	result := &Result{Scenario: scenario.Name, Strategy: strategyType}
	finish := func() *Result {
		result.FinalValue = gw.Value()
		result.Transactions = txLog.All()
		return result
	}

	for gw.Advance() {
		if err := ctx.Err(); err != nil {
			return finish(), err
		}
		if err := strategy.Execute(ctx); err != nil {
			return finish(), err
		}
		result.Cycles++
		if o.hook != nil {
			o.hook(result.Cycles, strategy, gw)
		}
	}

	return finish(), nil
}

// RunAll runs the strategy over every scenario and stops at the first error.
func RunAll(ctx context.Context, strategyType string, items map[string]string, scenarios []Scenario, opts ...Option) ([]*Result, error) {
	results := make([]*Result, 0, len(scenarios))
	for _, sc := range scenarios {
		r, err := Run(ctx, strategyType, items, sc, opts...)
		if err != nil {
			return results, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		results = append(results, r)
	}
	return results, nil
}
