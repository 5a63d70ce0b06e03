package backtest

import (
	"context"
	"errors"
	"testing"

	"cycle-trade-bot-go/internal/exchange"
	"cycle-trade-bot-go/internal/models"
	"cycle-trade-bot-go/internal/trader"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	scalpingItems = map[string]string{
		trader.KeyCounterCurrencyBuyOrderAmount: "20",
		trader.KeyMinimumPercentageGain:         "2",
	}
	multiOrderItems = map[string]string{
		trader.KeyCounterCurrencyBuyOrderAmount: "20",
		trader.KeyMaxConcurrentSellOrders:       "3",
		trader.KeyPercentChangeThreshold:        "2",
	}
	rebalancingItems = map[string]string{
		trader.KeyCounterCurrencyThreshold: "20",
	}
)

func TestRun_AllStrategiesAllScenarios(t *testing.T) {
	strategies := map[string]map[string]string{
		trader.ScalpingStrategyName:    scalpingItems,
		trader.MultiOrderStrategyName:  multiOrderItems,
		trader.RebalancingStrategyName: rebalancingItems,
	}
	for name, items := range strategies {
		t.Run(name, func(t *testing.T) {
			results, err := RunAll(context.Background(), name, items, DefaultScenarios())
			require.NoError(t, err)
			require.Len(t, results, 11)
			for _, r := range results {
				assert.Equal(t, len(mustScenario(t, r.Scenario).Prices)-1, r.Cycles, r.Scenario)
				assert.True(t, r.FinalValue.IsPositive(), r.Scenario)
			}
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	sc := mustScenario(t, "randomWalk")

	first, err := Run(context.Background(), trader.MultiOrderStrategyName, multiOrderItems, sc)
	require.NoError(t, err)
	second, err := Run(context.Background(), trader.MultiOrderStrategyName, multiOrderItems, sc)
	require.NoError(t, err)

	assert.True(t, first.FinalValue.Equal(second.FinalValue))
	require.Len(t, second.Transactions, len(first.Transactions))
	for i := range first.Transactions {
		assert.True(t, first.Transactions[i].Equal(&second.Transactions[i]), "transaction %d", i)
	}
}

func TestRun_FinalValueMatchesGateway(t *testing.T) {
	var gateway *SimulatedGateway
	r, err := Run(context.Background(), trader.RebalancingStrategyName, rebalancingItems, mustScenario(t, "volatileIncreasing"),
		WithGatewaySetup(func(gw *SimulatedGateway) { gateway = gw }))
	require.NoError(t, err)

	info, err := gateway.GetBalanceInfo(context.Background())
	require.NoError(t, err)
	last := gateway.Price()
	want := info.Available[CounterCurrency].Add(info.Available[BaseCurrency].Mul(last))
	assert.True(t, want.Equal(r.FinalValue), "want %s got %s", want, r.FinalValue)
}

func TestRun_MultiOrderStacksStayWithinLimit(t *testing.T) {
	for _, sc := range DefaultScenarios() {
		t.Run(sc.Name, func(t *testing.T) {
			_, err := Run(context.Background(), trader.MultiOrderStrategyName, multiOrderItems, sc,
				WithCycleHook(func(cycle int, s trader.Strategy, gw *SimulatedGateway) {
					buys, sells := s.(*trader.MultiOrderStrategy).OpenOrderCounts()
					assert.LessOrEqual(t, buys, 3, "cycle %d", cycle)
					assert.LessOrEqual(t, sells, 3, "cycle %d", cycle)
				}))
			require.NoError(t, err)
		})
	}
}

func TestRun_ScalperAlternatesSides(t *testing.T) {
	for _, sc := range DefaultScenarios() {
		t.Run(sc.Name, func(t *testing.T) {
			var gateway *SimulatedGateway
			r, err := Run(context.Background(), trader.ScalpingStrategyName, scalpingItems, sc,
				WithGatewaySetup(func(gw *SimulatedGateway) { gateway = gw }),
				WithCycleHook(func(cycle int, s trader.Strategy, gw *SimulatedGateway) {
					buys, sells := s.(*trader.ScalpingStrategy).OpenOrderCounts()
					assert.LessOrEqual(t, buys+sells, 1, "cycle %d", cycle)
				}))
			require.NoError(t, err)

			want := exchange.Buy
			for i, o := range gateway.FilledOrders() {
				require.Equal(t, want, o.Side, "fill %d", i)
				if want == exchange.Buy {
					want = exchange.Sell
				} else {
					want = exchange.Buy
				}
			}

			sent := 0
			for _, tx := range r.Transactions {
				if tx.Status == models.StatusSent {
					sent++
				}
			}
			assert.Positive(t, sent)
		})
	}
}

func TestRun_TransientFailureIsSkipped(t *testing.T) {
	r, err := Run(context.Background(), trader.ScalpingStrategyName, scalpingItems, mustScenario(t, "flat"),
		WithGatewaySetup(func(gw *SimulatedGateway) { gw.FailNext(exchange.KindTransient) }))
	require.NoError(t, err)
	assert.Equal(t, DefaultPoints-1, r.Cycles)
	require.NotEmpty(t, r.Transactions)
	assert.Equal(t, string(exchange.Buy), r.Transactions[0].Side)
}

func TestRun_FatalFailureStops(t *testing.T) {
	r, err := Run(context.Background(), trader.ScalpingStrategyName, scalpingItems, mustScenario(t, "flat"),
		WithGatewaySetup(func(gw *SimulatedGateway) { gw.FailNext(exchange.KindFatal) }))
	require.Error(t, err)

	var se *trader.StrategyError
	require.True(t, errors.As(err, &se))
	assert.True(t, exchange.IsFatal(err))
	require.NotNil(t, r)
	assert.Zero(t, r.Cycles)
	assert.Empty(t, r.Transactions)
	// Nothing traded: the starting portfolio at the first simulated price.
	sc := mustScenario(t, "flat")
	want := decimal.NewFromInt(500).Add(decimal.RequireFromString("0.02").Mul(sc.Prices[1]))
	assert.True(t, want.Equal(r.FinalValue))
}

func TestRun_InvalidConfig(t *testing.T) {
	_, err := Run(context.Background(), trader.ScalpingStrategyName, map[string]string{}, mustScenario(t, "flat"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, trader.ErrMissingConfigItem))

	_, err = Run(context.Background(), "Grid", nil, mustScenario(t, "flat"))
	assert.ErrorContains(t, err, "unknown strategy type")
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := Run(ctx, trader.RebalancingStrategyName, rebalancingItems, mustScenario(t, "flat"))
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, r)
	assert.Zero(t, r.Cycles)
}

func mustScenario(t *testing.T, name string) Scenario {
	t.Helper()
	sc, ok := ScenarioByName(name)
	require.True(t, ok, name)
	return sc
}
