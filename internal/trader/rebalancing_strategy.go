package trader

import (
	"context"
	"sort"

	"cycle-trade-bot-go/internal/exchange"
	"cycle-trade-bot-go/internal/models"
	"go.uber.org/zap"
)

// RebalancingStrategy keeps the counter currency balance close to the value of
// the base currency holdings. When they drift apart by more than the threshold
// it places one order for half the difference.
type RebalancingStrategy struct {
	strategyBase
	cfg        RebalancingConfig
	openOrders map[string]*OrderState
}

func (s *RebalancingStrategy) Name() string {
	return RebalancingStrategyName
}

func (s *RebalancingStrategy) Initialize(sc StrategyContext) error {
	err := s.init(sc, func(items ConfigItems) (err error) {
		s.cfg, err = ParseRebalancingConfig(items)
		return err
	})
	if err != nil {
		return err
	}
	s.openOrders = make(map[string]*OrderState)
	s.log.Info("Strategy initialized", zap.String("threshold", s.cfg.CounterCurrencyThreshold.String()))
	return nil
}

// OpenOrderIDs returns the ids of the tracked orders, sorted.
func (s *RebalancingStrategy) OpenOrderIDs() []string {
	ids := make([]string, 0, len(s.openOrders))
	for id := range s.openOrders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// OpenOrderCounts counts the tracked orders by side.
func (s *RebalancingStrategy) OpenOrderCounts() (buys, sells int) {
	for _, o := range s.openOrders {
		if o.Side == exchange.Buy {
			buys++
		} else {
			sells++
		}
	}
	return buys, sells
}

func (s *RebalancingStrategy) Execute(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}

	bid, ask, ok, err := s.bestPrices(ctx)
	if err != nil {
		return s.handleGatewayError("get market orders", err)
	}
	if !ok {
		return nil
	}

	balances, err := s.sc.Trading.AvailableBalances(ctx)
	if err != nil {
		return s.handleGatewayError("get balances", err)
	}
	baseBalance := balances[s.sc.Trading.BaseCurrency()]
	counterBalance := balances[s.sc.Trading.CounterCurrency()]

	baseValue, err := s.sc.Trading.CounterValueOfBase(ctx, baseBalance)
	if err != nil {
		return s.handleGatewayError("value base currency", err)
	}

	if err := s.reportFilledOrders(ctx); err != nil {
		return s.handleGatewayError("reconcile open orders", err)
	}

	threshold := s.cfg.CounterCurrencyThreshold
	l := s.log.With(zap.String("base_value", baseValue.String()), zap.String("counter_balance", counterBalance.String()))

	switch {
	case counterBalance.LessThan(baseValue.Sub(threshold)):
		amount := s.sc.Trading.RoundValue(baseValue.Sub(counterBalance).Div(two.Mul(ask)))
		l.Info("Counter currency below base value, selling base currency", zap.String("amount", amount.String()))
		return s.handleGatewayError("send rebalancing sell order", s.send(ctx, func() (*OrderState, error) {
			return s.sc.Trading.SendSellOrder(ctx, amount, ask)
		}))
	case counterBalance.GreaterThan(baseValue.Add(threshold)):
		spend := counterBalance.Sub(baseValue).Div(two)
		l.Info("Counter currency above base value, buying base currency", zap.String("spend", spend.String()))
		return s.handleGatewayError("send rebalancing buy order", s.send(ctx, func() (*OrderState, error) {
			amount, err := s.sc.Trading.AmountOfBaseCurrency(ctx, spend)
			if err != nil {
				return nil, err
			}
			return s.sc.Trading.SendBuyOrder(ctx, amount, bid)
		}))
	default:
		l.Debug("Balances within threshold, nothing to do")
		return nil
	}
}

func (s *RebalancingStrategy) reportFilledOrders(ctx context.Context) error {
	if len(s.openOrders) == 0 {
		return nil
	}
	filled, err := s.sc.Trading.FindFilledOrderIDs(ctx, s.OpenOrderIDs())
	if err != nil {
		return err
	}
	for _, id := range filled {
		order := s.openOrders[id]
		delete(s.openOrders, id)
		s.log.Info("Order filled", zap.String("order", order.String()),
			zap.String("value", order.Price.Mul(order.Amount).String()))
		s.record(ctx, order, models.StatusFilled)
	}
	return nil
}

func (s *RebalancingStrategy) send(ctx context.Context, place func() (*OrderState, error)) error {
	order, err := place()
	if err != nil {
		return err
	}
	s.openOrders[order.ID] = order
	s.record(ctx, order, models.StatusSent)
	s.log.Info("Sent order", zap.String("order", order.String()))
	return nil
}

