package trader

import (
	"context"
	"strings"

	"cycle-trade-bot-go/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var two = decimal.NewFromInt(2)

// MultiOrderStrategy keeps several buy and sell orders open at once. Filled
// buys are resold at a markup, filled sells are bought back, dips below the
// last order price add buys and new highs add sells.
type MultiOrderStrategy struct {
	strategyBase
	cfg MultiOrderConfig

	buyOrders       OrderStack
	sellOrders      OrderStack
	lastOrder       *OrderState
	latestHighPrice decimal.Decimal
}

func (s *MultiOrderStrategy) Name() string {
	return MultiOrderStrategyName
}

func (s *MultiOrderStrategy) Initialize(sc StrategyContext) error {
	err := s.init(sc, func(items ConfigItems) (err error) {
		s.cfg, err = ParseMultiOrderConfig(items)
		return err
	})
	if err != nil {
		return err
	}
	s.log.Info("Strategy initialized",
		zap.Int("max_concurrent_orders", s.cfg.MaxConcurrentSellOrders),
		zap.String("buy_order_amount", s.cfg.CounterCurrencyBuyOrderAmount.String()),
		zap.String("threshold", s.cfg.PercentChangeThreshold.String()))
	return nil
}

// OpenOrderCounts returns how many buy and sell orders are tracked as open.
func (s *MultiOrderStrategy) OpenOrderCounts() (buys, sells int) {
	return s.buyOrders.Len(), s.sellOrders.Len()
}

// LatestHighPrice returns the highest ask a sell was placed at, or the first ask seen.
func (s *MultiOrderStrategy) LatestHighPrice() decimal.Decimal {
	return s.latestHighPrice
}

func (s *MultiOrderStrategy) Execute(ctx context.Context) error {
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

	if s.lastOrder == nil {
		s.latestHighPrice = ask
		s.log.Info("First trade cycle, placing initial buy order", zap.String("price", FormatPrice(bid)))
		return s.handleGatewayError("send initial buy order", s.sendBuy(ctx, bid))
	}

	steps := []struct {
		op  string
		run func() error
	}{
		{"resell filled buy order", func() error { return s.sellIfBuyFilled(ctx) }},
		{"rebuy filled sell order", func() error { return s.buyIfSellFilled(ctx, ask) }},
		{"buy on dip", func() error { return s.buyIfSufficientlyLow(ctx, bid) }},
		{"sell on new high", func() error { return s.sellIfNewHigh(ctx, ask) }},
	}
	for _, step := range steps {
		if err := s.handleGatewayError(step.op, step.run()); err != nil {
			return err
		}
	}
	return nil
}

func (s *MultiOrderStrategy) onePlusThreshold() decimal.Decimal {
	return decimal.NewFromInt(1).Add(s.cfg.PercentChangeThreshold)
}

func (s *MultiOrderStrategy) sellIfBuyFilled(ctx context.Context) error {
	top, ok := s.buyOrders.Peek()
	if !ok {
		return nil
	}
	open, err := s.sc.Trading.IsOrderOpen(ctx, top.ID)
	if err != nil || open {
		return err
	}

	s.buyOrders.Pop()
	s.lastOrder = top
	s.log.Info("Buy order filled", zap.String("order", top.String()))
	s.record(ctx, top, models.StatusFilled)

	askPrice := s.sc.Trading.RoundValue(top.Price.Mul(s.onePlusThreshold()))
	if s.sellOrders.Len() >= s.cfg.MaxConcurrentSellOrders {
		s.log.Warn("Sell order capacity reached, not reselling filled buy",
			zap.Int("open_sell_orders", s.sellOrders.Len()))
		return nil
	}
	_, err = s.sendSell(ctx, top.Amount, askPrice)
	return err
}

func (s *MultiOrderStrategy) buyIfSellFilled(ctx context.Context, ask decimal.Decimal) error {
	top, ok := s.sellOrders.Peek()
	if !ok {
		return nil
	}
	open, err := s.sc.Trading.IsOrderOpen(ctx, top.ID)
	if err != nil {
		return err
	}
	if open {
		l := s.log.With(zap.String("ask", FormatPrice(ask)),
			zap.String("sell_order_prices", strings.Join(s.sellOrders.Prices(), ", ")))
		if ask.LessThanOrEqual(top.Price) {
			l.Info("Current ask is lower than last sell order price, holding")
		} else {
			l.Error("Current ask is higher than last sell order price but the order is still open")
		}
		return nil
	}

	s.sellOrders.Pop()
	s.lastOrder = top
	s.log.Info("Sell order filled", zap.String("order", top.String()))
	s.record(ctx, top, models.StatusFilled)

	buyPrice := top.Price.Mul(s.onePlusThreshold())
	if s.buyOrders.Len() >= s.cfg.MaxConcurrentSellOrders {
		s.log.Warn("Buy order capacity reached, not buying back filled sell",
			zap.Int("open_buy_orders", s.buyOrders.Len()))
		return nil
	}
	return s.sendBuy(ctx, buyPrice)
}

// buyIfSufficientlyLow buys at the bid once it falls below the last order's
// price by the threshold. The buy is skipped while either stack is full:
// a filled buy is resold onto the sell stack, so both must stay within
// max-concurrent-sell-orders. sellIfNewHigh applies the same bound to sells.
func (s *MultiOrderStrategy) buyIfSufficientlyLow(ctx context.Context, bid decimal.Decimal) error {
	one := decimal.NewFromInt(1)
	floor := s.lastOrder.Price.Mul(one.Sub(s.cfg.PercentChangeThreshold))
	if !bid.LessThan(floor) {
		return nil
	}
	limit := s.cfg.MaxConcurrentSellOrders
	if s.sellOrders.Len() >= limit || s.buyOrders.Len() >= limit {
		s.log.Debug("Price dipped but order capacity is used up",
			zap.Int("open_buy_orders", s.buyOrders.Len()),
			zap.Int("open_sell_orders", s.sellOrders.Len()))
		return nil
	}
	s.log.Info("Price dipped below threshold, placing buy order", zap.String("price", FormatPrice(bid)))
	return s.sendBuy(ctx, bid)
}

func (s *MultiOrderStrategy) sellIfNewHigh(ctx context.Context, ask decimal.Decimal) error {
	if !ask.GreaterThan(s.latestHighPrice.Mul(s.onePlusThreshold())) {
		return nil
	}
	if s.sellOrders.Len() >= s.cfg.MaxConcurrentSellOrders {
		s.log.Debug("Price reached a new high but sell order capacity is used up",
			zap.Int("open_sell_orders", s.sellOrders.Len()))
		return nil
	}

	amount, err := s.sc.Trading.AmountOfBaseCurrency(ctx, s.cfg.CounterCurrencyBuyOrderAmount)
	if err != nil {
		return err
	}
	balance, err := s.sc.Trading.BaseCurrencyBalance(ctx)
	if err != nil {
		return err
	}
	// Keep enough base currency back to cover the resells of future buys.
	if !balance.GreaterThan(amount.Mul(two)) {
		s.log.Debug("Price reached a new high but base currency balance is too low",
			zap.String("balance", balance.String()), zap.String("amount", amount.String()))
		return nil
	}

	s.log.Info("Price reached a new high, placing sell order", zap.String("price", FormatPrice(ask)))
	order, err := s.sendSell(ctx, amount, ask)
	if err != nil {
		return err
	}
	s.latestHighPrice = ask
	s.lastOrder = order
	return nil
}

func (s *MultiOrderStrategy) sendBuy(ctx context.Context, price decimal.Decimal) error {
	amount, err := s.sc.Trading.AmountOfBaseCurrency(ctx, s.cfg.CounterCurrencyBuyOrderAmount)
	if err != nil {
		return err
	}
	order, err := s.sc.Trading.SendBuyOrder(ctx, amount, price)
	if err != nil {
		return err
	}
	s.buyOrders.Push(order)
	s.lastOrder = order
	s.record(ctx, order, models.StatusSent)
	s.log.Info("Sent buy order", zap.String("order", order.String()))
	return nil
}

func (s *MultiOrderStrategy) sendSell(ctx context.Context, amount, price decimal.Decimal) (*OrderState, error) {
	order, err := s.sc.Trading.SendSellOrder(ctx, amount, price)
	if err != nil {
		return nil, err
	}
	s.sellOrders.Push(order)
	s.record(ctx, order, models.StatusSent)
	s.log.Info("Sent sell order", zap.String("order", order.String()))
	return order, nil
}
