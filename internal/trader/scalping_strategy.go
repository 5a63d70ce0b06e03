package trader

import (
	"context"

	"cycle-trade-bot-go/internal/exchange"
	"cycle-trade-bot-go/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ScalpingStrategy keeps a single order on the market at a time. It buys at
// the bid, then sells what it bought at a fixed markup, then buys again.
type ScalpingStrategy struct {
	strategyBase
	cfg       ScalpingConfig
	lastOrder *OrderState
	// lastFillRecorded is set once lastOrder's FILLED record is written, so a
	// failed follow-up order does not log the same fill again next cycle.
	lastFillRecorded bool
}

func (s *ScalpingStrategy) Name() string {
	return ScalpingStrategyName
}

func (s *ScalpingStrategy) Initialize(sc StrategyContext) error {
	err := s.init(sc, func(items ConfigItems) (err error) {
		s.cfg, err = ParseScalpingConfig(items)
		return err
	})
	if err != nil {
		return err
	}
	s.log.Info("Strategy initialized",
		zap.String("buy_order_amount", s.cfg.CounterCurrencyBuyOrderAmount.String()),
		zap.String("minimum_gain", s.cfg.MinimumPercentageGain.String()))
	return nil
}

// LastOrder returns the order the strategy is waiting on, nil before the first cycle.
func (s *ScalpingStrategy) LastOrder() *OrderState {
	return s.lastOrder
}

// OpenOrderCounts reports the last order as the one open order.
func (s *ScalpingStrategy) OpenOrderCounts() (buys, sells int) {
	switch {
	case s.lastOrder == nil:
		return 0, 0
	case s.lastOrder.Side == exchange.Buy:
		return 1, 0
	default:
		return 0, 1
	}
}

func (s *ScalpingStrategy) Execute(ctx context.Context) error {
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

	switch {
	case s.lastOrder == nil:
		s.log.Info("First trade cycle, placing initial buy order", zap.String("price", FormatPrice(bid)))
		return s.handleGatewayError("send initial buy order", s.sendBuy(ctx, bid))
	case s.lastOrder.Side == exchange.Buy:
		return s.handleGatewayError("check buy order", s.checkBuyOrder(ctx))
	default:
		return s.handleGatewayError("check sell order", s.checkSellOrder(ctx, bid, ask))
	}
}

func (s *ScalpingStrategy) sendBuy(ctx context.Context, bid decimal.Decimal) error {
	amount, err := s.sc.Trading.AmountOfBaseCurrency(ctx, s.cfg.CounterCurrencyBuyOrderAmount)
	if err != nil {
		return err
	}
	order, err := s.sc.Trading.SendBuyOrder(ctx, amount, bid)
	if err != nil {
		return err
	}
	s.record(ctx, order, models.StatusSent)
	s.setLastOrder(order)
	s.log.Info("Sent buy order", zap.String("order", order.String()))
	return nil
}

func (s *ScalpingStrategy) checkBuyOrder(ctx context.Context) error {
	open, err := s.sc.Trading.IsOrderOpen(ctx, s.lastOrder.ID)
	if err != nil {
		return err
	}
	if open {
		s.log.Info("Buy order still open, holding", zap.String("order", s.lastOrder.String()))
		return nil
	}

	s.recordLastFilled(ctx, "Buy order filled")

	buyPrice := s.lastOrder.Price
	askPrice := buyPrice.Add(buyPrice.Mul(s.cfg.MinimumPercentageGain)).Round(8)

	order, err := s.sc.Trading.SendSellOrder(ctx, s.lastOrder.Amount, askPrice)
	if err != nil {
		return err
	}
	s.record(ctx, order, models.StatusSent)
	s.setLastOrder(order)
	s.log.Info("Sent sell order", zap.String("order", order.String()))
	return nil
}

func (s *ScalpingStrategy) checkSellOrder(ctx context.Context, bid, ask decimal.Decimal) error {
	open, err := s.sc.Trading.IsOrderOpen(ctx, s.lastOrder.ID)
	if err != nil {
		return err
	}
	if open {
		l := s.log.With(zap.String("ask", FormatPrice(ask)), zap.String("order", s.lastOrder.String()))
		switch ask.Cmp(s.lastOrder.Price) {
		case -1:
			l.Info("Current ask is lower than sell order price, holding")
		case 1:
			l.Error("Current ask is higher than sell order price but the order is still open")
		default:
			l.Info("Current ask equals sell order price, holding")
		}
		return nil
	}

	s.recordLastFilled(ctx, "Sell order filled")
	return s.sendBuy(ctx, bid)
}

func (s *ScalpingStrategy) setLastOrder(order *OrderState) {
	s.lastOrder = order
	s.lastFillRecorded = false
}

func (s *ScalpingStrategy) recordLastFilled(ctx context.Context, msg string) {
	if s.lastFillRecorded {
		s.log.Info(msg+", retrying follow-up order", zap.String("order", s.lastOrder.String()))
		return
	}
	s.log.Info(msg, zap.String("order", s.lastOrder.String()))
	s.record(ctx, s.lastOrder, models.StatusFilled)
	s.lastFillRecorded = true
}
