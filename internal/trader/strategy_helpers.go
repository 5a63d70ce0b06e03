package trader

import (
	"context"

	"cycle-trade-bot-go/internal/exchange"
	"cycle-trade-bot-go/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FormatPrice renders a price with at most 8 fractional digits.
func FormatPrice(d decimal.Decimal) string {
	return d.Round(8).String()
}

// bestPrices fetches the order book and returns the best bid and ask.
// ok is false when either side is empty, which usually means the market is closed.
func (b *strategyBase) bestPrices(ctx context.Context) (bid, ask decimal.Decimal, ok bool, err error) {
	book, err := b.sc.Trading.OrderBook(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, false, err
	}
	if len(book.BuyOrders) == 0 || len(book.SellOrders) == 0 {
		b.log.Warn("Exchange returned an empty order book side, ignoring this trade cycle",
			zap.Int("buy_orders", len(book.BuyOrders)),
			zap.Int("sell_orders", len(book.SellOrders)))
		return decimal.Zero, decimal.Zero, false, nil
	}
	bid, ask = book.BuyOrders[0].Price, book.SellOrders[0].Price
	b.log.Info("Current prices", zap.String("bid", FormatPrice(bid)), zap.String("ask", FormatPrice(ask)))
	return bid, ask, true, nil
}

// record appends a transaction for the order. A failed append is only logged:
// the order is already on the exchange and the cycle must carry on.
func (b *strategyBase) record(ctx context.Context, order *OrderState, status models.TransactionStatus) {
	tx := models.NewTransaction(order.ID, string(order.Side), status, b.sc.Trading.MarketName(),
		order.Amount, order.Price, b.sc.StrategyID, b.sc.Trading.ExchangeName())
	if _, err := b.sc.Transactions.Append(ctx, tx); err != nil {
		b.log.Error("Failed to save transaction", zap.String("order_id", order.ID),
			zap.String("status", string(status)), zap.Error(err))
	}
}

// handleGatewayError swallows transient errors and wraps everything else into a
// *StrategyError that stops the bot.
func (b *strategyBase) handleGatewayError(op string, err error) error {
	if err == nil {
		return nil
	}
	if exchange.IsTransient(err) {
		b.log.Warn("Exchange call failed transiently, waiting until next trade cycle",
			zap.String("op", op), zap.Error(err))
		return nil
	}
	b.log.Error("Exchange call failed, telling the engine to stop the bot",
		zap.String("op", op), zap.Error(err))
	return &StrategyError{
		StrategyID: b.sc.StrategyID,
		Market:     b.sc.Trading.MarketName(),
		Op:         op,
		Err:        err,
	}
}
