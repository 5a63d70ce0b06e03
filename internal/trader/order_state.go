package trader

import (
	"fmt"

	"cycle-trade-bot-go/internal/exchange"
	"github.com/shopspring/decimal"
)

// OrderState is an order this process sent and still tracks.
type OrderState struct {
	ID     string
	Side   exchange.OrderSide
	Price  decimal.Decimal
	Amount decimal.Decimal // base currency
}

func (o *OrderState) String() string {
	return fmt.Sprintf("%s order %s: %s @ %s", o.Side, o.ID, o.Amount, FormatPrice(o.Price))
}

// OrderStack is a last-in first-out sequence of orders.
// Orders never move once pushed; only the top can be removed.
type OrderStack struct {
	orders []*OrderState
}

func (s *OrderStack) Push(o *OrderState) {
	s.orders = append(s.orders, o)
}

// Peek returns the most recently pushed order.
func (s *OrderStack) Peek() (*OrderState, bool) {
	if len(s.orders) == 0 {
		return nil, false
	}
	return s.orders[len(s.orders)-1], true
}

// Pop removes and returns the most recently pushed order.
func (s *OrderStack) Pop() (*OrderState, bool) {
	top, ok := s.Peek()
	if !ok {
		return nil, false
	}
	s.orders[len(s.orders)-1] = nil
	s.orders = s.orders[:len(s.orders)-1]
	return top, true
}

func (s *OrderStack) Len() int {
	return len(s.orders)
}

func (s *OrderStack) IsEmpty() bool {
	return len(s.orders) == 0
}

// Prices lists the order prices from bottom to top.
func (s *OrderStack) Prices() []string {
	prices := make([]string, len(s.orders))
	for i, o := range s.orders {
		prices[i] = FormatPrice(o.Price)
	}
	return prices
}
