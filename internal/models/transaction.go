package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle step a transaction record captures.
type TransactionStatus string

const (
	StatusSent   TransactionStatus = "SENT"
	StatusFilled TransactionStatus = "FILLED"
)

// Transaction is an immutable log entry written when an order is sent and again
// when it is observed filled. Decimal columns are stored as text so sqlite keeps
// the exact values.
type Transaction struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	OrderID     string            `gorm:"index;not null" json:"order_id"`
	Side        string            `gorm:"not null" json:"side"` // "BUY" or "SELL"
	Status      TransactionStatus `gorm:"not null" json:"status"`
	Market      string            `gorm:"index;not null" json:"market"`
	Amount      decimal.Decimal   `gorm:"type:text;not null" json:"amount"`
	Price       decimal.Decimal   `gorm:"type:text;not null" json:"price"`
	Value       decimal.Decimal   `gorm:"type:text;not null" json:"value"`
	Strategy    string            `gorm:"not null" json:"strategy"`
	ExchangeAPI string            `gorm:"not null" json:"exchange_api"`
	Timestamp   time.Time         `gorm:"index;not null" json:"timestamp"`
}

// NewTransaction builds a record stamped with the current time.
// Value is price * amount.
func NewTransaction(orderID, side string, status TransactionStatus, market string,
	amount, price decimal.Decimal, strategy, exchangeAPI string) *Transaction {
	return &Transaction{
		OrderID:     orderID,
		Side:        side,
		Status:      status,
		Market:      market,
		Amount:      amount,
		Price:       price,
		Value:       price.Mul(amount),
		Strategy:    strategy,
		ExchangeAPI: exchangeAPI,
		Timestamp:   time.Now(),
	}
}

// Equal compares two records on everything but the row id and timestamp.
func (t *Transaction) Equal(other *Transaction) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.OrderID == other.OrderID &&
		t.Side == other.Side &&
		t.Status == other.Status &&
		t.Market == other.Market &&
		t.Amount.Equal(other.Amount) &&
		t.Price.Equal(other.Price) &&
		t.Strategy == other.Strategy &&
		t.ExchangeAPI == other.ExchangeAPI
}
