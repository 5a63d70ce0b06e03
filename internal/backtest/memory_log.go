package backtest

import (
	"context"
	"sync"

	"cycle-trade-bot-go/internal/models"
)

// MemoryLog is an in-memory transaction log.
type MemoryLog struct {
	mu     sync.Mutex
	nextID uint
	txs    []models.Transaction
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (l *MemoryLog) Append(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	tx.ID = l.nextID
	l.txs = append(l.txs, *tx)
	return tx, nil
}

func (l *MemoryLog) FindByMarket(ctx context.Context, market string) ([]models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var txs []models.Transaction
	for _, tx := range l.txs {
		if tx.Market == market {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

// All returns every record in append order.
func (l *MemoryLog) All() []models.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Transaction(nil), l.txs...)
}
