package database

import (
	"context"
	"fmt"

	"cycle-trade-bot-go/internal/models"
	"gorm.io/gorm"
)

// TransactionRepository stores transaction records in the database.
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a repository on top of db.
func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Append inserts the record and returns it with its row id set.
func (r *TransactionRepository) Append(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return nil, fmt.Errorf("failed to save transaction for order %s: %w", tx.OrderID, err)
	}
	return tx, nil
}

// FindByMarket returns every record for the market, oldest first.
func (r *TransactionRepository) FindByMarket(ctx context.Context, market string) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("market = ?", market).
		Order("timestamp asc, id asc").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find transactions for market %s: %w", market, err)
	}
	return txs, nil
}

// FindAll returns up to limit records, most recent first. A limit <= 0 means no limit.
func (r *TransactionRepository) FindAll(ctx context.Context, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	q := r.db.WithContext(ctx).Order("timestamp desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to find transactions: %w", err)
	}
	return txs, nil
}

// FindByOrderID returns the records written for one exchange order.
func (r *TransactionRepository) FindByOrderID(ctx context.Context, orderID string) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find transactions for order %s: %w", orderID, err)
	}
	return txs, nil
}
