package database

import (
	"context"
	"testing"
	"time"

	"cycle-trade-bot-go/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepository(t *testing.T) *TransactionRepository {
	db, err := NewDatabase("file::memory:")
	require.NoError(t, err)
	return NewTransactionRepository(db)
}

func TestTransactionRepository_AppendAndFindByMarket(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	sent := models.NewTransaction("1", "BUY", models.StatusSent, "BTC/USD",
		decimal.RequireFromString("0.01375502"), decimal.RequireFromString("1453.014"), "scalper", "Binance")
	filled := models.NewTransaction("1", "BUY", models.StatusFilled, "BTC/USD",
		decimal.RequireFromString("0.01375502"), decimal.RequireFromString("1453.014"), "scalper", "Binance")
	filled.Timestamp = sent.Timestamp.Add(time.Minute)
	other := models.NewTransaction("2", "SELL", models.StatusSent, "ETH/USD",
		decimal.RequireFromString("2"), decimal.RequireFromString("3000"), "rebalancer", "Binance")

	for _, tx := range []*models.Transaction{sent, filled, other} {
		saved, err := repo.Append(ctx, tx)
		require.NoError(t, err)
		assert.NotZero(t, saved.ID)
	}

	txs, err := repo.FindByMarket(ctx, "BTC/USD")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.True(t, sent.Equal(&txs[0]))
	assert.True(t, filled.Equal(&txs[1]))
	// Decimal values survive the round trip exactly.
	assert.Equal(t, "19.98623663028", txs[0].Value.String())
}

func TestTransactionRepository_FindAllAndByOrderID(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	now := time.Now()
	for i, id := range []string{"a", "b", "a"} {
		tx := models.NewTransaction(id, "BUY", models.StatusSent, "BTC/USD",
			decimal.NewFromInt(1), decimal.NewFromInt(int64(100+i)), "scalper", "Binance")
		tx.Timestamp = now.Add(time.Duration(i) * time.Second)
		_, err := repo.Append(ctx, tx)
		require.NoError(t, err)
	}

	all, err := repo.FindAll(ctx, 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Price.Equal(decimal.NewFromInt(102)), "most recent first")

	byOrder, err := repo.FindByOrderID(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, byOrder, 2)
}

func TestTransactionRepository_UnknownMarket(t *testing.T) {
	repo := setupRepository(t)

	txs, err := repo.FindByMarket(context.Background(), "DOGE/USD")
	assert.NoError(t, err)
	assert.Empty(t, txs)
}
