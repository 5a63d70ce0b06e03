package trader

import (
	"context"
	"errors"
	"testing"

	"cycle-trade-bot-go/internal/database"
	"cycle-trade-bot-go/internal/exchange"
	"cycle-trade-bot-go/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockGateway is a mock implementation of exchange.Gateway.
// RoundValue is not mocked: it rounds to places digits.
type MockGateway struct {
	mock.Mock
	places int32
}

func newMockGateway() *MockGateway {
	return &MockGateway{places: 8}
}

func (m *MockGateway) Name() string {
	return "MockExchange"
}

func (m *MockGateway) GetMarketOrders(ctx context.Context, marketID string) (*exchange.OrderBook, error) {
	args := m.Called(marketID)
	book, _ := args.Get(0).(*exchange.OrderBook)
	return book, args.Error(1)
}

func (m *MockGateway) GetLatestMarketPrice(ctx context.Context, marketID string) (decimal.Decimal, error) {
	args := m.Called(marketID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockGateway) GetBalanceInfo(ctx context.Context) (*exchange.BalanceInfo, error) {
	args := m.Called()
	info, _ := args.Get(0).(*exchange.BalanceInfo)
	return info, args.Error(1)
}

func (m *MockGateway) CreateOrder(ctx context.Context, marketID string, side exchange.OrderSide, quantity, price decimal.Decimal) (string, error) {
	args := m.Called(marketID, side, quantity, price)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) GetOpenOrders(ctx context.Context, marketID string) ([]exchange.OpenOrder, error) {
	args := m.Called(marketID)
	orders, _ := args.Get(0).([]exchange.OpenOrder)
	return orders, args.Error(1)
}

func (m *MockGateway) RoundValue(value decimal.Decimal) decimal.Decimal {
	return value.Round(m.places)
}

var testMarket = Market{ID: "BTCUSD", Name: "BTC/USD", BaseCurrency: "BTC", CounterCurrency: "USD"}

var (
	errNetwork = exchange.NewTransientError("test", errors.New("connection reset"))
	errAPI     = exchange.NewFatalError("test", errors.New("order rejected"))
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// decEq matches a decimal argument by value, ignoring its scale.
func decEq(s string) interface{} {
	want := dec(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

func book(bid, ask string) *exchange.OrderBook {
	return &exchange.OrderBook{
		MarketID:   testMarket.ID,
		BuyOrders:  []exchange.MarketOrder{{Side: exchange.Buy, Price: dec(bid), Quantity: dec("1")}},
		SellOrders: []exchange.MarketOrder{{Side: exchange.Sell, Price: dec(ask), Quantity: dec("1")}},
	}
}

func openOrders(ids ...string) []exchange.OpenOrder {
	orders := make([]exchange.OpenOrder, 0, len(ids))
	for _, id := range ids {
		orders = append(orders, exchange.OpenOrder{ID: id, MarketID: testMarket.ID})
	}
	return orders
}

func balances(base, counter string) *exchange.BalanceInfo {
	return &exchange.BalanceInfo{Available: map[string]decimal.Decimal{
		"BTC": dec(base),
		"USD": dec(counter),
	}}
}

// setupStrategy initializes strategy against gw with a fresh in-memory transaction log.
func setupStrategy(t *testing.T, strategy Strategy, gw exchange.Gateway, items map[string]string) *database.TransactionRepository {
	db, err := database.NewDatabase("file::memory:")
	require.NoError(t, err)
	repo := database.NewTransactionRepository(db)

	err = strategy.Initialize(StrategyContext{
		Logger:       zap.NewNop(),
		Trading:      NewTradingContext(gw, testMarket),
		Transactions: repo,
		StrategyID:   "test-strategy",
		Config:       NewConfigItems("test-strategy", items),
	})
	require.NoError(t, err)
	return repo
}

func transactions(t *testing.T, repo TransactionLog) []models.Transaction {
	txs, err := repo.FindByMarket(context.Background(), testMarket.Name)
	require.NoError(t, err)
	return txs
}

// failingLog is a TransactionLog whose appends always fail.
type failingLog struct{}

func (failingLog) Append(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	return nil, errors.New("disk full")
}

func (failingLog) FindByMarket(ctx context.Context, market string) ([]models.Transaction, error) {
	return nil, nil
}
