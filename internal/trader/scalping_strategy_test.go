package trader

import (
	"context"
	"errors"
	"testing"

	"cycle-trade-bot-go/internal/exchange"
	"cycle-trade-bot-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func scalpingItems() map[string]string {
	return map[string]string{
		KeyCounterCurrencyBuyOrderAmount: "20",
		KeyMinimumPercentageGain:         "2",
	}
}

func TestScalpingStrategy_InitialBuy(t *testing.T) {
	gw := newMockGateway()
	s := &ScalpingStrategy{}
	repo := setupStrategy(t, s, gw, scalpingItems())

	gw.On("GetMarketOrders", "BTCUSD").Return(book("1453.014", "1455.016"), nil)
	gw.On("GetLatestMarketPrice", "BTCUSD").Return(dec("1454.015"), nil)
	gw.On("CreateOrder", "BTCUSD", exchange.Buy, decEq("0.01375502"), decEq("1453.014")).Return("1", nil).Once()

	require.NoError(t, s.Execute(context.Background()))

	gw.AssertExpectations(t)
	txs := transactions(t, repo)
	require.Len(t, txs, 1)
	expected := models.NewTransaction("1", "BUY", models.StatusSent, "BTC/USD",
		dec("0.01375502"), dec("1453.014"), "test-strategy", "MockExchange")
	assert.True(t, expected.Equal(&txs[0]))
	assert.Equal(t, exchange.Buy, s.LastOrder().Side)
}

func TestScalpingStrategy_BuyStillOpen(t *testing.T) {
	gw := newMockGateway()
	s := &ScalpingStrategy{}
	repo := setupStrategy(t, s, gw, scalpingItems())
	last := &OrderState{ID: "1", Side: exchange.Buy, Price: dec("1453.014"), Amount: dec("0.01375502")}
	s.lastOrder = last

	gw.On("GetMarketOrders", "BTCUSD").Return(book("1452", "1455"), nil)
	gw.On("GetOpenOrders", "BTCUSD").Return(openOrders("1"), nil)

	require.NoError(t, s.Execute(context.Background()))

	gw.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Same(t, last, s.LastOrder())
	assert.Empty(t, transactions(t, repo))
}

func TestScalpingStrategy_BuyFilledPlacesSell(t *testing.T) {
	gw := newMockGateway()
	s := &ScalpingStrategy{}
	repo := setupStrategy(t, s, gw, scalpingItems())
	s.lastOrder = &OrderState{ID: "1", Side: exchange.Buy, Price: dec("1453.014"), Amount: dec("0.01375502")}

	gw.On("GetMarketOrders", "BTCUSD").Return(book("1454", "1456"), nil)
	gw.On("GetOpenOrders", "BTCUSD").Return(openOrders("other"), nil)
	// 1453.014 + 1453.014 * 0.02
	gw.On("CreateOrder", "BTCUSD", exchange.Sell, decEq("0.01375502"), decEq("1482.07428")).Return("2", nil).Once()

	require.NoError(t, s.Execute(context.Background()))

	gw.AssertExpectations(t)
	txs := transactions(t, repo)
	require.Len(t, txs, 2)
	assert.Equal(t, models.StatusFilled, txs[0].Status)
	assert.Equal(t, "1", txs[0].OrderID)
	assert.Equal(t, models.StatusSent, txs[1].Status)
	assert.Equal(t, "SELL", txs[1].Side)
	assert.Equal(t, "2", s.LastOrder().ID)
	assert.Equal(t, exchange.Sell, s.LastOrder().Side)
}

func TestScalpingStrategy_SellAskRoundedToEightDigits(t *testing.T) {
	gw := newMockGateway()
	gw.places = 2 // the ask uses its own 8 digit rounding, not the exchange rule
	s := &ScalpingStrategy{}
	setupStrategy(t, s, gw, map[string]string{
		KeyCounterCurrencyBuyOrderAmount: "20",
		KeyMinimumPercentageGain:         "3.3333",
	})
	s.lastOrder = &OrderState{ID: "1", Side: exchange.Buy, Price: dec("1.23456789"), Amount: dec("10")}

	gw.On("GetMarketOrders", "BTCUSD").Return(book("1.2", "1.3"), nil)
	gw.On("GetOpenOrders", "BTCUSD").Return(openOrders(), nil)
	// 1.23456789 * 1.033333 = 1.27571974147737 -> 1.27571974
	gw.On("CreateOrder", "BTCUSD", exchange.Sell, decEq("10"), decEq("1.27571974")).Return("2", nil).Once()

	require.NoError(t, s.Execute(context.Background()))
	gw.AssertExpectations(t)
}

func TestScalpingStrategy_SellStillOpen(t *testing.T) {
	for _, ask := range []string{"1480", "1482.07428", "1490"} {
		t.Run(ask, func(t *testing.T) {
			gw := newMockGateway()
			s := &ScalpingStrategy{}
			repo := setupStrategy(t, s, gw, scalpingItems())
			s.lastOrder = &OrderState{ID: "2", Side: exchange.Sell, Price: dec("1482.07428"), Amount: dec("0.01375502")}

			gw.On("GetMarketOrders", "BTCUSD").Return(book("1479", ask), nil)
			gw.On("GetOpenOrders", "BTCUSD").Return(openOrders("2"), nil)

			require.NoError(t, s.Execute(context.Background()))

			gw.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			assert.Equal(t, "2", s.LastOrder().ID)
			assert.Empty(t, transactions(t, repo))
		})
	}
}

func TestScalpingStrategy_SellFilledPlacesBuy(t *testing.T) {
	gw := newMockGateway()
	s := &ScalpingStrategy{}
	repo := setupStrategy(t, s, gw, scalpingItems())
	s.lastOrder = &OrderState{ID: "2", Side: exchange.Sell, Price: dec("1482.07428"), Amount: dec("0.01375502")}

	gw.On("GetMarketOrders", "BTCUSD").Return(book("1490", "1491"), nil)
	gw.On("GetOpenOrders", "BTCUSD").Return(openOrders(), nil)
	gw.On("GetLatestMarketPrice", "BTCUSD").Return(dec("1000"), nil)
	gw.On("CreateOrder", "BTCUSD", exchange.Buy, decEq("0.02"), decEq("1490")).Return("3", nil).Once()

	require.NoError(t, s.Execute(context.Background()))

	gw.AssertExpectations(t)
	txs := transactions(t, repo)
	require.Len(t, txs, 2)
	assert.Equal(t, "2", txs[0].OrderID)
	assert.Equal(t, models.StatusFilled, txs[0].Status)
	assert.Equal(t, "3", txs[1].OrderID)
	assert.Equal(t, exchange.Buy, s.LastOrder().Side)
}

func TestScalpingStrategy_FillRecordedOnceWhenFollowUpOrderFails(t *testing.T) {
	t.Run("Buy filled, sell fails", func(t *testing.T) {
		gw := newMockGateway()
		s := &ScalpingStrategy{}
		repo := setupStrategy(t, s, gw, scalpingItems())
		s.lastOrder = &OrderState{ID: "1", Side: exchange.Buy, Price: dec("1453.014"), Amount: dec("0.01375502")}

		gw.On("GetMarketOrders", "BTCUSD").Return(book("1454", "1456"), nil)
		gw.On("GetOpenOrders", "BTCUSD").Return(openOrders(), nil)
		gw.On("CreateOrder", "BTCUSD", exchange.Sell, decEq("0.01375502"), decEq("1482.07428")).Return("", errNetwork).Once()
		gw.On("CreateOrder", "BTCUSD", exchange.Sell, decEq("0.01375502"), decEq("1482.07428")).Return("2", nil).Once()

		require.NoError(t, s.Execute(context.Background()))
		assert.Equal(t, "1", s.LastOrder().ID)
		require.NoError(t, s.Execute(context.Background()))

		gw.AssertExpectations(t)
		txs := transactions(t, repo)
		require.Len(t, txs, 2)
		assert.Equal(t, "1", txs[0].OrderID)
		assert.Equal(t, models.StatusFilled, txs[0].Status)
		assert.Equal(t, "2", txs[1].OrderID)
		assert.Equal(t, models.StatusSent, txs[1].Status)
		assert.Equal(t, "2", s.LastOrder().ID)
	})

	t.Run("Sell filled, buy fails", func(t *testing.T) {
		gw := newMockGateway()
		s := &ScalpingStrategy{}
		repo := setupStrategy(t, s, gw, scalpingItems())
		s.lastOrder = &OrderState{ID: "2", Side: exchange.Sell, Price: dec("1482.07428"), Amount: dec("0.01375502")}

		gw.On("GetMarketOrders", "BTCUSD").Return(book("1490", "1491"), nil)
		gw.On("GetOpenOrders", "BTCUSD").Return(openOrders(), nil)
		gw.On("GetLatestMarketPrice", "BTCUSD").Return(dec("1000"), nil)
		gw.On("CreateOrder", "BTCUSD", exchange.Buy, decEq("0.02"), decEq("1490")).Return("", errNetwork).Once()
		gw.On("CreateOrder", "BTCUSD", exchange.Buy, decEq("0.02"), decEq("1490")).Return("3", nil).Once()

		require.NoError(t, s.Execute(context.Background()))
		require.NoError(t, s.Execute(context.Background()))

		gw.AssertExpectations(t)
		txs := transactions(t, repo)
		require.Len(t, txs, 2)
		assert.Equal(t, "2", txs[0].OrderID)
		assert.Equal(t, models.StatusFilled, txs[0].Status)
		assert.Equal(t, "3", txs[1].OrderID)
		assert.Equal(t, exchange.Buy, s.LastOrder().Side)
	})
}

func TestScalpingStrategy_EmptyOrderBook(t *testing.T) {
	for name, b := range map[string]*exchange.OrderBook{
		"No buy orders":  {SellOrders: book("1", "2").SellOrders},
		"No sell orders": {BuyOrders: book("1", "2").BuyOrders},
	} {
		t.Run(name, func(t *testing.T) {
			gw := newMockGateway()
			s := &ScalpingStrategy{}
			repo := setupStrategy(t, s, gw, scalpingItems())
			gw.On("GetMarketOrders", "BTCUSD").Return(b, nil)

			require.NoError(t, s.Execute(context.Background()))

			gw.AssertExpectations(t)
			gw.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			gw.AssertNotCalled(t, "GetLatestMarketPrice", mock.Anything)
			assert.Nil(t, s.LastOrder())
			assert.Empty(t, transactions(t, repo))
		})
	}
}

func TestScalpingStrategy_TransientErrorIsRetriedNextCycle(t *testing.T) {
	gw := newMockGateway()
	s := &ScalpingStrategy{}
	repo := setupStrategy(t, s, gw, scalpingItems())

	gw.On("GetMarketOrders", "BTCUSD").Return(book("100", "101"), nil)
	gw.On("GetLatestMarketPrice", "BTCUSD").Return(dec("100"), nil)
	gw.On("CreateOrder", "BTCUSD", exchange.Buy, decEq("0.2"), decEq("100")).Return("", errNetwork).Once()
	gw.On("CreateOrder", "BTCUSD", exchange.Buy, decEq("0.2"), decEq("100")).Return("1", nil).Once()

	require.NoError(t, s.Execute(context.Background()))
	assert.Nil(t, s.LastOrder(), "state untouched after a transient failure")
	assert.Empty(t, transactions(t, repo))

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, "1", s.LastOrder().ID)
	assert.Len(t, transactions(t, repo), 1)
	gw.AssertExpectations(t)
}

func TestScalpingStrategy_TransientOrderBookError(t *testing.T) {
	gw := newMockGateway()
	s := &ScalpingStrategy{}
	setupStrategy(t, s, gw, scalpingItems())
	gw.On("GetMarketOrders", "BTCUSD").Return(nil, errNetwork)

	assert.NoError(t, s.Execute(context.Background()))
}

func TestScalpingStrategy_FatalError(t *testing.T) {
	gw := newMockGateway()
	s := &ScalpingStrategy{}
	setupStrategy(t, s, gw, scalpingItems())
	s.lastOrder = &OrderState{ID: "1", Side: exchange.Buy, Price: dec("100"), Amount: dec("0.2")}

	gw.On("GetMarketOrders", "BTCUSD").Return(book("100", "101"), nil)
	gw.On("GetOpenOrders", "BTCUSD").Return(nil, errAPI)

	err := s.Execute(context.Background())

	var strategyErr *StrategyError
	require.True(t, errors.As(err, &strategyErr))
	assert.Equal(t, "test-strategy", strategyErr.StrategyID)
	assert.Equal(t, "BTC/USD", strategyErr.Market)
	assert.Equal(t, "check buy order", strategyErr.Op)
	assert.ErrorIs(t, err, errAPI)
	assert.True(t, exchange.IsFatal(err))
}

func TestScalpingStrategy_UnclassifiedErrorIsFatal(t *testing.T) {
	gw := newMockGateway()
	s := &ScalpingStrategy{}
	setupStrategy(t, s, gw, scalpingItems())
	gw.On("GetMarketOrders", "BTCUSD").Return(nil, errors.New("boom"))

	var strategyErr *StrategyError
	assert.ErrorAs(t, s.Execute(context.Background()), &strategyErr)
}

func TestScalpingStrategy_TransactionLogFailureDoesNotStopCycle(t *testing.T) {
	gw := newMockGateway()
	s := &ScalpingStrategy{}
	require.NoError(t, s.Initialize(StrategyContext{
		Logger:       zap.NewNop(),
		Trading:      NewTradingContext(gw, testMarket),
		Transactions: failingLog{},
		StrategyID:   "test-strategy",
		Config:       NewConfigItems("test-strategy", scalpingItems()),
	}))

	gw.On("GetMarketOrders", "BTCUSD").Return(book("100", "101"), nil)
	gw.On("GetLatestMarketPrice", "BTCUSD").Return(dec("100"), nil)
	gw.On("CreateOrder", "BTCUSD", exchange.Buy, mock.Anything, mock.Anything).Return("1", nil).Once()

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, "1", s.LastOrder().ID)
}

func TestScalpingStrategy_Lifecycle(t *testing.T) {
	s := &ScalpingStrategy{}
	assert.ErrorIs(t, s.Execute(context.Background()), ErrNotInitialized)

	gw := newMockGateway()
	setupStrategy(t, s, gw, scalpingItems())
	assert.ErrorIs(t, s.Initialize(StrategyContext{}), ErrAlreadyInitialized)
	assert.Equal(t, ScalpingStrategyName, s.Name())
}

func TestScalpingStrategy_MissingConfig(t *testing.T) {
	s := &ScalpingStrategy{}
	err := s.Initialize(StrategyContext{
		Trading:      NewTradingContext(newMockGateway(), testMarket),
		Transactions: failingLog{},
		StrategyID:   "scalper",
		Config:       NewConfigItems("scalper", map[string]string{KeyMinimumPercentageGain: "2"}),
	})

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, KeyCounterCurrencyBuyOrderAmount, cfgErr.Key)
	assert.Equal(t, "scalper", cfgErr.StrategyID)
	assert.ErrorIs(t, s.Execute(context.Background()), ErrNotInitialized)
}

// Every fill is followed by exactly one order on the other side, so the
// strategy never tracks more than one unresolved order.
func TestScalpingStrategy_AlternatesSides(t *testing.T) {
	gw := newMockGateway()
	s := &ScalpingStrategy{}
	repo := setupStrategy(t, s, gw, scalpingItems())

	gw.On("GetMarketOrders", "BTCUSD").Return(book("100", "101"), nil)
	gw.On("GetLatestMarketPrice", "BTCUSD").Return(dec("100"), nil)
	nextID := 0
	// The mocked id is fixed, so fills are driven by the open order list instead.
	gw.On("CreateOrder", "BTCUSD", mock.Anything, mock.Anything, mock.Anything).Return("order", nil).Run(func(args mock.Arguments) {
		nextID++
	})
	fills := []bool{false, true, false, false, true, true, false, true}
	for _, filled := range fills {
		if filled {
			gw.On("GetOpenOrders", "BTCUSD").Return(openOrders(), nil).Once()
		} else {
			gw.On("GetOpenOrders", "BTCUSD").Return(openOrders("order"), nil).Once()
		}
	}

	expectedSide := exchange.Buy
	require.NoError(t, s.Execute(context.Background()))
	for _, filled := range fills {
		require.NoError(t, s.Execute(context.Background()))
		if filled {
			if expectedSide == exchange.Buy {
				expectedSide = exchange.Sell
			} else {
				expectedSide = exchange.Buy
			}
		}
		assert.Equal(t, expectedSide, s.LastOrder().Side)
		buys, sells := s.OpenOrderCounts()
		assert.Equal(t, 1, buys+sells)
	}

	sent := 0
	for _, tx := range transactions(t, repo) {
		if tx.Status == models.StatusSent {
			sent++
		}
	}
	assert.Equal(t, 1+4, sent)
	assert.Equal(t, 5, nextID)
}
