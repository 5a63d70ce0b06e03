package trader

import (
	"fmt"

	"cycle-trade-bot-go/internal/config"
	"cycle-trade-bot-go/internal/exchange"
	"go.uber.org/zap"
)

// BoundStrategy is an initialized strategy and the market it owns.
type BoundStrategy struct {
	Market     Market
	StrategyID string
	Strategy   Strategy
}

// BuildStrategies creates and initializes one strategy per enabled market.
// Configuration problems are reported as *ConfigError; any error means trading must not start.
func BuildStrategies(markets []config.Market, strategies []config.Strategy,
	gateway exchange.Gateway, txLog TransactionLog, log *zap.Logger) ([]*BoundStrategy, error) {

	byID := make(map[string]config.Strategy, len(strategies))
	for _, s := range strategies {
		byID[s.ID] = s
	}

	registry := NewMarketRegistry()
	var bound []*BoundStrategy

	for _, mc := range markets {
		if !mc.Enabled {
			log.Info("Market disabled, skipping", zap.String("market", mc.ID))
			continue
		}

		market := Market{
			ID:              mc.ID,
			Name:            mc.Name,
			BaseCurrency:    mc.BaseCurrency,
			CounterCurrency: mc.CounterCurrency,
		}
		if market.Name == "" {
			market.Name = mc.ID
		}
		if err := registry.Register(market); err != nil {
			return nil, err
		}

		sc, ok := byID[mc.StrategyID]
		if !ok {
			return nil, &ConfigError{
				StrategyID: mc.StrategyID,
				Err:        fmt.Errorf("market %q references an unknown strategy", mc.ID),
			}
		}

		strategy, err := NewStrategy(sc.Type)
		if err != nil {
			return nil, &ConfigError{StrategyID: sc.ID, Key: "type", Err: err}
		}

		err = strategy.Initialize(StrategyContext{
			Logger:       log,
			Trading:      NewTradingContext(gateway, market),
			Transactions: txLog,
			StrategyID:   sc.ID,
			Config:       NewConfigItems(sc.ID, sc.ConfigItems),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize strategy %s for market %s: %w", sc.ID, market.ID, err)
		}

		log.Info("Strategy bound to market",
			zap.String("market", market.ID), zap.String("strategy", sc.ID), zap.String("type", sc.Type))
		bound = append(bound, &BoundStrategy{Market: market, StrategyID: sc.ID, Strategy: strategy})
	}

	return bound, nil
}
