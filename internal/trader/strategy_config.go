package trader

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	KeyCounterCurrencyBuyOrderAmount = "counter-currency-buy-order-amount"
	KeyMinimumPercentageGain         = "minimum-percentage-gain"
	KeyMaxConcurrentSellOrders       = "max-concurrent-sell-orders"
	KeyPercentChangeThreshold        = "percent-change-threshold"
	KeyCounterCurrencyThreshold      = "counter-currency-threshold"
)

var oneHundred = decimal.NewFromInt(100)

// ConfigItems is the read-only set of config items of one strategy.
type ConfigItems struct {
	strategyID string
	items      map[string]string
}

// NewConfigItems copies items so later changes to the map are not seen.
func NewConfigItems(strategyID string, items map[string]string) ConfigItems {
	copied := make(map[string]string, len(items))
	for k, v := range items {
		copied[k] = v
	}
	return ConfigItems{strategyID: strategyID, items: copied}
}

func (c ConfigItems) StrategyID() string {
	return c.strategyID
}

// Get returns the raw value for key.
func (c ConfigItems) Get(key string) (string, bool) {
	v, ok := c.items[key]
	return v, ok
}

func (c ConfigItems) Len() int {
	return len(c.items)
}

// String returns a mandatory, non blank value.
func (c ConfigItems) String(key string) (string, error) {
	v, ok := c.items[key]
	if !ok || strings.TrimSpace(v) == "" {
		return "", c.configError(key, ErrMissingConfigItem)
	}
	return strings.TrimSpace(v), nil
}

// Int parses a mandatory integer value.
func (c ConfigItems) Int(key string) (int, error) {
	raw, err := c.String(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, c.configError(key, fmt.Errorf("invalid integer %q: %w", raw, err))
	}
	return n, nil
}

// Decimal parses a mandatory decimal value.
func (c ConfigItems) Decimal(key string) (decimal.Decimal, error) {
	raw, err := c.String(key)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, c.configError(key, fmt.Errorf("invalid decimal %q: %w", raw, err))
	}
	return d, nil
}

// Percentage parses a mandatory percent value and returns it as a fraction,
// e.g. "4" gives 0.04. The fraction keeps 8 digits, rounded half up.
func (c ConfigItems) Percentage(key string) (decimal.Decimal, error) {
	d, err := c.Decimal(key)
	if err != nil {
		return decimal.Zero, err
	}
	return d.DivRound(oneHundred, 8), nil
}

func (c ConfigItems) configError(key string, err error) error {
	return &ConfigError{StrategyID: c.strategyID, Key: key, Err: err}
}

func (c ConfigItems) positive(key string, d decimal.Decimal) error {
	if d.Sign() <= 0 {
		return c.configError(key, errors.New("must be greater than zero"))
	}
	return nil
}

func (c ConfigItems) notNegative(key string, d decimal.Decimal) error {
	if d.Sign() < 0 {
		return c.configError(key, errors.New("must not be negative"))
	}
	return nil
}

// ScalpingConfig configures ScalpingStrategy.
type ScalpingConfig struct {
	CounterCurrencyBuyOrderAmount decimal.Decimal
	MinimumPercentageGain         decimal.Decimal // fraction
}

func ParseScalpingConfig(c ConfigItems) (ScalpingConfig, error) {
	var cfg ScalpingConfig
	var err error

	if cfg.CounterCurrencyBuyOrderAmount, err = c.Decimal(KeyCounterCurrencyBuyOrderAmount); err != nil {
		return cfg, err
	}
	if err = c.positive(KeyCounterCurrencyBuyOrderAmount, cfg.CounterCurrencyBuyOrderAmount); err != nil {
		return cfg, err
	}
	if cfg.MinimumPercentageGain, err = c.Percentage(KeyMinimumPercentageGain); err != nil {
		return cfg, err
	}
	return cfg, c.notNegative(KeyMinimumPercentageGain, cfg.MinimumPercentageGain)
}

// MultiOrderConfig configures MultiOrderStrategy.
type MultiOrderConfig struct {
	MaxConcurrentSellOrders       int
	CounterCurrencyBuyOrderAmount decimal.Decimal
	PercentChangeThreshold        decimal.Decimal // fraction
}

func ParseMultiOrderConfig(c ConfigItems) (MultiOrderConfig, error) {
	var cfg MultiOrderConfig
	var err error

	if cfg.MaxConcurrentSellOrders, err = c.Int(KeyMaxConcurrentSellOrders); err != nil {
		return cfg, err
	}
	if cfg.MaxConcurrentSellOrders <= 0 {
		return cfg, c.configError(KeyMaxConcurrentSellOrders, errors.New("must be greater than zero"))
	}
	if cfg.CounterCurrencyBuyOrderAmount, err = c.Decimal(KeyCounterCurrencyBuyOrderAmount); err != nil {
		return cfg, err
	}
	if err = c.positive(KeyCounterCurrencyBuyOrderAmount, cfg.CounterCurrencyBuyOrderAmount); err != nil {
		return cfg, err
	}
	if cfg.PercentChangeThreshold, err = c.Percentage(KeyPercentChangeThreshold); err != nil {
		return cfg, err
	}
	return cfg, c.notNegative(KeyPercentChangeThreshold, cfg.PercentChangeThreshold)
}

// RebalancingConfig configures RebalancingStrategy.
type RebalancingConfig struct {
	CounterCurrencyThreshold decimal.Decimal
}

func ParseRebalancingConfig(c ConfigItems) (RebalancingConfig, error) {
	var cfg RebalancingConfig
	var err error

	if cfg.CounterCurrencyThreshold, err = c.Decimal(KeyCounterCurrencyThreshold); err != nil {
		return cfg, err
	}
	return cfg, c.notNegative(KeyCounterCurrencyThreshold, cfg.CounterCurrencyThreshold)
}
