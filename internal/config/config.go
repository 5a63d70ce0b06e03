package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Exchange   Exchange   `mapstructure:"exchange"`
	Engine     Engine     `mapstructure:"engine"`
	Markets    []Market   `mapstructure:"markets"`
	Strategies []Strategy `mapstructure:"strategies"`
	Logger     Logger     `mapstructure:"logger"`
	Server     Server     `mapstructure:"server"`
	Database   Database   `mapstructure:"database"`
}

// Exchange holds the configuration for the exchange REST API.
type Exchange struct {
	Name           string  `mapstructure:"name"`
	ApiKey         string  `mapstructure:"apiKey"`
	SecretKey      string  `mapstructure:"secretKey"`
	Testnet        bool    `mapstructure:"testnet"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	MaxRetries     int     `mapstructure:"max_retries"`
}

// Engine holds the configuration for the trade cycle loop.
type Engine struct {
	BotID              string `mapstructure:"bot_id"`
	BotName            string `mapstructure:"bot_name"`
	TradeCycleInterval int    `mapstructure:"trade_cycle_interval"` // seconds
	ApiPort            int    `mapstructure:"api_port"`
}

// Market is a market the bot may trade on.
type Market struct {
	ID              string `mapstructure:"id"`
	Name            string `mapstructure:"name"`
	BaseCurrency    string `mapstructure:"base_currency"`
	CounterCurrency string `mapstructure:"counter_currency"`
	Enabled         bool   `mapstructure:"enabled"`
	StrategyID      string `mapstructure:"strategy_id"`
}

// Strategy describes a configured strategy instance.
// Type selects the implementation; ConfigItems are passed to it verbatim.
type Strategy struct {
	ID          string            `mapstructure:"id"`
	Name        string            `mapstructure:"name"`
	Description string            `mapstructure:"description"`
	Type        string            `mapstructure:"type"`
	ConfigItems map[string]string `mapstructure:"config_items"`
}

// Server holds the configuration for the transaction log web server.
type Server struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file, e.g. EXCHANGE_APIKEY
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}

	err = config.Validate()
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("exchange.name", "binance")
	v.SetDefault("exchange.rate_limit", 10)      // requests per second
	v.SetDefault("exchange.rate_limit_burst", 5) // burst size
	v.SetDefault("exchange.max_retries", 3)
	v.SetDefault("engine.bot_name", "cycle-trade-bot")
	v.SetDefault("engine.trade_cycle_interval", 60)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("database.dsn", "transactions.db")
	v.SetDefault("server.port", 8080)
}

// Validate checks the cross references between markets and strategies.
func (c *Config) Validate() error {
	var errs []error

	if c.Engine.TradeCycleInterval <= 0 {
		errs = append(errs, fmt.Errorf("engine.trade_cycle_interval must be positive, got %d", c.Engine.TradeCycleInterval))
	}

	strategyIDs := make(map[string]struct{}, len(c.Strategies))
	for i, s := range c.Strategies {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("strategies[%d] has no id", i))
			continue
		}
		if _, dup := strategyIDs[s.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate strategy id %q", s.ID))
		}
		strategyIDs[s.ID] = struct{}{}
		if s.Type == "" {
			errs = append(errs, fmt.Errorf("strategy %q has no type", s.ID))
		}
	}

	for i, m := range c.Markets {
		if m.ID == "" {
			errs = append(errs, fmt.Errorf("markets[%d] has no id", i))
		}
		if m.Enabled && m.StrategyID == "" {
			errs = append(errs, fmt.Errorf("market %q is enabled but has no strategy_id", m.ID))
		}
	}

	return errors.Join(errs...)
}
