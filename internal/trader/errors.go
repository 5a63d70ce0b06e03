package trader

import (
	"errors"
	"fmt"
)

var (
	ErrNotInitialized     = errors.New("strategy not initialized")
	ErrAlreadyInitialized = errors.New("strategy already initialized")
	ErrMissingConfigItem  = errors.New("mandatory config item missing")
)

// StrategyError is returned by Execute when an exchange call failed fatally.
// The engine must stop trading when it sees one.
type StrategyError struct {
	StrategyID string
	Market     string
	Op         string
	Err        error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %s on market %s: %s: %v", e.StrategyID, e.Market, e.Op, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// ConfigError reports a bad configuration found before any trading starts.
type ConfigError struct {
	StrategyID string
	Key        string
	Err        error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Key == "":
		return fmt.Sprintf("strategy %q: %v", e.StrategyID, e.Err)
	case e.StrategyID == "":
		return fmt.Sprintf("config %q: %v", e.Key, e.Err)
	default:
		return fmt.Sprintf("strategy %q: config item %q: %v", e.StrategyID, e.Key, e.Err)
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
