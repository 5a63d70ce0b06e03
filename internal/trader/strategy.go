package trader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"cycle-trade-bot-go/internal/logger"
	"cycle-trade-bot-go/internal/models"
	"go.uber.org/zap"
)

const (
	ScalpingStrategyName    = "Scalping"
	MultiOrderStrategyName  = "MultiOrder"
	RebalancingStrategyName = "Rebalancing"
)

// TransactionLog is the append-only store of sent and filled orders.
type TransactionLog interface {
	Append(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
	FindByMarket(ctx context.Context, market string) ([]models.Transaction, error)
}

// StrategyContext provides the strategy with access to the core components.
type StrategyContext struct {
	Logger       *zap.Logger
	Trading      *TradingContext
	Transactions TransactionLog
	StrategyID   string
	Config       ConfigItems
}

// Strategy defines the interface for a trading strategy.
type Strategy interface {
	// Name returns the registered name of the strategy.
	Name() string

	// Initialize binds the strategy to its market and parses its config.
	// It must be called exactly once, before Execute.
	Initialize(sc StrategyContext) error

	// Execute runs one trade cycle. A non-nil error is a *StrategyError and
	// means trading must stop.
	Execute(ctx context.Context) error
}

// Constructor returns a new, uninitialized strategy.
type Constructor func() Strategy

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Constructor)
)

func init() {
	RegisterStrategy(ScalpingStrategyName, func() Strategy { return &ScalpingStrategy{} })
	RegisterStrategy(MultiOrderStrategyName, func() Strategy { return &MultiOrderStrategy{} })
	RegisterStrategy(RebalancingStrategyName, func() Strategy { return &RebalancingStrategy{} })
}

// RegisterStrategy makes a strategy available by name. It panics if the name
// is registered twice or ctor is nil.
func RegisterStrategy(name string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if ctor == nil {
		panic("trader: RegisterStrategy constructor is nil")
	}
	if _, dup := registry[name]; dup {
		panic("trader: RegisterStrategy called twice for " + name)
	}
	registry[name] = ctor
}

// NewStrategy creates a strategy registered under name.
func NewStrategy(name string) (Strategy, error) {
	registryMu.RLock()
	ctor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown strategy type %q (known: %v)", name, StrategyNames())
	}
	return ctor(), nil
}

// StrategyNames lists the registered strategy names, sorted.
func StrategyNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// strategyBase holds what every strategy needs once initialized.
type strategyBase struct {
	sc          StrategyContext
	log         *zap.Logger
	initialized bool
}

// init validates sc, runs parse over the config items and marks the strategy
// ready. Nothing is kept when parse fails.
func (b *strategyBase) init(sc StrategyContext, parse func(ConfigItems) error) error {
	if b.initialized {
		return ErrAlreadyInitialized
	}
	if sc.Trading == nil {
		return errors.New("strategy context has no trading context")
	}
	if sc.Transactions == nil {
		return errors.New("strategy context has no transaction log")
	}
	if sc.Logger == nil {
		sc.Logger = zap.NewNop()
	}
	if err := parse(sc.Config); err != nil {
		return err
	}
	b.sc = sc
	b.log = logger.ForStrategy(sc.Logger, sc.Trading.MarketName(), sc.StrategyID)
	b.initialized = true
	return nil
}

func (b *strategyBase) ready() error {
	if !b.initialized {
		return ErrNotInitialized
	}
	return nil
}
