package trader

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine runs one trade cycle of every bound strategy per tick.
type Engine struct {
	UUID      string
	Name      string
	StartTime time.Time

	logger     *zap.Logger
	interval   time.Duration
	strategies []*BoundStrategy

	mu        sync.RWMutex
	cycles    int64
	halted    bool
	lastError error
	snapshot  []StrategyStatus
}

// openOrderCounter is implemented by strategies that can report their open orders.
type openOrderCounter interface {
	OpenOrderCounts() (buys, sells int)
}

// StrategyStatus describes one bound strategy for the status API.
type StrategyStatus struct {
	Market     string `json:"market"`
	StrategyID string `json:"strategy_id"`
	Type       string `json:"type"`
	OpenBuys   int    `json:"open_buy_orders"`
	OpenSells  int    `json:"open_sell_orders"`
}

// Status is a snapshot of the engine state.
type Status struct {
	UUID       string           `json:"uuid"`
	Name       string           `json:"name"`
	StartTime  time.Time        `json:"start_time"`
	Cycles     int64            `json:"cycles"`
	Halted     bool             `json:"halted"`
	LastError  string           `json:"last_error,omitempty"`
	Strategies []StrategyStatus `json:"strategies"`
}

// NewEngine creates a new trading engine.
func NewEngine(logger *zap.Logger, name string, interval time.Duration, strategies []*BoundStrategy) *Engine {
	e := &Engine{
		UUID:       uuid.NewString(),
		Name:       name,
		StartTime:  time.Now(),
		logger:     logger,
		interval:   interval,
		strategies: strategies,
	}
	e.snapshot = e.strategyStatuses()
	return e
}

// Run starts the trading engine's main loop. It returns nil when ctx is
// cancelled and the *StrategyError that halted the bot otherwise.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info("Starting trade cycle loop",
		zap.String("uuid", e.UUID),
		zap.Duration("interval", e.interval),
		zap.Int("strategies", len(e.strategies)))

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Stopping trading engine...")
			return nil
		case <-ticker.C:
			if err := e.RunCycle(ctx); err != nil {
				e.logger.Error("Strategy failed fatally, halting bot", zap.Error(err))
				return err
			}
		}
	}
}

// RunCycle executes every strategy once. Strategies own disjoint markets so
// they run concurrently; the call returns when all of them are done.
func (e *Engine) RunCycle(ctx context.Context) error {
	if e.Halted() {
		return e.LastError()
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(e.strategies))

	for _, b := range e.strategies {
		wg.Add(1)
		go func(b *BoundStrategy) {
			defer wg.Done()
			if err := b.Strategy.Execute(ctx); err != nil {
				errs <- err
			}
		}(b)
	}

	// Wait for all goroutines to finish, then close the channel
	wg.Wait()
	close(errs)

	var first error
	for err := range errs {
		if first == nil {
			first = err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cycles++
	e.snapshot = e.strategyStatuses()
	if first != nil {
		e.halted = true
		e.lastError = first
	}
	return first
}

// strategyStatuses must only be called while no strategy is executing.
func (e *Engine) strategyStatuses() []StrategyStatus {
	statuses := make([]StrategyStatus, 0, len(e.strategies))
	for _, b := range e.strategies {
		ss := StrategyStatus{Market: b.Market.ID, StrategyID: b.StrategyID, Type: b.Strategy.Name()}
		if c, ok := b.Strategy.(openOrderCounter); ok {
			ss.OpenBuys, ss.OpenSells = c.OpenOrderCounts()
		}
		statuses = append(statuses, ss)
	}
	return statuses
}

func (e *Engine) Halted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.halted
}

func (e *Engine) LastError() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastError
}

// Status returns a snapshot for the API server.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := Status{
		UUID:      e.UUID,
		Name:      e.Name,
		StartTime: e.StartTime,
		Cycles:    e.cycles,
		Halted:    e.halted,
	}
	if e.lastError != nil {
		st.LastError = e.lastError.Error()
	}
	st.Strategies = append(st.Strategies, e.snapshot...)
	return st
}
