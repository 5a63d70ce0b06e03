package trader

import (
	"fmt"
)

// Market is a tradable pair on an exchange, e.g. BTC priced in USDT.
// ID is what the exchange calls it, Name is what the transaction log records.
type Market struct {
	ID              string
	Name            string
	BaseCurrency    string
	CounterCurrency string
}

// Equal reports whether both values identify the same market.
func (m Market) Equal(other Market) bool {
	return m.ID == other.ID
}

func (m Market) String() string {
	return m.Name
}

// MarketRegistry holds the markets the bot trades on, in registration order.
type MarketRegistry struct {
	byID  map[string]Market
	order []string
}

func NewMarketRegistry() *MarketRegistry {
	return &MarketRegistry{byID: make(map[string]Market)}
}

// Register adds a market. Registering the same id twice is a configuration error.
func (r *MarketRegistry) Register(m Market) error {
	if _, exists := r.byID[m.ID]; exists {
		return &ConfigError{Key: "markets", Err: fmt.Errorf("duplicate market id %q", m.ID)}
	}
	r.byID[m.ID] = m
	r.order = append(r.order, m.ID)
	return nil
}

func (r *MarketRegistry) Get(id string) (Market, bool) {
	m, ok := r.byID[id]
	return m, ok
}

func (r *MarketRegistry) All() []Market {
	markets := make([]Market, 0, len(r.order))
	for _, id := range r.order {
		markets = append(markets, r.byID[id])
	}
	return markets
}

func (r *MarketRegistry) Len() int {
	return len(r.order)
}
