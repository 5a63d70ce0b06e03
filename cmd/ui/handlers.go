package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cycle-trade-bot-go/internal/models"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultLimit = 100

// TransactionStore is the read side of the transaction log.
type TransactionStore interface {
	FindAll(ctx context.Context, limit int) ([]models.Transaction, error)
	FindByMarket(ctx context.Context, market string) ([]models.Transaction, error)
}

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log   *zap.Logger
	store TransactionStore
	now   func() time.Time
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, store TransactionStore) *APIHandler {
	return &APIHandler{log: log, store: store, now: time.Now}
}

// Router wires the handlers. Market names contain a slash, so they are
// matched in their escaped form, e.g. /api/markets/BTC%2FUSDT/statistics.
func (h *APIHandler) Router() *mux.Router {
	router := mux.NewRouter().UseEncodedPath()
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/transactions", h.TransactionsHandler).Methods(http.MethodGet)
	api.HandleFunc("/markets/{market}/transactions", h.MarketTransactionsHandler).Methods(http.MethodGet)
	api.HandleFunc("/markets/{market}/statistics", h.StatisticsHandler).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK\n"))
	}).Methods(http.MethodGet)
	return router
}

// TransactionsHandler returns the most recent transactions of every market.
func (h *APIHandler) TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	txs, err := h.store.FindAll(r.Context(), limit)
	if err != nil {
		h.log.Error("Failed to get transactions from database", zap.Error(err))
		http.Error(w, "Failed to get transactions", http.StatusInternalServerError)
		return
	}
	h.respondJSON(w, txs)
}

// MarketTransactionsHandler returns every transaction of one market, oldest first.
func (h *APIHandler) MarketTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	market, ok := marketParam(w, r)
	if !ok {
		return
	}

	txs, err := h.store.FindByMarket(r.Context(), market)
	if err != nil {
		h.log.Error("Failed to get market transactions", zap.String("market", market), zap.Error(err))
		http.Error(w, "Failed to get transactions", http.StatusInternalServerError)
		return
	}
	h.respondJSON(w, txs)
}

// StatsDetail holds calculated statistics for a given period.
type StatsDetail struct {
	SentOrders      int64           `json:"sent_orders"`
	FilledOrders    int64           `json:"filled_orders"`
	FilledBuyValue  decimal.Decimal `json:"filled_buy_value"`
	FilledSellValue decimal.Decimal `json:"filled_sell_value"`
	// NetCounterFlow is what filled sells brought in minus what filled buys spent.
	NetCounterFlow decimal.Decimal `json:"net_counter_flow"`
}

func (s *StatsDetail) add(tx models.Transaction) {
	switch tx.Status {
	case models.StatusSent:
		s.SentOrders++
	case models.StatusFilled:
		s.FilledOrders++
		if tx.Side == "BUY" {
			s.FilledBuyValue = s.FilledBuyValue.Add(tx.Value)
		} else {
			s.FilledSellValue = s.FilledSellValue.Add(tx.Value)
		}
		s.NetCounterFlow = s.FilledSellValue.Sub(s.FilledBuyValue)
	}
}

// StatisticsResponse is the structure for the statistics endpoint.
type StatisticsResponse struct {
	Market   string      `json:"market"`
	Since24h StatsDetail `json:"since_24h"`
	AllTime  StatsDetail `json:"all_time"`
}

// StatisticsHandler calculates and returns trading statistics of one market.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	market, ok := marketParam(w, r)
	if !ok {
		return
	}

	txs, err := h.store.FindByMarket(r.Context(), market)
	if err != nil {
		h.log.Error("Failed to get transactions for statistics", zap.String("market", market), zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}

	since24h := h.now().Add(-24 * time.Hour)
	response := StatisticsResponse{Market: market}
	for _, tx := range txs {
		response.AllTime.add(tx)
		if tx.Timestamp.After(since24h) {
			response.Since24h.add(tx)
		}
	}
	h.respondJSON(w, response)
}

func marketParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	market, err := url.PathUnescape(mux.Vars(r)["market"])
	if err != nil || market == "" {
		http.Error(w, "invalid market", http.StatusBadRequest)
		return "", false
	}
	return market, true
}

func (h *APIHandler) respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to write response", zap.Error(err))
	}
}
