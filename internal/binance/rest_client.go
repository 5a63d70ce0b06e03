package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cycle-trade-bot-go/internal/config"
	"cycle-trade-bot-go/internal/exchange"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	baseURL        = "https://api.binance.com/api/v3"
	testnetBaseURL = "https://testnet.binance.vision/api/v3"
	recvWindow     = "5000" // How long a request is valid in milliseconds

	OrderTypeLimit  = "LIMIT"
	TimeInForceGTC  = "GTC"
	ExchangeName    = "Binance"
	symbolTrading   = "TRADING"
	depthLimit      = "5"
	priceDecimals   = 8
	defaultRetries  = 3
	defaultBackoff  = time.Second
	apiKeyHeader    = "X-MBX-APIKEY"
	formContentType = "application/x-www-form-urlencoded"

	codeOrderRejected = -2010
	codeNoSuchOrder   = -2013
)

// RestClient is an exchange.Gateway over the Binance spot REST API.
// It is safe for concurrent use.
type RestClient struct {
	client      *resty.Client
	apiKey      string
	secretKey   string
	logger      *zap.Logger
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
}

// ensure RestClient implements the gateway contract
var _ exchange.Gateway = (*RestClient)(nil)

// NewRestClient creates a new Binance REST API client.
func NewRestClient(cfg *config.Exchange, logger *zap.Logger) *RestClient {
	var url string
	if cfg.Testnet {
		url = testnetBaseURL
		logger.Warn("Using Binance Testnet")
	} else {
		url = baseURL
		logger.Info("Using Binance Production API")
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultRetries
	}

	return &RestClient{
		client:      resty.New().SetBaseURL(url).SetTimeout(10 * time.Second),
		apiKey:      cfg.ApiKey,
		secretKey:   cfg.SecretKey,
		logger:      logger,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		maxRetries:  maxRetries,
		baseBackoff: defaultBackoff,
	}
}

func (c *RestClient) Name() string {
	return ExchangeName
}

// RoundValue keeps 8 fractional digits, rounding half up.
func (c *RestClient) RoundValue(value decimal.Decimal) decimal.Decimal {
	return value.Round(priceDecimals)
}

// sign creates a HMAC-SHA256 signature for the request.
func (c *RestClient) sign(data string) string {
	h := hmac.New(sha256.New, []byte(c.secretKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// signedParams adds the timestamp, receive window and signature to params.
func (c *RestClient) signedParams(params url.Values) string {
	signed := url.Values{}
	for k, v := range params {
		signed[k] = v
	}
	signed.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	signed.Set("recvWindow", recvWindow)
	query := signed.Encode()
	return query + "&signature=" + c.sign(query)
}

// GetServerTime fetches the current server time from Binance.
// This is a good endpoint to test connectivity.
func (c *RestClient) GetServerTime(ctx context.Context) (int64, error) {
	type ServerTimeResponse struct {
		ServerTime int64 `json:"serverTime"`
	}

	resp, err := c.doRequest(ctx, "GetServerTime", http.MethodGet, "/time", func() *resty.Request {
		return c.client.R().SetResult(&ServerTimeResponse{})
	})
	if err != nil {
		c.logger.Error("Failed to get server time", zap.Error(err))
		return 0, err
	}

	return resp.Result().(*ServerTimeResponse).ServerTime, nil
}

// depthResponse is the /depth payload. Each level is [price, quantity].
type depthResponse struct {
	Bids [][2]decimal.Decimal `json:"bids"`
	Asks [][2]decimal.Decimal `json:"asks"`
}

func (c *RestClient) GetMarketOrders(ctx context.Context, marketID string) (*exchange.OrderBook, error) {
	resp, err := c.doRequest(ctx, "GetMarketOrders", http.MethodGet, "/depth", func() *resty.Request {
		return c.client.R().
			SetQueryParam("symbol", marketID).
			SetQueryParam("limit", depthLimit).
			SetResult(&depthResponse{})
	})
	if err != nil {
		return nil, err
	}

	depth := resp.Result().(*depthResponse)
	return &exchange.OrderBook{
		MarketID:   marketID,
		BuyOrders:  toMarketOrders(exchange.Buy, depth.Bids),
		SellOrders: toMarketOrders(exchange.Sell, depth.Asks),
	}, nil
}

func toMarketOrders(side exchange.OrderSide, levels [][2]decimal.Decimal) []exchange.MarketOrder {
	orders := make([]exchange.MarketOrder, 0, len(levels))
	for _, level := range levels {
		orders = append(orders, exchange.MarketOrder{
			Side:     side,
			Price:    level[0],
			Quantity: level[1],
			Total:    level[0].Mul(level[1]),
		})
	}
	return orders
}

// TickerPrice represents the response for a single ticker price.
type TickerPrice struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

func (c *RestClient) GetLatestMarketPrice(ctx context.Context, marketID string) (decimal.Decimal, error) {
	resp, err := c.doRequest(ctx, "GetLatestMarketPrice", http.MethodGet, "/ticker/price", func() *resty.Request {
		return c.client.R().
			SetQueryParam("symbol", marketID).
			SetResult(&TickerPrice{})
	})
	if err != nil {
		return decimal.Zero, err
	}
	return resp.Result().(*TickerPrice).Price, nil
}

type accountResponse struct {
	Balances []struct {
		Asset  string          `json:"asset"`
		Free   decimal.Decimal `json:"free"`
		Locked decimal.Decimal `json:"locked"`
	} `json:"balances"`
}

func (c *RestClient) GetBalanceInfo(ctx context.Context) (*exchange.BalanceInfo, error) {
	resp, err := c.doRequest(ctx, "GetBalanceInfo", http.MethodGet, "/account", func() *resty.Request {
		return c.client.R().
			SetHeader(apiKeyHeader, c.apiKey).
			SetQueryString(c.signedParams(url.Values{})).
			SetResult(&accountResponse{})
	})
	if err != nil {
		return nil, err
	}

	account := resp.Result().(*accountResponse)
	info := &exchange.BalanceInfo{
		Available: make(map[string]decimal.Decimal, len(account.Balances)),
		OnHold:    make(map[string]decimal.Decimal, len(account.Balances)),
	}
	for _, b := range account.Balances {
		info.Available[b.Asset] = b.Free
		info.OnHold[b.Asset] = b.Locked
	}
	return info, nil
}

// CreateOrderResponse represents the response from creating a new order.
type CreateOrderResponse struct {
	Symbol        string          `json:"symbol"`
	OrderID       int64           `json:"orderId"`
	ClientOrderID string          `json:"clientOrderId"`
	TransactTime  int64           `json:"transactTime"`
	Price         decimal.Decimal `json:"price"`
	OrigQuantity  decimal.Decimal `json:"origQty"`
	Status        string          `json:"status"`
	TimeInForce   string          `json:"timeInForce"`
	Type          string          `json:"type"`
	Side          string          `json:"side"`
}

// CreateOrder places a GTC limit order.
//
// A failed POST /order may still have placed the order, so it is never blindly
// resent. Every attempt carries the same client order id; after a retryable
// failure or a duplicate rejection the order is looked up by that id first, and
// only resent when the exchange does not know it.
func (c *RestClient) CreateOrder(ctx context.Context, marketID string, side exchange.OrderSide, quantity, price decimal.Decimal) (string, error) {
	clientOrderID := uuid.NewString()
	l := c.logger.With(zap.String("symbol", marketID), zap.String("side", string(side)),
		zap.String("quantity", quantity.String()), zap.String("price", price.String()),
		zap.String("client_order_id", clientOrderID))

	params := url.Values{}
	params.Set("symbol", marketID)
	params.Set("side", string(side))
	params.Set("type", OrderTypeLimit)
	params.Set("timeInForce", TimeInForceGTC)
	params.Set("quantity", quantity.String())
	params.Set("price", price.String())
	params.Set("newClientOrderId", clientOrderID)

	for attempt := 0; ; attempt++ {
		resp, err := c.doRequestAttempts(ctx, "CreateOrder", http.MethodPost, "/order", 1, func() *resty.Request {
			return c.client.R().
				SetHeader(apiKeyHeader, c.apiKey).
				SetHeader("Content-Type", formContentType).
				SetBody(c.signedParams(params)).
				SetResult(&CreateOrderResponse{})
		})
		if err == nil {
			result := resp.Result().(*CreateOrderResponse)
			if result.OrderID == 0 {
				return "", exchange.NewFatalError("CreateOrder", errors.New("response carries no order id"))
			}
			id := strconv.FormatInt(result.OrderID, 10)
			l.Info("Successfully created order", zap.String("order_id", id), zap.String("status", result.Status))
			return id, nil
		}

		duplicate := isDuplicateOrder(err)
		if !exchange.IsTransient(err) && !duplicate {
			l.Error("Failed to create order", zap.Error(err))
			return "", err
		}

		id, found, lookupErr := c.findOrder(ctx, marketID, clientOrderID)
		if lookupErr != nil {
			l.Error("Order status unknown after failed create", zap.Error(err), zap.NamedError("lookup_error", lookupErr))
			return "", exchange.NewTransientError("CreateOrder",
				fmt.Errorf("order %s status unknown: %w", clientOrderID, errors.Join(err, lookupErr)))
		}
		if found {
			l.Warn("Order was placed despite the failed create", zap.String("order_id", id), zap.Error(err))
			return id, nil
		}
		if duplicate || attempt+1 >= c.maxRetries {
			l.Error("Failed to create order", zap.Int("attempts", attempt+1), zap.Error(err))
			return "", err
		}

		wait := c.backoff(attempt)
		l.Warn("Order not on the exchange, resending", zap.Int("attempt", attempt+1),
			zap.Duration("retry_after", wait), zap.Error(err))
		if err := sleep(ctx, wait); err != nil {
			return "", exchange.NewTransientError("CreateOrder", err)
		}
	}
}

// findOrder looks an order up by its client order id. found is false when the
// exchange reports that the order does not exist.
func (c *RestClient) findOrder(ctx context.Context, marketID, clientOrderID string) (id string, found bool, err error) {
	params := url.Values{}
	params.Set("symbol", marketID)
	params.Set("origClientOrderId", clientOrderID)

	resp, err := c.doRequest(ctx, "FindOrder", http.MethodGet, "/order", func() *resty.Request {
		return c.client.R().
			SetHeader(apiKeyHeader, c.apiKey).
			SetQueryString(c.signedParams(params)).
			SetResult(&CreateOrderResponse{})
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == codeNoSuchOrder {
			return "", false, nil
		}
		return "", false, err
	}

	result := resp.Result().(*CreateOrderResponse)
	if result.OrderID == 0 {
		return "", false, exchange.NewFatalError("FindOrder", errors.New("response carries no order id"))
	}
	return strconv.FormatInt(result.OrderID, 10), true, nil
}

// APIError is the error payload Binance sends with non-2xx responses.
type APIError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("code %d: %s", e.Code, e.Msg)
}

func isDuplicateOrder(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == codeOrderRejected &&
		strings.Contains(strings.ToLower(apiErr.Msg), "duplicate")
}

type openOrderResponse struct {
	Symbol      string          `json:"symbol"`
	OrderID     int64           `json:"orderId"`
	Side        string          `json:"side"`
	Price       decimal.Decimal `json:"price"`
	OrigQty     decimal.Decimal `json:"origQty"`
	ExecutedQty decimal.Decimal `json:"executedQty"`
	Time        int64           `json:"time"`
}

func (c *RestClient) GetOpenOrders(ctx context.Context, marketID string) ([]exchange.OpenOrder, error) {
	params := url.Values{}
	params.Set("symbol", marketID)

	resp, err := c.doRequest(ctx, "GetOpenOrders", http.MethodGet, "/openOrders", func() *resty.Request {
		var orders []openOrderResponse
		return c.client.R().
			SetHeader(apiKeyHeader, c.apiKey).
			SetQueryString(c.signedParams(params)).
			SetResult(&orders)
	})
	if err != nil {
		return nil, err
	}

	raw := *resp.Result().(*[]openOrderResponse)
	orders := make([]exchange.OpenOrder, 0, len(raw))
	for _, o := range raw {
		orders = append(orders, exchange.OpenOrder{
			ID:        strconv.FormatInt(o.OrderID, 10),
			MarketID:  o.Symbol,
			Side:      exchange.OrderSide(o.Side),
			Price:     o.Price,
			Quantity:  o.OrigQty.Sub(o.ExecutedQty),
			CreatedAt: time.UnixMilli(o.Time),
		})
	}
	return orders, nil
}

// ExchangeInfoResponse represents the response from the /exchangeInfo endpoint.
type ExchangeInfoResponse struct {
	Symbols []SymbolInfo `json:"symbols"`
}

// SymbolInfo contains information about a specific trading symbol.
type SymbolInfo struct {
	Symbol     string `json:"symbol"`
	Status     string `json:"status"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
}

// CheckMarkets verifies that every symbol exists and is trading.
func (c *RestClient) CheckMarkets(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}

	resp, err := c.doRequest(ctx, "CheckMarkets", http.MethodGet, "/exchangeInfo", func() *resty.Request {
		return c.client.R().
			SetQueryParam("symbols", `["`+strings.Join(symbols, `","`)+`"]`).
			SetResult(&ExchangeInfoResponse{})
	})
	if err != nil {
		return err
	}

	status := make(map[string]string)
	for _, s := range resp.Result().(*ExchangeInfoResponse).Symbols {
		status[s.Symbol] = s.Status
	}
	var errs []error
	for _, symbol := range symbols {
		st, ok := status[symbol]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("symbol %s is not listed", symbol))
		case st != symbolTrading:
			errs = append(errs, fmt.Errorf("symbol %s is not trading (status %s)", symbol, st))
		}
	}
	return errors.Join(errs...)
}

// doRequest handles the actual request execution with rate limiting and retry logic.
// newReq is called for every attempt so signed requests carry a fresh timestamp.
// Retryable failures that outlast the retries come back as transient errors,
// everything else as fatal.
func (c *RestClient) doRequest(ctx context.Context, op, method, url string, newReq func() *resty.Request) (*resty.Response, error) {
	return c.doRequestAttempts(ctx, op, method, url, c.maxRetries, newReq)
}

func (c *RestClient) doRequestAttempts(ctx context.Context, op, method, url string, attempts int, newReq func() *resty.Request) (*resty.Response, error) {
	var lastErr error

	for i := 0; i < attempts; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, exchange.NewTransientError(op, fmt.Errorf("rate limiter wait failed: %w", err))
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err := newReq().SetContext(ctx).SetError(&APIError{}).Execute(method, url)

		// Analyze error and decide whether to retry
		var retryAfter time.Duration

		switch {
		case resp == nil || resp.RawResponse == nil:
			// Network or other client-side errors
			if ctx.Err() != nil {
				return nil, exchange.NewTransientError(op, ctx.Err())
			}
			lastErr = err
		case resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() == http.StatusTeapot:
			if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
			lastErr = fmt.Errorf("rate limited with status %s", resp.Status())
		case resp.StatusCode() >= http.StatusInternalServerError:
			lastErr = fmt.Errorf("server error with status %s: %s", resp.Status(), resp.String())
		case resp.IsError():
			if apiErr, ok := resp.Error().(*APIError); ok && apiErr.Code != 0 {
				return nil, exchange.NewFatalError(op, fmt.Errorf("request failed with status %s: %w", resp.Status(), apiErr))
			}
			return nil, exchange.NewFatalError(op, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String()))
		case err != nil:
			// 2xx with a body that does not decode
			return nil, exchange.NewFatalError(op, fmt.Errorf("malformed response: %w", err))
		default:
			return resp, nil // Success
		}

		if i == attempts-1 {
			break
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			retryAfter = c.backoff(i)
		}

		c.logger.Warn("Request failed, retrying...",
			zap.String("op", op),
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(lastErr),
		)

		if err := sleep(ctx, retryAfter); err != nil {
			return nil, exchange.NewTransientError(op, err)
		}
	}

	return nil, exchange.NewTransientError(op, fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr))
}

// backoff is exponential: 1s, 2s, 4s with the default base.
func (c *RestClient) backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * c.baseBackoff
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
