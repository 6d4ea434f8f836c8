package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"callbot/internal/domain"
)

// SpotClient implements domain.Gateway against the spot API (/api/v3).
type SpotClient struct {
	rest *restClient
}

// NewSpotClient creates a spot gateway. baseURL may be empty for production
// or point at the testnet.
func NewSpotClient(apiKey, secretKey, baseURL string) *SpotClient {
	if baseURL == "" {
		baseURL = SpotBaseURL
	}
	return &SpotClient{rest: newRestClient(apiKey, secretKey, baseURL)}
}

// MarkPrice returns the current average price for a symbol.
func (c *SpotClient) MarkPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.rest.public(ctx, "/api/v3/avgPrice", params)
	if err != nil {
		return 0, err
	}

	var payload struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, err
	}
	return parseAmount(payload.Price)
}

// AvailableBalance returns the free balance for an asset.
func (c *SpotClient) AvailableBalance(ctx context.Context, asset string) (float64, error) {
	body, err := c.rest.signed(ctx, http.MethodGet, "/api/v3/account", nil)
	if err != nil {
		return 0, err
	}

	var payload struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, err
	}

	for _, b := range payload.Balances {
		if b.Asset == asset {
			return parseAmount(b.Free)
		}
	}
	return 0, nil
}

// SymbolFilters returns the instrument's lot step and price tick.
func (c *SpotClient) SymbolFilters(ctx context.Context, symbol string) (domain.SymbolFilters, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.rest.public(ctx, "/api/v3/exchangeInfo", params)
	if err != nil {
		return domain.SymbolFilters{}, err
	}

	var payload exchangeInfoPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.SymbolFilters{}, err
	}

	filters, ok := payload.filters()
	if !ok {
		return domain.SymbolFilters{}, fmt.Errorf("no filters for symbol %s", symbol)
	}
	return filters, nil
}

// PlaceOrder submits an order and returns the normalized response record.
func (c *SpotClient) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderRecord, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	params.Set("type", req.Type)
	params.Set("quantity", formatAmount(req.Quantity))
	params.Set("newOrderRespType", "FULL")
	if req.Type == domain.OrderTypeLimit {
		params.Set("price", formatAmount(req.Price))
		params.Set("timeInForce", req.TimeInForce)
	}

	body, err := c.rest.signed(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return nil, err
	}

	var payload orderPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return payload.toRecord()
}

// GetOrder queries an order by id.
func (c *SpotClient) GetOrder(ctx context.Context, symbol string, orderID int64) (*domain.OrderRecord, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))

	body, err := c.rest.signed(ctx, http.MethodGet, "/api/v3/order", params)
	if err != nil {
		return nil, err
	}

	var payload orderPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return payload.toRecord()
}

// CancelOrder cancels an order by id.
func (c *SpotClient) CancelOrder(ctx context.Context, symbol string, orderID int64) (*domain.OrderRecord, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))

	body, err := c.rest.signed(ctx, http.MethodDelete, "/api/v3/order", params)
	if err != nil {
		return nil, err
	}

	var payload orderPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return payload.toRecord()
}

// Fills returns the trade executions for an order.
func (c *SpotClient) Fills(ctx context.Context, symbol string, orderID int64) ([]domain.Fill, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))

	body, err := c.rest.signed(ctx, http.MethodGet, "/api/v3/myTrades", params)
	if err != nil {
		return nil, err
	}

	var payloads []fillPayload
	if err := json.Unmarshal(body, &payloads); err != nil {
		return nil, err
	}
	return toFills(payloads)
}

var _ domain.Gateway = (*SpotClient)(nil)
