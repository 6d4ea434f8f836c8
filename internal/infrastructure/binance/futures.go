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

// FuturesClient implements domain.Gateway against the USD-M futures API
// (/fapi). It additionally supports reduce-only orders and leverage setup.
type FuturesClient struct {
	rest *restClient
}

// NewFuturesClient creates a futures gateway. baseURL may be empty for
// production or point at the testnet.
func NewFuturesClient(apiKey, secretKey, baseURL string) *FuturesClient {
	if baseURL == "" {
		baseURL = FapiBaseURL
	}
	return &FuturesClient{rest: newRestClient(apiKey, secretKey, baseURL)}
}

// MarkPrice returns the current mark price for a symbol.
func (c *FuturesClient) MarkPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.rest.public(ctx, "/fapi/v1/premiumIndex", params)
	if err != nil {
		return 0, err
	}

	var payload struct {
		MarkPrice string `json:"markPrice"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, err
	}
	return parseAmount(payload.MarkPrice)
}

// AvailableBalance returns the available balance for an asset.
func (c *FuturesClient) AvailableBalance(ctx context.Context, asset string) (float64, error) {
	body, err := c.rest.signed(ctx, http.MethodGet, "/fapi/v2/balance", nil)
	if err != nil {
		return 0, err
	}

	var payload []struct {
		Asset            string `json:"asset"`
		AvailableBalance string `json:"availableBalance"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, err
	}

	for _, b := range payload {
		if b.Asset == asset {
			return parseAmount(b.AvailableBalance)
		}
	}
	return 0, nil
}

// SymbolFilters returns the instrument's lot step and price tick.
func (c *FuturesClient) SymbolFilters(ctx context.Context, symbol string) (domain.SymbolFilters, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.rest.public(ctx, "/fapi/v1/exchangeInfo", params)
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
func (c *FuturesClient) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderRecord, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	params.Set("type", req.Type)
	params.Set("quantity", formatAmount(req.Quantity))
	params.Set("newOrderRespType", "RESULT")
	if req.ReduceOnly {
		params.Set("reduceOnly", "true")
	}
	if req.Price > 0 {
		params.Set("price", formatAmount(req.Price))
	}
	if req.StopPrice > 0 {
		params.Set("stopPrice", formatAmount(req.StopPrice))
		params.Set("workingType", "MARK_PRICE")
	}
	if req.TimeInForce != "" {
		params.Set("timeInForce", req.TimeInForce)
	}

	body, err := c.rest.signed(ctx, http.MethodPost, "/fapi/v1/order", params)
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
func (c *FuturesClient) GetOrder(ctx context.Context, symbol string, orderID int64) (*domain.OrderRecord, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))

	body, err := c.rest.signed(ctx, http.MethodGet, "/fapi/v1/order", params)
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
func (c *FuturesClient) CancelOrder(ctx context.Context, symbol string, orderID int64) (*domain.OrderRecord, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))

	body, err := c.rest.signed(ctx, http.MethodDelete, "/fapi/v1/order", params)
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
func (c *FuturesClient) Fills(ctx context.Context, symbol string, orderID int64) ([]domain.Fill, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))

	body, err := c.rest.signed(ctx, http.MethodGet, "/fapi/v1/userTrades", params)
	if err != nil {
		return nil, err
	}

	var payloads []fillPayload
	if err := json.Unmarshal(body, &payloads); err != nil {
		return nil, err
	}
	return toFills(payloads)
}

// SetLeverage sets the leverage for a symbol before an entry is placed.
func (c *FuturesClient) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("leverage", strconv.Itoa(leverage))

	_, err := c.rest.signed(ctx, http.MethodPost, "/fapi/v1/leverage", params)
	return err
}

var _ domain.Gateway = (*FuturesClient)(nil)
