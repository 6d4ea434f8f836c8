package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"callbot/internal/domain"
)

func TestSpotClient_MarkPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/avgPrice" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "LTCUSDT" {
			t.Errorf("symbol = %s", got)
		}
		w.Write([]byte(`{"mins":5,"price":"87.31000000"}`))
	}))
	defer srv.Close()

	c := NewSpotClient("key", "secret", srv.URL)
	price, err := c.MarkPrice(context.Background(), "LTCUSDT")
	if err != nil {
		t.Fatalf("MarkPrice error: %v", err)
	}
	if price != 87.31 {
		t.Errorf("price = %v, want 87.31", price)
	}
}

func TestSpotClient_SignsAndAuthenticates(t *testing.T) {
	const secret = "7ad9c14f64200f8e459ad5ae4700a6f7"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-MBX-APIKEY"); got != "api-key" {
			t.Errorf("X-MBX-APIKEY = %q", got)
		}

		q := r.URL.Query()
		sig := q.Get("signature")
		if sig == "" {
			t.Fatal("request not signed")
		}
		if q.Get("timestamp") == "" {
			t.Error("timestamp missing")
		}

		// The signature must cover the query string minus the signature itself.
		unsigned := r.URL.Query()
		unsigned.Del("signature")
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(unsigned.Encode()))
		if want := hex.EncodeToString(mac.Sum(nil)); sig != want {
			t.Errorf("signature = %s, want %s", sig, want)
		}

		w.Write([]byte(`{"balances":[{"asset":"USDT","free":"350.00000000"}]}`))
	}))
	defer srv.Close()

	c := NewSpotClient("api-key", secret, srv.URL)
	bal, err := c.AvailableBalance(context.Background(), "USDT")
	if err != nil {
		t.Fatalf("AvailableBalance error: %v", err)
	}
	if bal != 350 {
		t.Errorf("balance = %v, want 350", bal)
	}
}

func TestSpotClient_GetOrderNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"orderId": 28,
			"symbol": "LTCUSDT",
			"side": "BUY",
			"type": "LIMIT",
			"status": "FILLED",
			"price": "90.00000000",
			"origQty": "1.11000000",
			"executedQty": "1.11000000",
			"time": 1700000000000,
			"updateTime": 1700000060000
		}`))
	}))
	defer srv.Close()

	c := NewSpotClient("key", "secret", srv.URL)
	order, err := c.GetOrder(context.Background(), "LTCUSDT", 28)
	if err != nil {
		t.Fatalf("GetOrder error: %v", err)
	}

	if order.OrderID != 28 || order.Status != domain.OrderStatusFilled {
		t.Errorf("order = %+v", order)
	}
	if order.ExecutedQty != 1.11 {
		t.Errorf("ExecutedQty = %v, want 1.11", order.ExecutedQty)
	}
	if order.CreatedAt.UnixMilli() != 1700000000000 {
		t.Errorf("CreatedAt = %v, want the order's time field", order.CreatedAt)
	}
}

// Placement responses carry transactTime instead of time.
func TestSpotClient_PlaceOrderUsesTransactTime(t *testing.T) {
	var gotParams url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotParams = r.URL.Query()
		w.Write([]byte(`{
			"orderId": 4077,
			"symbol": "LTCUSDT",
			"side": "BUY",
			"type": "LIMIT",
			"status": "NEW",
			"price": "92.00000000",
			"origQty": "1.08000000",
			"executedQty": "0.00000000",
			"transactTime": 1700000123000
		}`))
	}))
	defer srv.Close()

	c := NewSpotClient("key", "secret", srv.URL)
	order, err := c.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol:      "LTCUSDT",
		Side:        domain.SideBuy,
		Type:        domain.OrderTypeLimit,
		Quantity:    1.08,
		Price:       92,
		TimeInForce: "GTC",
	})
	if err != nil {
		t.Fatalf("PlaceOrder error: %v", err)
	}

	if order.CreatedAt.UnixMilli() != 1700000123000 {
		t.Errorf("CreatedAt = %v, want transactTime", order.CreatedAt)
	}
	if gotParams.Get("timeInForce") != "GTC" {
		t.Errorf("timeInForce = %q, want GTC", gotParams.Get("timeInForce"))
	}
	if gotParams.Get("quantity") != "1.08" {
		t.Errorf("quantity = %q, want 1.08", gotParams.Get("quantity"))
	}
}

func TestAPIErrorParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1013,"msg":"Filter failure: MIN_NOTIONAL"}`))
	}))
	defer srv.Close()

	c := NewSpotClient("key", "secret", srv.URL)
	_, err := c.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol: "LTCUSDT", Side: domain.SideBuy, Type: domain.OrderTypeMarket, Quantity: 0.001,
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Code != -1013 {
		t.Errorf("Code = %d, want -1013", apiErr.Code)
	}
}

func TestFuturesClient_PlaceStopMarketOrder(t *testing.T) {
	var gotParams url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotParams = r.URL.Query()
		w.Write([]byte(`{
			"orderId": 991,
			"symbol": "TRXUSDT",
			"side": "SELL",
			"type": "STOP_MARKET",
			"status": "NEW",
			"price": "0",
			"origQty": "10000",
			"executedQty": "0",
			"updateTime": 1700000500000
		}`))
	}))
	defer srv.Close()

	c := NewFuturesClient("key", "secret", srv.URL)
	order, err := c.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol:     "TRXUSDT",
		Side:       domain.SideSell,
		Type:       domain.OrderTypeStopMarket,
		Quantity:   10000,
		StopPrice:  0.0547,
		ReduceOnly: true,
	})
	if err != nil {
		t.Fatalf("PlaceOrder error: %v", err)
	}

	if gotParams.Get("reduceOnly") != "true" {
		t.Error("reduceOnly not set")
	}
	if gotParams.Get("stopPrice") != "0.0547" {
		t.Errorf("stopPrice = %q", gotParams.Get("stopPrice"))
	}
	if gotParams.Get("workingType") != "MARK_PRICE" {
		t.Errorf("workingType = %q", gotParams.Get("workingType"))
	}
	if order.OrderID != 991 || order.Status != domain.OrderStatusNew {
		t.Errorf("order = %+v", order)
	}
}

func TestFuturesClient_AvailableBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"asset":"BNB","availableBalance":"0.5"},
			{"asset":"USDT","availableBalance":"412.75"}
		]`))
	}))
	defer srv.Close()

	c := NewFuturesClient("key", "secret", srv.URL)
	bal, err := c.AvailableBalance(context.Background(), "USDT")
	if err != nil {
		t.Fatalf("AvailableBalance error: %v", err)
	}
	if bal != 412.75 {
		t.Errorf("balance = %v, want 412.75", bal)
	}
}

func TestExchangeInfoFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbols":[{"symbol":"LTCUSDT","filters":[
			{"filterType":"PRICE_FILTER","tickSize":"0.01000000"},
			{"filterType":"LOT_SIZE","stepSize":"0.00100000"},
			{"filterType":"MIN_NOTIONAL","minNotional":"5.00000000"}
		]}]}`))
	}))
	defer srv.Close()

	c := NewSpotClient("key", "secret", srv.URL)
	filters, err := c.SymbolFilters(context.Background(), "LTCUSDT")
	if err != nil {
		t.Fatalf("SymbolFilters error: %v", err)
	}
	if filters.StepSize != "0.00100000" || filters.TickSize != "0.01000000" {
		t.Errorf("filters = %+v", filters)
	}
}

func TestSpotClient_GetOrderRejectsMalformedAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"orderId":7,"symbol":"BTCUSDT","status":"NEW","price":"not-a-number","origQty":"1.0","executedQty":"0.0"}`))
	}))
	defer srv.Close()

	c := NewSpotClient("key", "secret", srv.URL)
	if _, err := c.GetOrder(context.Background(), "BTCUSDT", 7); err == nil {
		t.Fatal("expected error for malformed price, got nil")
	}
}
