package usecase

import (
	"context"
	"testing"
	"time"

	"callbot/internal/domain"
)

func filledCall(symbol string, executedQty float64) (*domain.TradingCall, *fakeGateway) {
	gw := newFakeGateway()
	call := newCall(symbol)
	call.EntryOrder = gw.seedOrder(domain.OrderRecord{
		Symbol: symbol, Status: domain.OrderStatusFilled,
		OrigQty: executedQty, ExecutedQty: executedQty, CreatedAt: time.Now(),
	})
	return call, gw
}

func TestSpotNetFillQuantity(t *testing.T) {
	tests := []struct {
		name  string
		fills []domain.Fill
		want  float64
	}{
		{
			name:  "no fills reported",
			fills: nil,
			want:  2,
		},
		{
			name: "base asset commission deducted",
			fills: []domain.Fill{
				{Quantity: 1, Commission: 0.001, CommissionAsset: "BTC"},
				{Quantity: 1, Commission: 0.002, CommissionAsset: "BTC"},
			},
			want: 1.997,
		},
		{
			name: "bnb and quote commissions ignored",
			fills: []domain.Fill{
				{Quantity: 1, Commission: 0.05, CommissionAsset: "BNB"},
				{Quantity: 1, Commission: 0.1, CommissionAsset: "USDT"},
			},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, gw := filledCall("BTCUSDT", 2)
			gw.fills[call.EntryOrder.OrderID] = tt.fills

			venue := NewSpotVenue(gw, "USDT")
			got, err := venue.NetFillQuantity(context.Background(), call)
			if err != nil {
				t.Fatalf("NetFillQuantity: %v", err)
			}
			if got != tt.want {
				t.Errorf("NetFillQuantity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpotNetFillQuantityRequiresEntry(t *testing.T) {
	venue := NewSpotVenue(newFakeGateway(), "USDT")
	if _, err := venue.NetFillQuantity(context.Background(), newCall("BTCUSDT")); err == nil {
		t.Fatal("expected error for call without entry order")
	}
}

func TestFuturesNetFillQuantityAppliesFlatRate(t *testing.T) {
	feeRate := 0.0005
	call, gw := filledCall("ETHUSDT", 10)
	venue := NewFuturesVenue(gw, feeRate, 5)

	got, err := venue.NetFillQuantity(context.Background(), call)
	if err != nil {
		t.Fatalf("NetFillQuantity: %v", err)
	}
	if want := 10 * (1 - feeRate); got != want {
		t.Errorf("NetFillQuantity = %v, want %v", got, want)
	}
}

func TestVenueExitShape(t *testing.T) {
	gw := newFakeGateway()
	if NewSpotVenue(gw, "USDT").SplitExitLegs() {
		t.Error("spot venue must not split exit legs")
	}
	if !NewFuturesVenue(gw, 0, 5).SplitExitLegs() {
		t.Error("futures venue must split exit legs")
	}
}
