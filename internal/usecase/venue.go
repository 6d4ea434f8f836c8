package usecase

import (
	"context"
	"fmt"
	"strings"

	"callbot/internal/domain"
	"callbot/internal/infrastructure/binance"
)

// Venue captures the differences between trading venues so one engine serves
// both: how exits are structured and how the net filled quantity is derived
// from an entry fill.
type Venue interface {
	Name() string

	// SplitExitLegs reports whether exits are submitted as two independent
	// legs (take-profit and stop-loss) right after the entry fills. Venues
	// without a resting stop leg rely on the engine's per-step price sweep
	// instead.
	SplitExitLegs() bool

	// NetFillQuantity returns the entry fill quantity net of execution fees,
	// i.e. the amount actually available to exit.
	NetFillQuantity(ctx context.Context, call *domain.TradingCall) (float64, error)

	// PrepareEntry runs venue-specific setup before an entry order is placed.
	PrepareEntry(ctx context.Context, symbol string) error
}

// SpotVenue trades the spot market. Fees on spot fills are deducted from the
// received asset, so the net quantity comes from the order's trade-level
// commissions.
type SpotVenue struct {
	gw         domain.Gateway
	quoteAsset string
}

func NewSpotVenue(gw domain.Gateway, quoteAsset string) *SpotVenue {
	return &SpotVenue{gw: gw, quoteAsset: quoteAsset}
}

func (v *SpotVenue) Name() string { return "spot" }

func (v *SpotVenue) SplitExitLegs() bool { return false }

func (v *SpotVenue) PrepareEntry(context.Context, string) error { return nil }

func (v *SpotVenue) NetFillQuantity(ctx context.Context, call *domain.TradingCall) (float64, error) {
	if call.EntryOrder == nil {
		return 0, fmt.Errorf("call %d has no entry order", call.ID)
	}

	fills, err := v.gw.Fills(ctx, call.Symbol, call.EntryOrder.OrderID)
	if err != nil {
		return 0, err
	}

	// Only commissions charged in the purchased base asset reduce the
	// position; fees paid in BNB or the quote asset do not.
	baseAsset := strings.TrimSuffix(call.Symbol, v.quoteAsset)
	qty := call.EntryOrder.ExecutedQty
	for _, fill := range fills {
		if fill.CommissionAsset == baseAsset {
			qty -= fill.Commission
		}
	}
	return qty, nil
}

// LeverageSetter is the slice of the futures gateway the venue needs for
// entry setup. *binance.FuturesClient satisfies it.
type LeverageSetter interface {
	SetLeverage(ctx context.Context, symbol string, leverage int) error
}

// FuturesVenue trades USD-M futures with leverage. Position quantity is not
// reduced by fees (they are charged in the quote asset), but a flat rate is
// still applied so the reduce-only exit never exceeds the position.
type FuturesVenue struct {
	gw       LeverageSetter
	feeRate  float64
	leverage int
}

func NewFuturesVenue(gw LeverageSetter, feeRate float64, leverage int) *FuturesVenue {
	return &FuturesVenue{gw: gw, feeRate: feeRate, leverage: leverage}
}

var _ LeverageSetter = (*binance.FuturesClient)(nil)

func (v *FuturesVenue) Name() string { return "futures" }

func (v *FuturesVenue) SplitExitLegs() bool { return true }

func (v *FuturesVenue) PrepareEntry(ctx context.Context, symbol string) error {
	return v.gw.SetLeverage(ctx, symbol, v.leverage)
}

func (v *FuturesVenue) NetFillQuantity(_ context.Context, call *domain.TradingCall) (float64, error) {
	if call.EntryOrder == nil {
		return 0, fmt.Errorf("call %d has no entry order", call.ID)
	}
	return call.EntryOrder.ExecutedQty * (1 - v.feeRate), nil
}
