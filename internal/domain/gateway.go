package domain

import "context"

// Gateway is the exchange capability surface the engine consumes. Adapters
// for spot and USD-M futures live in internal/infrastructure/binance.
type Gateway interface {
	// MarkPrice returns the current price for a symbol.
	MarkPrice(ctx context.Context, symbol string) (float64, error)

	// AvailableBalance returns the free balance for an asset.
	AvailableBalance(ctx context.Context, asset string) (float64, error)

	// SymbolFilters returns the instrument's tick/lot constraints.
	SymbolFilters(ctx context.Context, symbol string) (SymbolFilters, error)

	// PlaceOrder submits an order and returns the venue's response record.
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderRecord, error)

	// GetOrder queries an order by id. The returned record is canonical.
	GetOrder(ctx context.Context, symbol string, orderID int64) (*OrderRecord, error)

	// CancelOrder cancels an order by id.
	CancelOrder(ctx context.Context, symbol string, orderID int64) (*OrderRecord, error)

	// Fills returns the trade executions for an order. Used by fee-aware
	// venues to compute net filled quantity.
	Fills(ctx context.Context, symbol string, orderID int64) ([]Fill, error)
}
