package domain

import (
	"context"
	"time"
)

// CallRepository is the durable store of trading calls. Every query that
// feeds the engine excludes closed calls; a closed call is never acted on
// again.
type CallRepository interface {
	// Create inserts a new call and assigns its ID.
	Create(ctx context.Context, call *TradingCall) error

	// FindUnseen returns calls with no entry order, created within the
	// lookback window and not flagged bragged, ordered by id. latestFirst
	// selects descending order. limit caps the result.
	FindUnseen(ctx context.Context, lookback time.Duration, limit int, latestFirst bool) ([]*TradingCall, error)

	// FindEntryPending returns open calls whose entry order has been
	// submitted but no exit leg exists yet.
	FindEntryPending(ctx context.Context) ([]*TradingCall, error)

	// FindExitPending returns open calls with at least one exit leg.
	FindExitPending(ctx context.Context) ([]*TradingCall, error)

	// Save persists the full current state of a call, atomically per call.
	Save(ctx context.Context, call *TradingCall) error
}
