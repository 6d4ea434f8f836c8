package domain

import "time"

// Side of a call's entry order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL" // reserved, short entries are not supported yet
)

// Opposite returns the side that closes a position opened with s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// CallState is the lifecycle state of a call, derived from its order fields.
// It is computed once per call per step so the transition table stays explicit
// instead of being scattered across nil checks.
type CallState int

const (
	StateUnseen CallState = iota
	StateEntryPending
	StateEntryFilled
	StateExitPending
	StateClosed
)

func (s CallState) String() string {
	switch s {
	case StateUnseen:
		return "UNSEEN"
	case StateEntryPending:
		return "ENTRY_PENDING"
	case StateEntryFilled:
		return "ENTRY_FILLED"
	case StateExitPending:
		return "EXIT_PENDING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// TradingCall is the unit of work: a parsed signal with the order state the
// engine has accumulated against it. Calls are created by an external producer
// with all order fields nil, mutated only by the reconciliation engine, and
// become immutable once Closed is true.
type TradingCall struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	EntryLow  float64   `json:"entryLow"`
	EntryHigh float64   `json:"entryHigh"`
	StopLoss  float64   `json:"stopLoss"`
	Targets   []float64 `json:"targets"`
	Timestamp time.Time `json:"timestamp"`

	EntryOrder      *OrderRecord `json:"entryOrder,omitempty"`
	TakeProfitOrder *OrderRecord `json:"takeProfitOrder,omitempty"`
	StopLossOrder   *OrderRecord `json:"stopLossOrder,omitempty"`

	Closed        bool   `json:"closed"`
	ClosingReason string `json:"closingReason"`
	Bragged       bool   `json:"bragged"`
}

// State derives the lifecycle state from the order fields.
func (c *TradingCall) State() CallState {
	switch {
	case c.Closed:
		return StateClosed
	case c.TakeProfitOrder != nil || c.StopLossOrder != nil:
		return StateExitPending
	case c.EntryOrder != nil && c.EntryOrder.Status == OrderStatusFilled:
		return StateEntryFilled
	case c.EntryOrder != nil:
		return StateEntryPending
	default:
		return StateUnseen
	}
}

// Close marks the call closed with the given reason. Closing is monotonic:
// the first reason wins and later calls are no-ops.
func (c *TradingCall) Close(reason string) {
	if c.Closed {
		return
	}
	c.Closed = true
	c.ClosingReason = reason
}

// InEntryRange reports whether price lies inside the call's entry interval.
func (c *TradingCall) InEntryRange(price float64) bool {
	return price >= c.EntryLow && price <= c.EntryHigh
}

// ActiveTarget returns the take-profit level at the configured index,
// clamped to the last target when the call carries fewer levels.
func (c *TradingCall) ActiveTarget(index int) float64 {
	if len(c.Targets) == 0 {
		return 0
	}
	if index < 0 {
		index = 0
	}
	if index >= len(c.Targets) {
		index = len(c.Targets) - 1
	}
	return c.Targets[index]
}
