package domain

import "time"

// Order statuses as reported by the venue. The gateway's answer is always
// authoritative; the engine never infers status locally except for
// time-based expiry decisions.
const (
	OrderStatusNew             = "NEW"
	OrderStatusPartiallyFilled = "PARTIALLY_FILLED"
	OrderStatusFilled          = "FILLED"
	OrderStatusCanceled        = "CANCELED"
	OrderStatusExpired         = "EXPIRED"
	OrderStatusRejected        = "REJECTED"
)

// Order types the engine submits.
const (
	OrderTypeLimit      = "LIMIT"
	OrderTypeMarket     = "MARKET"
	OrderTypeTakeProfit = "TAKE_PROFIT"
	OrderTypeStopMarket = "STOP_MARKET"
)

// OrderRecord is the normalized view of a venue order. Each gateway adapter
// maps its venue-specific payload (spot and futures disagree on timestamp
// and quantity keys) onto this one structure.
type OrderRecord struct {
	OrderID     int64     `json:"orderId"`
	Symbol      string    `json:"symbol"`
	Side        string    `json:"side"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Price       float64   `json:"price"`
	OrigQty     float64   `json:"origQty"`
	ExecutedQty float64   `json:"executedQty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// IsOpen reports whether the order is still working on the venue.
func (o *OrderRecord) IsOpen() bool {
	return o.Status == OrderStatusNew || o.Status == OrderStatusPartiallyFilled
}

// IsFilled reports whether the order fully executed.
func (o *OrderRecord) IsFilled() bool {
	return o.Status == OrderStatusFilled
}

// OrderRequest describes an order to be placed.
type OrderRequest struct {
	Symbol      string
	Side        Side
	Type        string
	Quantity    float64
	Price       float64 // limit price, 0 for market orders
	StopPrice   float64 // trigger price for TAKE_PROFIT / STOP_MARKET
	TimeInForce string  // "GTC" for resting limit orders
	ReduceOnly  bool    // futures only
}

// Fill is a single trade execution against an order.
type Fill struct {
	Quantity        float64
	Commission      float64
	CommissionAsset string
}

// SymbolFilters carries the venue's tick/lot constraints for an instrument.
// Step and tick are decimal strings whose fractional digits define precision.
type SymbolFilters struct {
	StepSize string // LOT_SIZE quantity step
	TickSize string // PRICE_FILTER price tick
}
