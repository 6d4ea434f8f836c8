package binance

import (
	"time"

	"callbot/internal/domain"
)

// orderPayload is the venue order document. Spot and futures disagree on
// which timestamp field is present (time / updateTime on queries,
// transactTime on placement responses), so normalization picks the first
// populated one.
type orderPayload struct {
	OrderID      int64  `json:"orderId"`
	Symbol       string `json:"symbol"`
	Side         string `json:"side"`
	Type         string `json:"type"`
	Status       string `json:"status"`
	Price        string `json:"price"`
	OrigQty      string `json:"origQty"`
	ExecutedQty  string `json:"executedQty"`
	Time         int64  `json:"time"`
	TransactTime int64  `json:"transactTime"`
	UpdateTime   int64  `json:"updateTime"`
}

func (p *orderPayload) toRecord() (*domain.OrderRecord, error) {
	created := p.Time
	if created == 0 {
		created = p.TransactTime
	}
	if created == 0 {
		created = p.UpdateTime
	}

	price, err := parseAmount(p.Price)
	if err != nil {
		return nil, err
	}
	origQty, err := parseAmount(p.OrigQty)
	if err != nil {
		return nil, err
	}
	executedQty, err := parseAmount(p.ExecutedQty)
	if err != nil {
		return nil, err
	}

	return &domain.OrderRecord{
		OrderID:     p.OrderID,
		Symbol:      p.Symbol,
		Side:        p.Side,
		Type:        p.Type,
		Status:      p.Status,
		Price:       price,
		OrigQty:     origQty,
		ExecutedQty: executedQty,
		CreatedAt:   time.UnixMilli(created),
	}, nil
}

// exchangeInfoPayload carries the per-symbol filters from exchangeInfo.
type exchangeInfoPayload struct {
	Symbols []struct {
		Symbol  string `json:"symbol"`
		Filters []struct {
			FilterType string `json:"filterType"`
			StepSize   string `json:"stepSize"`
			TickSize   string `json:"tickSize"`
		} `json:"filters"`
	} `json:"symbols"`
}

func (p *exchangeInfoPayload) filters() (domain.SymbolFilters, bool) {
	if len(p.Symbols) == 0 {
		return domain.SymbolFilters{}, false
	}
	var out domain.SymbolFilters
	for _, f := range p.Symbols[0].Filters {
		switch f.FilterType {
		case "LOT_SIZE":
			out.StepSize = f.StepSize
		case "PRICE_FILTER":
			out.TickSize = f.TickSize
		}
	}
	return out, out.StepSize != "" && out.TickSize != ""
}

// fillPayload is one execution from myTrades / userTrades.
type fillPayload struct {
	Qty             string `json:"qty"`
	Commission      string `json:"commission"`
	CommissionAsset string `json:"commissionAsset"`
}

func toFills(payloads []fillPayload) ([]domain.Fill, error) {
	fills := make([]domain.Fill, 0, len(payloads))
	for _, p := range payloads {
		qty, err := parseAmount(p.Qty)
		if err != nil {
			return nil, err
		}
		commission, err := parseAmount(p.Commission)
		if err != nil {
			return nil, err
		}
		fills = append(fills, domain.Fill{
			Quantity:        qty,
			Commission:      commission,
			CommissionAsset: p.CommissionAsset,
		})
	}
	return fills, nil
}
