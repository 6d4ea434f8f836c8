package usecase

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"callbot/internal/domain"
	"callbot/internal/quantize"
)

// Closing reasons written onto calls the engine retires.
const (
	reasonTakeProfit    = "take profit filled"
	reasonStopLoss      = "stop loss"
	reasonEntryExpired  = "entry order expired"
	reasonEntryCanceled = "entry order canceled"
	reasonExitExpired   = "exit order expired"
)

// Notifier receives announcements about closed calls. Implementations must
// not block the step.
type Notifier interface {
	CallClosed(call *domain.TradingCall)
}

// EngineConfig holds the engine's tunables.
type EngineConfig struct {
	// OrderSize is the quote notional of one entry order.
	OrderSize float64

	// QuoteAsset funds entries; the balance cap is measured in it.
	QuoteAsset string

	// Lookback bounds how stale an unseen call may be.
	Lookback time.Duration

	// OrderExpiry retires orders that stay NEW longer than this.
	OrderExpiry time.Duration

	// TargetIndex selects the active take-profit level.
	TargetIndex int

	// LatestFirst orders new-entry selection by call id descending.
	LatestFirst bool
}

// Engine drives every open trading call through its lifecycle, one step at a
// time. The gateway is ground truth for order status; the repository is the
// engine's memory of intent. A call's state is only persisted after the
// corresponding external operation succeeded.
type Engine struct {
	repo   domain.CallRepository
	gw     domain.Gateway
	venue  Venue
	cfg    EngineConfig
	log    *logrus.Logger
	notify Notifier
}

func NewEngine(repo domain.CallRepository, gw domain.Gateway, venue Venue, cfg EngineConfig, log *logrus.Logger) *Engine {
	return &Engine{
		repo:  repo,
		gw:    gw,
		venue: venue,
		cfg:   cfg,
		log:   log,
	}
}

// SetNotifier attaches an optional close announcer.
func (e *Engine) SetNotifier(n Notifier) { e.notify = n }

// Step runs one reconciliation pass. Gateway failures are logged and leave
// the affected call untouched for the next step; a store failure aborts the
// step because consistency cannot be guaranteed without a successful write.
func (e *Engine) Step(ctx context.Context) error {
	e.log.Debug("--- new step ---")

	filled, err := e.pollEntryOrders(ctx)
	if err != nil {
		return err
	}
	if err := e.pollExitOrders(ctx); err != nil {
		return err
	}
	if err := e.placeExitOrders(ctx, filled); err != nil {
		return err
	}
	if err := e.expireEntryOrders(ctx); err != nil {
		return err
	}
	if err := e.expireExitOrders(ctx); err != nil {
		return err
	}
	if !e.venue.SplitExitLegs() {
		// Venues with a resting stop leg have their stop on the exchange;
		// everyone else gets the engine's price sweep.
		if err := e.sweepStopLosses(ctx); err != nil {
			return err
		}
	}
	return e.placeEntryOrders(ctx)
}

// pollEntryOrders refreshes the status of every pending entry order and
// returns the calls whose entries are now filled.
func (e *Engine) pollEntryOrders(ctx context.Context) ([]*domain.TradingCall, error) {
	calls, err := e.repo.FindEntryPending(ctx)
	if err != nil {
		return nil, err
	}

	var filled []*domain.TradingCall
	for _, call := range calls {
		if call.EntryOrder == nil {
			continue
		}
		if call.EntryOrder.IsOpen() {
			order, err := e.gw.GetOrder(ctx, call.Symbol, call.EntryOrder.OrderID)
			if err != nil {
				e.callLog(call).WithError(err).Warn("entry order query failed")
				continue
			}
			if order.Status != call.EntryOrder.Status {
				call.EntryOrder = order
				if err := e.repo.Save(ctx, call); err != nil {
					return nil, err
				}
				e.callLog(call).WithField("status", order.Status).Info("entry order status changed")
			}
		}
		if call.EntryOrder.IsFilled() {
			filled = append(filled, call)
			continue
		}
		// Terminal without a fill (canceled or expired venue-side, or
		// rejected): nothing will ever progress this entry, retire the call.
		if !call.EntryOrder.IsOpen() {
			call.Close(reasonEntryCanceled)
			if err := e.repo.Save(ctx, call); err != nil {
				return nil, err
			}
			e.callLog(call).WithField("status", call.EntryOrder.Status).Info("entry order gone, call retired")
			e.announceClose(call)
		}
	}
	return filled, nil
}

// pollExitOrders refreshes every exit leg. A filled leg closes the call;
// closed is computed as "previously closed OR filled" so a stale query can
// never reopen a call.
func (e *Engine) pollExitOrders(ctx context.Context) error {
	calls, err := e.repo.FindExitPending(ctx)
	if err != nil {
		return err
	}

	for _, call := range calls {
		legs := []struct {
			name   string
			rec    **domain.OrderRecord
			reason string
		}{
			{"take_profit", &call.TakeProfitOrder, reasonTakeProfit},
			{"stop_loss", &call.StopLossOrder, reasonStopLoss},
		}

		changed := false
		for _, leg := range legs {
			rec := *leg.rec
			if rec == nil {
				continue
			}
			if rec.IsOpen() {
				order, err := e.gw.GetOrder(ctx, call.Symbol, rec.OrderID)
				if err != nil {
					e.callLog(call).WithError(err).WithField("leg", leg.name).Warn("exit order query failed")
					continue
				}
				if order.Status != rec.Status {
					*leg.rec = order
					changed = true
					e.callLog(call).WithFields(logrus.Fields{"leg": leg.name, "status": order.Status}).Info("exit order status changed")
				}
			}
			// Closing is derived from the persisted leg, not from a status
			// transition, so a leg already recorded as filled still retires
			// the call even after a crash between save and close.
			if (*leg.rec).IsFilled() && !call.Closed {
				call.Close(leg.reason)
				changed = true
			}
		}

		if changed {
			if err := e.repo.Save(ctx, call); err != nil {
				return err
			}
			if call.Closed {
				e.announceClose(call)
			}
		}
	}
	return nil
}

// placeExitOrders submits exit legs for freshly filled entries and retries
// any stop leg a previous step failed to place.
func (e *Engine) placeExitOrders(ctx context.Context, filled []*domain.TradingCall) error {
	for _, call := range filled {
		if err := e.ensureExitLegs(ctx, call); err != nil {
			return err
		}
	}

	if !e.venue.SplitExitLegs() {
		return nil
	}
	pending, err := e.repo.FindExitPending(ctx)
	if err != nil {
		return err
	}
	for _, call := range pending {
		if call.StopLossOrder == nil && call.TakeProfitOrder != nil &&
			call.TakeProfitOrder.Type == domain.OrderTypeTakeProfit {
			if err := e.ensureExitLegs(ctx, call); err != nil {
				return err
			}
		}
	}
	return nil
}

// ensureExitLegs places whatever exit legs the call is missing. The exit is
// priced at the active target; if the market has already moved through the
// target, a resting limit either won't fill as intended or marks a missed
// move, so the position is flattened at market instead.
func (e *Engine) ensureExitLegs(ctx context.Context, call *domain.TradingCall) error {
	filters, err := e.gw.SymbolFilters(ctx, call.Symbol)
	if err != nil {
		e.callLog(call).WithError(err).Warn("symbol filters query failed")
		return nil
	}

	target := quantize.Price(call.ActiveTarget(e.cfg.TargetIndex), filters.TickSize)
	if target <= 0 {
		e.callLog(call).Warn("call has no usable take-profit target")
		return nil
	}

	placed := false
	if call.TakeProfitOrder == nil {
		rawQty, err := e.venue.NetFillQuantity(ctx, call)
		if err != nil {
			e.callLog(call).WithError(err).Warn("net fill quantity lookup failed")
			return nil
		}
		qty := quantize.Quantity(rawQty, filters.StepSize)

		mark, err := e.gw.MarkPrice(ctx, call.Symbol)
		if err != nil {
			e.callLog(call).WithError(err).Warn("mark price query failed")
			return nil
		}

		req := domain.OrderRequest{
			Symbol:     call.Symbol,
			Side:       call.Side.Opposite(),
			Quantity:   qty,
			ReduceOnly: e.venue.SplitExitLegs(),
		}
		if mark > target {
			req.Type = domain.OrderTypeMarket
		} else if e.venue.SplitExitLegs() {
			req.Type = domain.OrderTypeTakeProfit
			req.Price = target
			req.StopPrice = target
			req.TimeInForce = "GTC"
		} else {
			req.Type = domain.OrderTypeLimit
			req.Price = target
			req.TimeInForce = "GTC"
		}

		order, err := e.gw.PlaceOrder(ctx, req)
		if err != nil {
			e.callLog(call).WithError(err).WithField("request", req).Error("could not place exit order")
			return nil
		}
		call.TakeProfitOrder = order
		placed = true
		e.callLog(call).WithFields(logrus.Fields{"order": order.OrderID, "type": req.Type}).Info("exit order placed")
		if order.IsFilled() {
			// Market exits can come back filled in the placement response.
			call.Close(reasonTakeProfit)
		}
	}

	// Second leg: a venue-resident stop. Skipped when the exit already went
	// out as a market flatten.
	if e.venue.SplitExitLegs() && call.StopLossOrder == nil &&
		call.TakeProfitOrder != nil && call.TakeProfitOrder.Type == domain.OrderTypeTakeProfit {
		stopPrice := quantize.Price(call.StopLoss, filters.TickSize)
		req := domain.OrderRequest{
			Symbol:     call.Symbol,
			Side:       call.Side.Opposite(),
			Type:       domain.OrderTypeStopMarket,
			Quantity:   call.TakeProfitOrder.OrigQty,
			StopPrice:  stopPrice,
			ReduceOnly: true,
		}
		order, err := e.gw.PlaceOrder(ctx, req)
		if err != nil {
			// The take-profit leg is already resting; this leg is retried
			// next step, but until then the position has no stop.
			e.callLog(call).WithError(err).Error("CRITICAL: stop leg placement failed")
		} else {
			call.StopLossOrder = order
			placed = true
			e.callLog(call).WithField("order", order.OrderID).Info("stop leg placed")
		}
	}

	if !placed {
		return nil
	}
	if err := e.repo.Save(ctx, call); err != nil {
		return err
	}
	if call.Closed {
		e.announceClose(call)
	}
	return nil
}

// expireEntryOrders cancels and retires entries that stayed NEW past the
// expiry threshold. The cancel may race a fill; per design the call closes
// regardless, an entry that never progressed is not retried indefinitely.
func (e *Engine) expireEntryOrders(ctx context.Context) error {
	calls, err := e.repo.FindEntryPending(ctx)
	if err != nil {
		return err
	}

	for _, call := range calls {
		o := call.EntryOrder
		if o == nil || o.Status != domain.OrderStatusNew {
			continue
		}
		if time.Since(o.CreatedAt) <= e.cfg.OrderExpiry {
			continue
		}

		if _, err := e.gw.CancelOrder(ctx, call.Symbol, o.OrderID); err != nil {
			e.callLog(call).WithError(err).Info("entry order cancel failed")
		}
		call.Close(reasonEntryExpired)
		if err := e.repo.Save(ctx, call); err != nil {
			return err
		}
		e.callLog(call).Info("entry order expired, call retired")
		e.announceClose(call)
	}
	return nil
}

// expireExitOrders handles exits that never filled: cancel whatever legs are
// still working and flatten the position at market. Leaving a position open
// with no exit working is unacceptable, leveraged or not.
func (e *Engine) expireExitOrders(ctx context.Context) error {
	calls, err := e.repo.FindExitPending(ctx)
	if err != nil {
		return err
	}

	for _, call := range calls {
		if !e.exitExpired(call) {
			continue
		}

		for _, rec := range []*domain.OrderRecord{call.TakeProfitOrder, call.StopLossOrder} {
			if rec == nil || !rec.IsOpen() {
				continue
			}
			if _, err := e.gw.CancelOrder(ctx, call.Symbol, rec.OrderID); err != nil {
				e.callLog(call).WithError(err).Info("exit order cancel failed")
			}
		}

		if err := e.flatten(ctx, call, reasonExitExpired); err != nil {
			return err
		}
	}
	return nil
}

// exitExpired reports whether every exit leg has gone stale: none filled and
// the exit was submitted longer ago than the expiry threshold.
func (e *Engine) exitExpired(call *domain.TradingCall) bool {
	ref := call.TakeProfitOrder
	if ref == nil {
		ref = call.StopLossOrder
	}
	if ref == nil {
		return false
	}
	for _, rec := range []*domain.OrderRecord{call.TakeProfitOrder, call.StopLossOrder} {
		if rec != nil && (rec.IsFilled() || rec.Status == domain.OrderStatusPartiallyFilled) {
			return false
		}
	}
	return time.Since(ref.CreatedAt) > e.cfg.OrderExpiry
}

// sweepStopLosses force-closes any call whose mark price fell below its stop,
// regardless of the resting exit order's own status. Stop-loss preempts a
// limit order that has not filled yet.
func (e *Engine) sweepStopLosses(ctx context.Context) error {
	calls, err := e.repo.FindExitPending(ctx)
	if err != nil {
		return err
	}

	for _, call := range calls {
		mark, err := e.gw.MarkPrice(ctx, call.Symbol)
		if err != nil {
			e.callLog(call).WithError(err).Warn("mark price query failed")
			continue
		}
		if mark >= call.StopLoss {
			continue
		}

		e.callLog(call).WithFields(logrus.Fields{"mark": mark, "stop": call.StopLoss}).Info("stop loss triggered")
		if call.TakeProfitOrder != nil && call.TakeProfitOrder.IsOpen() {
			if _, err := e.gw.CancelOrder(ctx, call.Symbol, call.TakeProfitOrder.OrderID); err != nil {
				e.callLog(call).WithError(err).Info("exit order cancel failed")
			}
		}
		if err := e.flatten(ctx, call, reasonStopLoss); err != nil {
			return err
		}
	}
	return nil
}

// flatten market-closes the call's full exit quantity and retires it. On
// gateway failure the call is left as-is and the flatten is retried next
// step; the call must not be marked closed while the position may be open.
func (e *Engine) flatten(ctx context.Context, call *domain.TradingCall, reason string) error {
	ref := call.TakeProfitOrder
	if ref == nil {
		ref = call.StopLossOrder
	}
	if ref == nil {
		return nil
	}

	order, err := e.gw.PlaceOrder(ctx, domain.OrderRequest{
		Symbol:     call.Symbol,
		Side:       call.Side.Opposite(),
		Type:       domain.OrderTypeMarket,
		Quantity:   ref.OrigQty,
		ReduceOnly: e.venue.SplitExitLegs(),
	})
	if err != nil {
		e.callLog(call).WithError(err).Error("could not flatten position")
		return nil
	}

	call.StopLossOrder = order
	call.Close(reason)
	if err := e.repo.Save(ctx, call); err != nil {
		return err
	}
	e.callLog(call).WithField("reason", reason).Info("call closed")
	e.announceClose(call)
	return nil
}

// placeEntryOrders funds and submits entries for viable unseen calls. The
// number of candidates is hard-capped by the balance actually available.
func (e *Engine) placeEntryOrders(ctx context.Context) error {
	balance, err := e.gw.AvailableBalance(ctx, e.cfg.QuoteAsset)
	if err != nil {
		e.log.WithError(err).Warn("balance query failed")
		return nil
	}
	if balance <= e.cfg.OrderSize {
		e.log.WithField("balance", balance).Debug("insufficient balance for new entries")
		return nil
	}

	limit := int(balance / e.cfg.OrderSize)
	calls, err := e.repo.FindUnseen(ctx, e.cfg.Lookback, limit, e.cfg.LatestFirst)
	if err != nil {
		return err
	}

	for _, call := range calls {
		if err := e.placeEntry(ctx, call); err != nil {
			return err
		}
	}
	return nil
}

// placeEntry submits one resting limit entry. The order is priced at the
// upper bound of the entry range, trading price for fill probability, and
// sized from the lower bound so the notional never exceeds the order size.
func (e *Engine) placeEntry(ctx context.Context, call *domain.TradingCall) error {
	if call.EntryOrder != nil || call.Side != domain.SideBuy {
		// Short entries are not supported yet.
		return nil
	}
	if call.EntryLow <= 0 || call.EntryHigh < call.EntryLow {
		// Calls come from an external parser; a degenerate range would turn
		// the quantity computation into garbage.
		e.callLog(call).WithFields(logrus.Fields{"low": call.EntryLow, "high": call.EntryHigh}).Warn("skipping, malformed entry range")
		return nil
	}

	mark, err := e.gw.MarkPrice(ctx, call.Symbol)
	if err != nil {
		e.callLog(call).WithError(err).Warn("mark price query failed")
		return nil
	}
	if !call.InEntryRange(mark) {
		e.callLog(call).WithField("mark", mark).Debug("skipping, price outside entry range")
		return nil
	}

	filters, err := e.gw.SymbolFilters(ctx, call.Symbol)
	if err != nil {
		e.callLog(call).WithError(err).Warn("symbol filters query failed")
		return nil
	}
	if err := e.venue.PrepareEntry(ctx, call.Symbol); err != nil {
		e.callLog(call).WithError(err).Warn("venue entry setup failed")
		return nil
	}

	req := domain.OrderRequest{
		Symbol:      call.Symbol,
		Side:        call.Side,
		Type:        domain.OrderTypeLimit,
		Quantity:    quantize.Quantity(e.cfg.OrderSize/call.EntryLow, filters.StepSize),
		Price:       quantize.Price(call.EntryHigh, filters.TickSize),
		TimeInForce: "GTC",
	}
	resp, err := e.gw.PlaceOrder(ctx, req)
	if err != nil {
		e.callLog(call).WithError(err).WithField("request", req).Error("could not place entry order")
		return nil
	}

	// The placement response and a later query are not guaranteed to agree
	// on all venues; re-query immediately and persist the canonical record.
	confirmed, err := e.gw.GetOrder(ctx, call.Symbol, resp.OrderID)
	if err != nil {
		e.callLog(call).WithError(err).Error("could not confirm entry order")
		return nil
	}

	call.EntryOrder = confirmed
	if err := e.repo.Save(ctx, call); err != nil {
		return err
	}
	e.callLog(call).WithFields(logrus.Fields{"order": confirmed.OrderID, "price": req.Price, "qty": req.Quantity}).Info("entry order placed")
	return nil
}

func (e *Engine) announceClose(call *domain.TradingCall) {
	if e.notify != nil {
		e.notify.CallClosed(call)
	}
}

func (e *Engine) callLog(call *domain.TradingCall) *logrus.Entry {
	return e.log.WithFields(logrus.Fields{"call": call.ID, "symbol": call.Symbol})
}
