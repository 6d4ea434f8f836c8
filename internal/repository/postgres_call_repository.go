package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"callbot/internal/domain"
)

// PostgresCallRepository stores trading calls in Postgres. Order records are
// kept as jsonb so the normalized structure round-trips without a column per
// field.
type PostgresCallRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresCallRepository(pool *pgxpool.Pool) *PostgresCallRepository {
	return &PostgresCallRepository{pool: pool}
}

const callColumns = `
	id, symbol, side, entry_low, entry_high, stop_loss, targets, created_at,
	entry_order, take_profit_order, stop_loss_order,
	closed, closing_reason, bragged`

func (r *PostgresCallRepository) Create(ctx context.Context, call *domain.TradingCall) error {
	if call == nil {
		return errors.New("nil call")
	}

	entry, tp, sl, err := marshalOrders(call)
	if err != nil {
		return err
	}

	row := r.pool.QueryRow(ctx, `
		insert into trading_calls(
			symbol, side, entry_low, entry_high, stop_loss, targets, created_at,
			entry_order, take_profit_order, stop_loss_order,
			closed, closing_reason, bragged
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		returning id
	`,
		call.Symbol,
		string(call.Side),
		call.EntryLow,
		call.EntryHigh,
		call.StopLoss,
		call.Targets,
		call.Timestamp,
		entry,
		tp,
		sl,
		call.Closed,
		call.ClosingReason,
		call.Bragged,
	)
	return row.Scan(&call.ID)
}

func (r *PostgresCallRepository) FindUnseen(ctx context.Context, lookback time.Duration, limit int, latestFirst bool) ([]*domain.TradingCall, error) {
	order := "asc"
	if latestFirst {
		order = "desc"
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		select %s from trading_calls
		where entry_order is null
		  and closed = false
		  and bragged = false
		  and created_at >= $1
		order by id %s
		limit $2
	`, callColumns, order), time.Now().Add(-lookback), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCalls(rows)
}

func (r *PostgresCallRepository) FindEntryPending(ctx context.Context) ([]*domain.TradingCall, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		select %s from trading_calls
		where entry_order is not null
		  and take_profit_order is null
		  and stop_loss_order is null
		  and closed = false
	`, callColumns))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCalls(rows)
}

func (r *PostgresCallRepository) FindExitPending(ctx context.Context) ([]*domain.TradingCall, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		select %s from trading_calls
		where (take_profit_order is not null or stop_loss_order is not null)
		  and closed = false
	`, callColumns))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCalls(rows)
}

func (r *PostgresCallRepository) Save(ctx context.Context, call *domain.TradingCall) error {
	if call == nil {
		return errors.New("nil call")
	}

	entry, tp, sl, err := marshalOrders(call)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		update trading_calls set
			symbol=$2,
			side=$3,
			entry_low=$4,
			entry_high=$5,
			stop_loss=$6,
			targets=$7,
			created_at=$8,
			entry_order=$9,
			take_profit_order=$10,
			stop_loss_order=$11,
			closed=$12,
			closing_reason=$13,
			bragged=$14
		where id=$1
	`,
		call.ID,
		call.Symbol,
		string(call.Side),
		call.EntryLow,
		call.EntryHigh,
		call.StopLoss,
		call.Targets,
		call.Timestamp,
		entry,
		tp,
		sl,
		call.Closed,
		call.ClosingReason,
		call.Bragged,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("call %d not found", call.ID)
	}
	return nil
}

// Helpers

type scanner interface {
	Scan(dest ...any) error
}

type rowsLike interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanCalls(rows rowsLike) ([]*domain.TradingCall, error) {
	calls := make([]*domain.TradingCall, 0)
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, rows.Err()
}

func scanCall(s scanner) (*domain.TradingCall, error) {
	var c domain.TradingCall
	var side string
	var entry, tp, sl []byte

	if err := s.Scan(
		&c.ID,
		&c.Symbol,
		&side,
		&c.EntryLow,
		&c.EntryHigh,
		&c.StopLoss,
		&c.Targets,
		&c.Timestamp,
		&entry,
		&tp,
		&sl,
		&c.Closed,
		&c.ClosingReason,
		&c.Bragged,
	); err != nil {
		return nil, err
	}
	c.Side = domain.Side(side)

	var err error
	if c.EntryOrder, err = unmarshalOrder(entry); err != nil {
		return nil, err
	}
	if c.TakeProfitOrder, err = unmarshalOrder(tp); err != nil {
		return nil, err
	}
	if c.StopLossOrder, err = unmarshalOrder(sl); err != nil {
		return nil, err
	}
	return &c, nil
}

func marshalOrders(call *domain.TradingCall) (entry, tp, sl []byte, err error) {
	if entry, err = marshalOrder(call.EntryOrder); err != nil {
		return nil, nil, nil, err
	}
	if tp, err = marshalOrder(call.TakeProfitOrder); err != nil {
		return nil, nil, nil, err
	}
	if sl, err = marshalOrder(call.StopLossOrder); err != nil {
		return nil, nil, nil, err
	}
	return entry, tp, sl, nil
}

func marshalOrder(o *domain.OrderRecord) ([]byte, error) {
	if o == nil {
		return nil, nil
	}
	return json.Marshal(o)
}

func unmarshalOrder(raw []byte) (*domain.OrderRecord, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var o domain.OrderRecord
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// compile-time check
var _ domain.CallRepository = (*PostgresCallRepository)(nil)
