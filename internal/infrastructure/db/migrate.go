package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the tables the bot needs. This keeps setup simple
// (no external migration tool), but still gives persistence.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`create table if not exists trading_calls (
			id bigserial primary key,
			symbol text not null,
			side text not null,
			entry_low double precision not null,
			entry_high double precision not null,
			stop_loss double precision not null,
			targets double precision[] not null default '{}',
			created_at timestamptz not null,
			entry_order jsonb null,
			take_profit_order jsonb null,
			stop_loss_order jsonb null,
			closed boolean not null default false,
			closing_reason text not null default '',
			bragged boolean not null default false
		);`,
		`create index if not exists trading_calls_open_idx
			on trading_calls(closed) where closed = false;`,
		`create index if not exists trading_calls_unseen_idx
			on trading_calls(created_at desc)
			where entry_order is null and closed = false and bragged = false;`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
