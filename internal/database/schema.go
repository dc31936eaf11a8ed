package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer runs a statement. *pgxpool.Pool and pgx.Tx satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Table names.
const (
	TableBars  = "ohlc_bars"
	TableDays  = "ohlc_days"
	TableTicks = "ticks"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ohlc_bars (
		symbol        TEXT        NOT NULL,
		trade_date    DATE        NOT NULL,
		ts            BIGINT      NOT NULL,
		time_text     TEXT        NOT NULL,
		open          NUMERIC     NOT NULL,
		high          NUMERIC     NOT NULL,
		low           NUMERIC     NOT NULL,
		close         NUMERIC     NOT NULL,
		vwap          NUMERIC     NOT NULL,
		volume        BIGINT      NOT NULL,
		open_interest BIGINT      NOT NULL,
		PRIMARY KEY (symbol, ts)
	)`,
	`CREATE INDEX IF NOT EXISTS ohlc_bars_symbol_date ON ohlc_bars (symbol, trade_date)`,
	`CREATE TABLE IF NOT EXISTS ohlc_days (
		symbol     TEXT        NOT NULL,
		trade_date DATE        NOT NULL,
		rows       INTEGER     NOT NULL,
		written_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (symbol, trade_date)
	)`,
	`CREATE TABLE IF NOT EXISTS ticks (
		captured_at       TIMESTAMPTZ NOT NULL,
		symbol            TEXT,
		exchange          TEXT,
		token             TEXT,
		last_price        NUMERIC,
		last_qty          BIGINT,
		last_trade_time   TEXT,
		volume            BIGINT,
		avg_price         NUMERIC,
		open              NUMERIC,
		high              NUMERIC,
		low               NUMERIC,
		close             NUMERIC,
		total_buy_qty     BIGINT,
		total_sell_qty    BIGINT,
		percent_change    NUMERIC,
		open_interest     BIGINT,
		prev_open_interest BIGINT,
		feed_time         TEXT,
		depth             JSONB       NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ticks_token_time ON ticks (token, captured_at DESC)`,
}

var hypertables = []string{
	`SELECT create_hypertable('ticks', 'captured_at', if_not_exists => TRUE)`,
}

// EnsureSchema creates the bar and tick tables if they do not exist. With
// timescale set, ticks is also converted to a hypertable, which needs the
// timescaledb extension.
func EnsureSchema(ctx context.Context, db Execer, timescale bool) error {
	stmts := schema
	if timescale {
		stmts = append(append([]string(nil), schema...), hypertables...)
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
