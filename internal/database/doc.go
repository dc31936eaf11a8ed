// Package database manages the TimescaleDB connection pool and the tables the
// bar and tick writers use.
//
// Tables:
//   - ohlc_bars: one row per (symbol, timestamp), replaced a day at a time
//   - ticks: append-only canonical ticks, depth kept as JSONB
package database
