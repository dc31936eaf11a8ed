// Package writer persists bars and ticks to TimescaleDB.
//
// Writers:
//   - BarWriter: backfill sink for ohlc_bars, one transaction per day
//   - TickWriter: live consumer for ticks, queued and batch-inserted
//
// Prices are stored as NUMERIC parsed from broker text; a value that does not
// parse is stored as NULL.
package writer
