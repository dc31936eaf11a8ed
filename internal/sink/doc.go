// Package sink writes one trading day of bars to a file. Each day is its own
// file named <symbol>_ohlc_<YYYY-MM-DD>.<ext>; writing a day again replaces
// the file atomically.
package sink
