// Package cli holds the pieces the backfill and streamer commands share:
// logger setup, exit codes, broker session wiring and the health server.
package cli
