// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Backfill day outcomes (written, empty, skipped) and bar counts
//   - Live feed state, tick throughput and malformed payloads
//   - Writer row counts and failures
package metrics
