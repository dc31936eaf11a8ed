// Package model defines shared data types used across the ingestion pipeline.
//
// Conventions:
//   - Bar timestamps: int64 seconds since Unix epoch (broker "ssboe")
//   - Bar prices: decimal.Decimal parsed from broker text
//   - Tick fields: *string pass-through of broker text, nil when the key was absent
//   - Calendar dates: time.Time at 00:00 UTC
package model
