// Package model defines the wire-facing data types shared across the
// public API client: instruments, quotes, orders, and the requests used
// to place them.
//
// Conventions:
//   - Money: github.com/shopspring/decimal.Decimal, never float64. The
//     wire format is decimal strings (e.g. "150.00"); decimal.Decimal's
//     own MarshalJSON/UnmarshalJSON round-trips that without binary
//     floating point ever entering the picture.
//   - Timestamps: time.Time.
//   - IDs: string, generated client-side with github.com/google/uuid
//     where the caller doesn't supply one.
package model
