// Package aggregates defines the write boundaries of the ingestion store.
//
// A contract here names what must land atomically. Persistence details live in
// internal/data/aggregates.
package aggregates
