// Package aggregates implements the write boundaries declared in
// internal/domain/aggregates on top of the table repos in internal/data/repos.
package aggregates
