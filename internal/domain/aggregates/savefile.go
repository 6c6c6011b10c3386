package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TableProcessedFiles  = "processed_files"
	TableFileOwnership   = "file_ownership"
	TablePolitySnapshot  = "polity_snapshot"
	TableHistoricalEvent = "historical_event"
	TableAnnualIncome    = "annual_income"
)

var SaveFileAggregateContract = Contract{
	Name:             "Ingest.SaveFileAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	Tables: []string{
		TableProcessedFiles,
		TableFileOwnership,
		TablePolitySnapshot,
		TableHistoricalEvent,
		TableAnnualIncome,
	},
	IdempotencyKey: "checksum",
	Notes:          "Writes a save's processed marker, owner row and every polity row in one transaction.",
}

// SaveFileAggregate owns the all-or-nothing commit of one ingested save.
//
// A second commit for a checksum already marked processed returns
// CommitResult.Duplicate and writes nothing. Other failures return *Error with
// CodeValidation, CodeInvariantViolation, CodeConflict, CodeRetryable or
// CodeInternal; a failed insert also names its table (see TableOf).
type SaveFileAggregate interface {
	Aggregate

	Commit(ctx context.Context, in SaveFileCommit) (CommitResult, error)
}

type SaveFileCommit struct {
	Checksum   string
	FileName   string
	UserID     int64
	UploadedAt time.Time
	Polities   []PolityOutput
}

type PolityOutput struct {
	Tag              string
	Date             string
	IncomeComponents []float64
	Manpower         float64
	MaxManpower      float64
	TradeIncome      float64
	Events           []EventEntry
	AnnualIncome     []IncomeEntry
}

type EventEntry struct {
	Seq    int
	Date   string
	Kind   string
	Detail string
}

type IncomeEntry struct {
	Year  int
	Total float64
}

type CommitResult struct {
	Duplicate            bool
	FileID               uuid.UUID
	PolitiesWritten      int
	EventsWritten        int
	IncomeEntriesWritten int
}
