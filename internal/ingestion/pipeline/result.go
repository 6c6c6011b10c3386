package pipeline

import (
	"time"

	"github.com/yungbote/savestats/internal/ingestion/events"
	"github.com/yungbote/savestats/internal/ingestion/income"
)

type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeSkipped   Outcome = "skipped"
)

// Snapshot is a polity's state at the document date.
type Snapshot struct {
	Date             string    `json:"date"`
	IncomeComponents []float64 `json:"income_components"`
	Manpower         float64   `json:"manpower"`
	MaxManpower      float64   `json:"max_manpower"`
	TradeIncome      float64   `json:"trade_income"`
}

// PolityOutput is everything extracted for one player lineage.
type PolityOutput struct {
	Tag          string
	InitialTag   string
	PlayerNames  []string
	Snapshot     Snapshot
	Events       []events.Record
	AnnualIncome income.Annual
}

type Result struct {
	Outcome  Outcome       `json:"outcome"`
	Checksum string        `json:"checksum"`
	FileName string        `json:"file_name"`
	UserID   int64         `json:"user_id"`
	Duration time.Duration `json:"duration_ns"`

	PolitiesProcessed    int      `json:"polities_processed"`
	EventsWritten        int      `json:"events_written"`
	IncomeEntriesWritten int      `json:"income_entries_written"`
	SkippedTags          []string `json:"skipped_tags,omitempty"`

	Polities []PolityOutput `json:"-"`
}

// Skipped reports whether the run was a deliberate no-op for a known file.
func (r Result) Skipped() bool { return r.Outcome == OutcomeSkipped }

// Interchange is the nested document form of a processed file.
type Interchange struct {
	FileName string              `json:"file_name"`
	Checksum string              `json:"checksum"`
	UserID   int64               `json:"user_id"`
	Polities []InterchangePolity `json:"polities"`
}

type InterchangePolity struct {
	Tag          string          `json:"tag"`
	Snapshot     Snapshot        `json:"snapshot"`
	Events       []events.Record `json:"events"`
	AnnualIncome []income.Entry  `json:"annual_income"`
}

func (r Result) Interchange() Interchange {
	out := Interchange{
		FileName: r.FileName,
		Checksum: r.Checksum,
		UserID:   r.UserID,
		Polities: make([]InterchangePolity, 0, len(r.Polities)),
	}
	for _, p := range r.Polities {
		evs := p.Events
		if evs == nil {
			evs = []events.Record{}
		}
		entries := p.AnnualIncome.Entries
		if entries == nil {
			entries = []income.Entry{}
		}
		out.Polities = append(out.Polities, InterchangePolity{
			Tag:          p.Tag,
			Snapshot:     p.Snapshot,
			Events:       evs,
			AnnualIncome: entries,
		})
	}
	return out
}
