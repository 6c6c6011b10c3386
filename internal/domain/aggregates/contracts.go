package aggregates

import "strings"

// WriteTxOwnership says who opens the write transaction.
type WriteTxOwnership string

const (
	// WriteTxOwnedByAggregate means the aggregate opens and commits its own transaction.
	WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"
)

// Contract describes a write boundary: the tables it fills together and the
// column whose repetition turns a write into a no-op.
type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	Tables           []string
	IdempotencyKey   string
	Notes            string
}

// Aggregate is implemented by every write boundary.
type Aggregate interface {
	Contract() Contract
}

func (c Contract) RequiresAggregateOwnedTx() bool {
	return c.WriteTxOwnership == WriteTxOwnedByAggregate
}

func (c Contract) Idempotent() bool {
	return strings.TrimSpace(c.IdempotencyKey) != ""
}

// Writes reports whether table belongs to the boundary.
func (c Contract) Writes(table string) bool {
	table = strings.TrimSpace(table)
	for _, t := range c.Tables {
		if t == table {
			return true
		}
	}
	return false
}
