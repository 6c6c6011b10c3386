// Package income rebuilds annual income series from sparse ledger samples.
package income

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/savestats/internal/savedoc"
)

// Policy decides how several samples for the same year combine.
type Policy string

const (
	// PolicyLastWins keeps only the last sample seen for a year.
	PolicyLastWins Policy = "last"
	// PolicySum adds every annualized sample for a year.
	PolicySum Policy = "sum"
)

// PeriodsPerYear annualizes a monthly ledger sample.
const PeriodsPerYear = 12

func ParsePolicy(raw string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyLastWins:
		return PolicyLastWins, nil
	case PolicySum:
		return PolicySum, nil
	default:
		return "", fmt.Errorf("income: unknown policy %q", raw)
	}
}

type Entry struct {
	Year  int     `json:"year"`
	Total float64 `json:"total"`
}

// Annual is a year-keyed income series; Entries is sorted by year and has no
// duplicate years.
type Annual struct {
	Tag     string
	Entries []Entry
}

func (a Annual) Len() int { return len(a.Entries) }

// ByYear returns the series as a map.
func (a Annual) ByYear() map[int]float64 {
	m := make(map[int]float64, len(a.Entries))
	for _, e := range a.Entries {
		m[e.Year] = e.Total
	}
	return m
}

// AggregateAnnual filters points to tag and reduces them to one total per
// year. Samples are annualized by PeriodsPerYear.
func AggregateAnnual(points []savedoc.LedgerPoint, tag string, policy Policy) Annual {
	byYear := map[int]float64{}
	for _, p := range points {
		if p.Tag != tag {
			continue
		}
		v := p.Value * PeriodsPerYear
		if policy == PolicySum {
			byYear[p.Year] += v
			continue
		}
		byYear[p.Year] = v
	}
	out := Annual{Tag: tag, Entries: make([]Entry, 0, len(byYear))}
	for year, total := range byYear {
		out.Entries = append(out.Entries, Entry{Year: year, Total: total})
	}
	sort.Slice(out.Entries, func(i, j int) bool { return out.Entries[i].Year < out.Entries[j].Year })
	return out
}
