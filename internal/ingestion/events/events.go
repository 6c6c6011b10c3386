// Package events flattens a polity's dated history into canonical records.
package events

import (
	"fmt"

	"github.com/yungbote/savestats/internal/savedoc"
)

// KindUnknown labels every variant without a dedicated mapping.
const KindUnknown = "Unknown"

// Record is one normalized history entry. Seq is the entry's position in the
// source history and preserves ordering once persisted.
type Record struct {
	Seq    int    `json:"seq"`
	Date   string `json:"date"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// Normalize maps every dated event to exactly one Record, in input order.
func Normalize(history []savedoc.DatedEvent) []Record {
	out := make([]Record, 0, len(history))
	for i, de := range history {
		kind, detail := describe(de.Event)
		out = append(out, Record{
			Seq:    i,
			Date:   de.Date.String(),
			Kind:   kind,
			Detail: detail,
		})
	}
	return out
}

func describe(ev savedoc.Event) (string, string) {
	switch e := ev.(type) {
	case savedoc.Monarch:
		return e.Kind(), rulerDetail(e.Ruler)
	case savedoc.Heir:
		return e.Kind(), rulerDetail(e.Ruler)
	case savedoc.Queen:
		return e.Kind(), rulerDetail(e.Ruler)
	case savedoc.Leader:
		return e.Kind(), fmt.Sprintf("Name: %s, Kind: %s", e.Name, e.LeaderKind)
	case savedoc.Capital:
		return e.Kind(), fmt.Sprintf("Province ID: %d", e.ProvinceID)
	case savedoc.ChangedCountryNameFrom:
		return e.Kind(), "From: " + e.Name
	case savedoc.ChangedCountryAdjectiveFrom:
		return e.Kind(), "From: " + e.Adjective
	case savedoc.ChangedCountryMapColorFrom:
		return e.Kind(), fmt.Sprintf("From: [%d, %d, %d]", e.Color[0], e.Color[1], e.Color[2])
	case savedoc.NationalFocus:
		return e.Kind(), "Focus: " + e.Focus
	case savedoc.AddAcceptedCulture:
		return e.Kind(), "Culture: " + e.Culture
	default:
		return KindUnknown, savedoc.Describe(ev)
	}
}

func rulerDetail(r savedoc.Ruler) string {
	return fmt.Sprintf("Name: %s, Dip: %d, Adm: %d, Mil: %d", r.Name, r.Dip, r.Adm, r.Mil)
}
