// Package players reconstructs the identity timelines of player-controlled
// polities from a decoded save.
package players

import (
	"sort"

	"github.com/yungbote/savestats/internal/savedoc"
)

// Timeline is one polity lineage. Tags lists every tag the lineage has held,
// in adoption order; LatestTag is the last of them and is the key used to
// find the polity's current record.
type Timeline struct {
	InitialTag  string
	LatestTag   string
	Tags        []string
	IsHuman     bool
	PlayerNames []string

	ended bool
}

func (t *Timeline) holds(tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

// ResolvePlayerPolities returns one timeline per human or player-named
// lineage, in document order. An empty result is valid.
func ResolvePlayerPolities(doc savedoc.Document) []Timeline {
	if doc == nil {
		return nil
	}

	var lineages []*Timeline
	active := map[string]*Timeline{}
	start := func(tag string) *Timeline {
		tl := &Timeline{InitialTag: tag, LatestTag: tag, Tags: []string{tag}}
		lineages = append(lineages, tl)
		active[tag] = tl
		return tl
	}
	for _, c := range doc.Countries() {
		if _, dup := active[c.Tag]; dup {
			continue
		}
		start(c.Tag)
	}

	events := append([]savedoc.NationEvent(nil), doc.NationEvents()...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })

	for _, ev := range events {
		if ev.From == "" {
			continue
		}
		switch ev.Kind {
		case savedoc.NationEventAnnexed:
			if tl, ok := active[ev.From]; ok {
				tl.ended = true
				delete(active, ev.From)
			}
		case savedoc.NationEventTagSwitch:
			if ev.To == "" || ev.To == ev.From {
				continue
			}
			tl, ok := active[ev.From]
			if !ok {
				tl = start(ev.From)
			}
			// Whatever lineage held the target tag until now is absorbed:
			// its record becomes this lineage's record from here on.
			if dormant, ok := active[ev.To]; ok && dormant != tl {
				dormant.ended = true
			}
			delete(active, ev.From)
			tl.LatestTag = ev.To
			tl.Tags = append(tl.Tags, ev.To)
			active[ev.To] = tl
		}
	}

	for _, p := range doc.Players() {
		if p.Tag == "" {
			continue
		}
		tl, ok := active[p.Tag]
		if !ok {
			tl = mostRecentHolder(lineages, p.Tag)
		}
		if tl != nil {
			tl.PlayerNames = append(tl.PlayerNames, p.Name)
		}
	}

	out := make([]Timeline, 0, len(lineages))
	for _, tl := range lineages {
		if tl.ended {
			continue
		}
		if rec, ok := doc.Country(tl.LatestTag); ok && rec.Human {
			tl.IsHuman = true
		}
		if !tl.IsHuman && len(tl.PlayerNames) == 0 {
			continue
		}
		out = append(out, *tl)
	}
	return out
}

// mostRecentHolder finds a live lineage that held tag at some point,
// preferring the latest lineage to have adopted it.
func mostRecentHolder(lineages []*Timeline, tag string) *Timeline {
	for i := len(lineages) - 1; i >= 0; i-- {
		tl := lineages[i]
		if !tl.ended && tl.holds(tag) {
			return tl
		}
	}
	return nil
}
