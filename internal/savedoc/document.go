// Package savedoc is the read-only view of a decoded game save that the
// ingestion pipeline consumes. Decoding the proprietary binary container is
// someone else's job; this package accepts the "melted" textual form (YAML or
// JSON) and exposes it behind the Document interface.
package savedoc

import (
	"strings"
	"sync"
)

type Document interface {
	// Date is the in-game date the save was written at.
	Date() Date
	Players() []Player
	NationEvents() []NationEvent
	// Countries returns every country record in document order.
	Countries() []Country
	Country(tag string) (Country, bool)
	IncomeLedger() []LedgerPoint
}

// Player pairs a player display name with the tag they control now.
type Player struct {
	Name string `yaml:"name" json:"name"`
	Tag  string `yaml:"tag" json:"tag"`
}

type NationEventKind string

const (
	NationEventTagSwitch NationEventKind = "tag_switch"
	NationEventAnnexed   NationEventKind = "annexed"
)

// NationEvent records a change of a nation's identity. For tag switches From
// is the tag given up and To the tag adopted; for annexations only From is
// set.
type NationEvent struct {
	Date Date            `yaml:"date" json:"date"`
	Kind NationEventKind `yaml:"kind" json:"kind"`
	From string          `yaml:"from" json:"from"`
	To   string          `yaml:"to" json:"to"`
}

type Country struct {
	Tag         string       `yaml:"tag"`
	Human       bool         `yaml:"human"`
	Income      []float64    `yaml:"income"`
	Manpower    float64      `yaml:"manpower"`
	MaxManpower float64      `yaml:"max_manpower"`
	TradeIncome float64      `yaml:"trade_income"`
	History     []DatedEvent `yaml:"history"`
}

// LedgerPoint is one sampled monthly income figure.
type LedgerPoint struct {
	Tag   string  `yaml:"tag" json:"tag"`
	Year  int     `yaml:"year" json:"year"`
	Value float64 `yaml:"value" json:"value"`
}

// StaticDocument is the in-memory Document produced by Decoder. It is safe
// for concurrent reads once built; the tag index is built on first lookup.
type StaticDocument struct {
	SaveDate  Date          `yaml:"date"`
	PlayerSet []Player      `yaml:"players"`
	Nations   []NationEvent `yaml:"nation_events"`
	Records   []Country     `yaml:"countries"`
	Ledger    []LedgerPoint `yaml:"income_ledger"`

	indexOnce sync.Once
	byTag     map[string]int
}

var _ Document = (*StaticDocument)(nil)

func (d *StaticDocument) Date() Date                  { return d.SaveDate }
func (d *StaticDocument) Players() []Player           { return d.PlayerSet }
func (d *StaticDocument) NationEvents() []NationEvent { return d.Nations }
func (d *StaticDocument) Countries() []Country        { return d.Records }
func (d *StaticDocument) IncomeLedger() []LedgerPoint { return d.Ledger }

func (d *StaticDocument) Country(tag string) (Country, bool) {
	d.indexOnce.Do(d.index)
	i, ok := d.byTag[normalizeTag(tag)]
	if !ok {
		return Country{}, false
	}
	return d.Records[i], true
}

func (d *StaticDocument) index() {
	d.byTag = make(map[string]int, len(d.Records))
	for i, c := range d.Records {
		key := normalizeTag(c.Tag)
		if _, dup := d.byTag[key]; dup {
			continue
		}
		d.byTag[key] = i
	}
}

func normalizeTag(tag string) string {
	return strings.ToUpper(strings.TrimSpace(tag))
}
