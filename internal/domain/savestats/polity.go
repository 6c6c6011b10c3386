package savestats

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PolitySnapshot is a polity's state at the save date. Income components are
// kept as a JSON array so the snapshot stays one row.
type PolitySnapshot struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Checksum         string         `gorm:"not null;size:64;uniqueIndex:idx_polity_snapshot_checksum_tag,priority:1;column:checksum" json:"checksum"`
	Tag              string         `gorm:"not null;size:8;uniqueIndex:idx_polity_snapshot_checksum_tag,priority:2;column:tag" json:"tag"`
	Date             string         `gorm:"not null;column:date" json:"date"`
	IncomeComponents datatypes.JSON `gorm:"column:income_components_json" json:"income_components"`
	Manpower         float64        `gorm:"not null;column:manpower" json:"manpower"`
	MaxManpower      float64        `gorm:"not null;column:max_manpower" json:"max_manpower"`
	TradeIncome      float64        `gorm:"not null;column:trade_income" json:"trade_income"`
}

func (PolitySnapshot) TableName() string { return "polity_snapshot" }

func (s *PolitySnapshot) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type HistoricalEvent struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Checksum string    `gorm:"not null;size:64;index:idx_historical_event_checksum_tag,priority:1;column:checksum" json:"checksum"`
	Tag      string    `gorm:"not null;size:8;index:idx_historical_event_checksum_tag,priority:2;column:tag" json:"tag"`
	Seq      int       `gorm:"not null;column:seq" json:"seq"`
	Date     string    `gorm:"not null;column:date" json:"date"`
	Kind     string    `gorm:"not null;column:kind" json:"kind"`
	Detail   string    `gorm:"not null;type:text;column:detail" json:"detail"`
}

func (HistoricalEvent) TableName() string { return "historical_event" }

func (e *HistoricalEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

type AnnualIncome struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Checksum string    `gorm:"not null;size:64;uniqueIndex:idx_annual_income_checksum_tag_year,priority:1;column:checksum" json:"checksum"`
	Tag      string    `gorm:"not null;size:8;uniqueIndex:idx_annual_income_checksum_tag_year,priority:2;column:tag" json:"tag"`
	Year     int       `gorm:"not null;uniqueIndex:idx_annual_income_checksum_tag_year,priority:3;column:year" json:"year"`
	Total    float64   `gorm:"not null;column:total" json:"total"`
}

func (AnnualIncome) TableName() string { return "annual_income" }

func (a *AnnualIncome) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
