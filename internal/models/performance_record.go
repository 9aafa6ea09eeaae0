package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OutcomeHit     = "hit"
	OutcomeMiss    = "miss"
	OutcomeNeutral = "neutral"
)

// PerformanceRecord is the realized return of a Suggestion against later
// market prices. Idempotent per (suggestion_id, checked_on date).
type PerformanceRecord struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	SuggestionID uint64 `gorm:"not null;uniqueIndex:uniq_perf_check"`
	EntityID     string `gorm:"type:uuid;not null;index"`

	PriceAtSuggestion decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	PriceAtCheck      decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	ReturnPercent     decimal.Decimal `gorm:"type:numeric(20,10);not null"`

	Outcome string `gorm:"type:varchar(10);not null;index"`

	// CheckedOn is the calendar date of CheckedAt, held separately so the
	// unique index keys a day, not a timestamp.
	CheckedOn string    `gorm:"type:char(10);not null;uniqueIndex:uniq_perf_check"`
	CheckedAt time.Time `gorm:"type:timestamptz;not null"`
}

func (PerformanceRecord) TableName() string {
	return "performance_records"
}
