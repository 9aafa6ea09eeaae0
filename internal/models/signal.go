package models

import "time"

// Signal is a scored reading of a single Event for a single Entity. It is
// derived and recomputable: a pure function of its Event plus the ruleset
// version. BaseScore is raw; decay is applied at aggregation time, so the
// stored row never loses information as it ages.
type Signal struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	EventID  string `gorm:"type:uuid;not null;index"`
	EntityID string `gorm:"type:uuid;not null;index"`

	BaseScore float64 `gorm:"not null"`
	// DecayAppliedScore is a convenience copy of the decayed contribution
	// used by the most recent aggregation run. Never read back for scoring.
	DecayAppliedScore float64 `gorm:"not null"`

	RulesetVersion string `gorm:"type:varchar(20);not null"`
	Reasoning      string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;not null;index"`
}

func (Signal) TableName() string {
	return "signals"
}
