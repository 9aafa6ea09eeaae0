package models

import "time"

const (
	RecommendationLong  = "long"
	RecommendationShort = "short"
	RecommendationWatch = "watch"
)

// Suggestion is one generation run's verdict for an entity. Prior
// suggestions for the same entity are retained for history, never
// overwritten.
type Suggestion struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	EntityID string `gorm:"type:uuid;not null;index"`

	Recommendation string  `gorm:"type:varchar(10);not null;index"`
	AggregateScore float64 `gorm:"not null"`
	Confidence     float64 `gorm:"not null"`
	Rationale      string  `gorm:"type:text"`

	// ExternallySourced marks recommendation/confidence/rationale overridden
	// by the external classifier collaborator.
	ExternallySourced bool `gorm:"default:false"`

	WindowStart time.Time `gorm:"type:timestamptz;not null"`
	WindowEnd   time.Time `gorm:"type:timestamptz;not null;index"`
	CreatedAt   time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Suggestion) TableName() string {
	return "suggestions"
}
