package models

import (
	"time"

	"gorm.io/datatypes"
)

// Event is the canonical, source-agnostic record produced from any raw
// document. Immutable once stored; dedup is enforced by the unique
// content_hash index at the storage boundary.
type Event struct {
	ID     string `gorm:"primaryKey;type:uuid"`
	Source string `gorm:"type:varchar(50);not null;index"`

	ActorRef  *string `gorm:"type:uuid;index"`
	EntityRef *string `gorm:"type:uuid;index"`

	Action       string  `gorm:"type:varchar(20);not null;index"`
	AmountBucket *string `gorm:"type:varchar(20)"`

	RawText  string         `gorm:"type:text;not null"`
	Metadata datatypes.JSON `gorm:"type:jsonb"`

	OccurredAt time.Time `gorm:"type:timestamptz;not null;index"`
	IngestedAt time.Time `gorm:"type:timestamptz;not null;autoCreateTime"`

	ContentHash string `gorm:"type:char(64);not null;uniqueIndex"`
}

func (Event) TableName() string {
	return "events"
}
