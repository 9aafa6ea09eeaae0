package models

import (
	"time"

	"gorm.io/datatypes"
)

// IngestFailure records a skipped record or document with enough context to
// replay it once the underlying issue is fixed. Failures never abort the
// rest of a batch.
type IngestFailure struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	Source     string `gorm:"type:varchar(50);not null;index"`
	Identifier string `gorm:"type:varchar(200);not null"`
	Stage      string `gorm:"type:varchar(20);not null;index"`
	Reason     string `gorm:"type:text;not null"`

	Payload datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (IngestFailure) TableName() string {
	return "ingest_failures"
}
