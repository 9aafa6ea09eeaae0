package models

import (
	"time"

	"gorm.io/datatypes"
)

// Actor is a disclosing individual (e.g. a covered official). The canonical
// name and id are immutable once assigned; aliases accumulate as the
// resolver learns new textual variants.
type Actor struct {
	ID            string `gorm:"primaryKey;type:uuid"`
	CanonicalName string `gorm:"type:varchar(200);not null;index"`
	Role          string `gorm:"type:varchar(50)"`

	Aliases datatypes.JSON `gorm:"type:jsonb;not null"`

	// Provisional is set when the resolver could not confidently match the
	// mention and created this row for manual review.
	Provisional bool `gorm:"default:false;index"`

	// RedirectedTo points at the surviving id after a merge. The row itself
	// is never deleted, to preserve auditability.
	RedirectedTo *string `gorm:"type:uuid;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Actor) TableName() string {
	return "actors"
}
