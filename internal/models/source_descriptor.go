package models

import (
	"time"

	"gorm.io/datatypes"
)

// SourceDescriptor stores per-source fetch configuration and health state.
// Descriptors are seeded from config and may be registered by the
// orchestrating scheduler.
type SourceDescriptor struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	Name     string `gorm:"type:varchar(50);uniqueIndex;not null"`
	Kind     string `gorm:"type:varchar(30);not null"`
	Endpoint string `gorm:"type:varchar(500);not null"`

	// AuthTokenEnv names the environment variable holding the bearer token;
	// secrets themselves never touch the database.
	AuthTokenEnv string `gorm:"type:varchar(100)"`

	RateLimit  int    `gorm:"default:0"`
	RatePeriod string `gorm:"type:varchar(20)"`

	Enabled      bool           `gorm:"default:true"`
	LastPollAt   *time.Time     `gorm:"type:timestamptz"`
	LastError    *string        `gorm:"type:text"`
	HealthStatus string         `gorm:"type:varchar(20);default:'unknown'"`
	Config       datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (SourceDescriptor) TableName() string {
	return "source_descriptors"
}
