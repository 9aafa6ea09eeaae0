package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	AssetTypeStock  = "stock"
	AssetTypeETF    = "etf"
	AssetTypeOption = "option"
	AssetTypeCrypto = "crypto"
)

// Entity is a tradable instrument. Same alias-accumulation and merge
// discipline as Actor.
type Entity struct {
	ID        string  `gorm:"primaryKey;type:uuid"`
	Symbol    string  `gorm:"type:varchar(20);not null;index"`
	AssetType string  `gorm:"type:varchar(10);not null;default:'stock'"`
	Sector    *string `gorm:"type:varchar(100);index"`

	Aliases datatypes.JSON `gorm:"type:jsonb;not null"`

	Provisional  bool    `gorm:"default:false;index"`
	RedirectedTo *string `gorm:"type:uuid;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Entity) TableName() string {
	return "entities"
}
