package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceBar is one OHLC observation from the price feed, keyed (symbol, day).
type PriceBar struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	Symbol string `gorm:"type:varchar(20);not null;uniqueIndex:uniq_price_bar"`
	Day    string `gorm:"type:char(10);not null;uniqueIndex:uniq_price_bar"`

	Open  decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	High  decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Low   decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Close decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (PriceBar) TableName() string {
	return "price_bars"
}
