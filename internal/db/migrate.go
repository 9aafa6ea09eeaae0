package db

import (
	"grifttracker/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Actor{},
		&models.Entity{},
		&models.Event{},
		&models.Signal{},
		&models.Suggestion{},
		&models.PerformanceRecord{},
		&models.PriceBar{},
		&models.SourceDescriptor{},
		&models.IngestFailure{},
	)
}
