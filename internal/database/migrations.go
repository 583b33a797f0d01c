package database

import (
	"fmt"

	"gorm.io/gorm"

	"proptracker/server/internal/models"
)

// MigrateSchema creates or updates every table. Safe to run repeatedly.
func MigrateSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Property{},
		&models.PropertyImage{},
		&models.Station{},
		&models.School{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// Rows written before the proximity columns existed hold NULL.
	if err := db.Exec(`
		UPDATE properties
		SET nearby_stations = COALESCE(nearby_stations, '[]'),
		    nearby_schools = COALESCE(nearby_schools, '[]')
		WHERE nearby_stations IS NULL OR nearby_schools IS NULL
	`).Error; err != nil {
		return fmt.Errorf("failed to backfill proximity columns: %w", err)
	}

	return nil
}

func (d *Database) RunMigrations() error {
	d.logger.Info("Running database migrations")
	return MigrateSchema(d.db)
}
