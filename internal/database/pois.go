package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"proptracker/server/internal/models"
)

const insertBatchSize = 100

func (d *Database) ListStations(ctx context.Context) ([]models.Station, error) {
	stations := []models.Station{}
	if err := d.db.WithContext(ctx).Order("name ASC, id ASC").Find(&stations).Error; err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	return stations, nil
}

// ListStationsByType matches the primary type or any of the interchange types.
func (d *Database) ListStationsByType(ctx context.Context, stationType models.StationType) ([]models.Station, error) {
	stations := []models.Station{}
	err := d.db.WithContext(ctx).
		Where("type = ? OR all_types LIKE ?", stationType, `%"`+string(stationType)+`"%`).
		Order("name ASC, id ASC").
		Find(&stations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s stations: %w", stationType, err)
	}
	return stations, nil
}

func (d *Database) GetStation(ctx context.Context, id string) (*models.Station, error) {
	var station models.Station
	if err := d.db.WithContext(ctx).First(&station, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &station, nil
}

func (d *Database) CountStations(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&models.Station{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count stations: %w", err)
	}
	return count, nil
}

// ReplaceStations swaps the whole station table for the given set in one
// transaction, so readers never observe a partial dataset.
func (d *Database) ReplaceStations(ctx context.Context, stations []models.Station) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Station{}).Error; err != nil {
			return fmt.Errorf("failed to clear stations: %w", err)
		}
		if len(stations) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(stations, insertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert stations: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	d.logger.WithField("stations", len(stations)).Info("Replaced station dataset")
	return nil
}

func (d *Database) ListSchools(ctx context.Context) ([]models.School, error) {
	schools := []models.School{}
	if err := d.db.WithContext(ctx).Order("name ASC, id ASC").Find(&schools).Error; err != nil {
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}
	return schools, nil
}

func (d *Database) ReplaceSchools(ctx context.Context, schools []models.School) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.School{}).Error; err != nil {
			return fmt.Errorf("failed to clear schools: %w", err)
		}
		if len(schools) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(schools, insertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert schools: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	d.logger.WithField("schools", len(schools)).Info("Replaced school dataset")
	return nil
}
