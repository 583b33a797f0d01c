package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"proptracker/server/internal/models"
)

// Columns owned by the CRUD layer. The cached proximity columns are absent
// on purpose: only SaveProximity writes them.
var propertyColumns = []string{
	"name", "price", "square_feet", "bedrooms", "bathrooms", "status",
	"link", "agency", "gps_lat", "gps_lng", "map_reference", "notes",
	"first_listed_date", "date_viewed",
}

type PropertyFilter struct {
	Status models.PropertyStatus
	Search string
}

func (d *Database) ListProperties(ctx context.Context, filter PropertyFilter) ([]models.Property, error) {
	query := d.db.WithContext(ctx).Model(&models.Property{}).Preload("Images", orderImages)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(agency) LIKE ? OR LOWER(notes) LIKE ?", like, like, like)
	}

	properties := []models.Property{}
	if err := query.Order("created_at DESC, id DESC").Find(&properties).Error; err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}

	for i := range properties {
		resolveCoverImage(&properties[i])
	}
	return properties, nil
}

// ListPropertiesWithCoordinates returns properties that have a location, oldest first.
func (d *Database) ListPropertiesWithCoordinates(ctx context.Context) ([]models.Property, error) {
	var properties []models.Property
	err := d.db.WithContext(ctx).
		Where("gps_lat IS NOT NULL AND gps_lng IS NOT NULL").
		Order("id ASC").
		Find(&properties).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list located properties: %w", err)
	}
	return properties, nil
}

func (d *Database) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	var property models.Property
	err := d.db.WithContext(ctx).Preload("Images", orderImages).First(&property, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	resolveCoverImage(&property)
	return &property, nil
}

func (d *Database) CreateProperty(ctx context.Context, property *models.Property) error {
	if property.Status == "" {
		property.Status = models.StatusNotContacted
	}
	if property.NearbyStations == nil {
		property.NearbyStations = models.NearbyStations{}
	}
	if property.NearbySchools == nil {
		property.NearbySchools = models.NearbySchools{}
	}

	if err := d.db.WithContext(ctx).Omit("Images").Create(property).Error; err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}
	return nil
}

// UpdateProperty overwrites the CRUD-owned columns of an existing property,
// including clearing those set to nil.
func (d *Database) UpdateProperty(ctx context.Context, property *models.Property) error {
	if property.Status == "" {
		property.Status = models.StatusNotContacted
	}

	result := d.db.WithContext(ctx).
		Model(&models.Property{ID: property.ID}).
		Select(propertyColumns).
		Updates(property)
	if result.Error != nil {
		return fmt.Errorf("failed to update property: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProperty removes the property and, through the foreign key, its
// image rows. The deleted images are returned so their files can be removed.
func (d *Database) DeleteProperty(ctx context.Context, id int64) ([]models.PropertyImage, error) {
	var images []models.PropertyImage
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("property_id = ?", id).Find(&images).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Property{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete property: %w", err)
	}
	return images, nil
}

func (d *Database) CountProperties(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&models.Property{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}
	return count, nil
}

// SaveProximity replaces both cached proximity results in one statement.
// Nil results are stored as empty arrays.
func (d *Database) SaveProximity(ctx context.Context, id int64, stations models.NearbyStations, schools models.NearbySchools) error {
	if stations == nil {
		stations = models.NearbyStations{}
	}
	if schools == nil {
		schools = models.NearbySchools{}
	}

	result := d.db.WithContext(ctx).
		Model(&models.Property{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"nearby_stations": stations,
			"nearby_schools":  schools,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to save proximity for property %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func orderImages(db *gorm.DB) *gorm.DB {
	return db.Order("is_cover DESC, id ASC")
}

func resolveCoverImage(p *models.Property) {
	p.CoverImage = nil
	if len(p.Images) > 0 {
		filename := p.Images[0].Filename
		p.CoverImage = &filename
	}
}
