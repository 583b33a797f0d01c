package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"proptracker/server/internal/models"
)

// AddImages attaches image records to a property. If the property has no
// cover yet the first new image becomes the cover.
func (d *Database) AddImages(ctx context.Context, propertyID int64, images []models.PropertyImage) ([]models.PropertyImage, error) {
	if len(images) == 0 {
		return []models.PropertyImage{}, nil
	}

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var covers int64
		if err := tx.Model(&models.PropertyImage{}).
			Where("property_id = ? AND is_cover = ?", propertyID, true).
			Count(&covers).Error; err != nil {
			return err
		}

		for i := range images {
			images[i].PropertyID = propertyID
			images[i].IsCover = covers == 0 && i == 0
		}
		return tx.Create(&images).Error
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to add images: %w", err)
	}
	return images, nil
}

func (d *Database) ListImages(ctx context.Context, propertyID int64) ([]models.PropertyImage, error) {
	images := []models.PropertyImage{}
	err := orderImages(d.db.WithContext(ctx)).Where("property_id = ?", propertyID).Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}

func (d *Database) SetCoverImage(ctx context.Context, propertyID, imageID int64) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var image models.PropertyImage
		if err := tx.Where("id = ? AND property_id = ?", imageID, propertyID).First(&image).Error; err != nil {
			return notFound(err)
		}

		if err := tx.Model(&models.PropertyImage{}).
			Where("property_id = ?", propertyID).
			Update("is_cover", false).Error; err != nil {
			return fmt.Errorf("failed to clear cover image: %w", err)
		}
		if err := tx.Model(&image).Update("is_cover", true).Error; err != nil {
			return fmt.Errorf("failed to set cover image: %w", err)
		}
		return nil
	})
}

// DeleteImage removes one image record and returns it. Deleting the cover
// promotes the oldest remaining image.
func (d *Database) DeleteImage(ctx context.Context, propertyID, imageID int64) (*models.PropertyImage, error) {
	var image models.PropertyImage
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND property_id = ?", imageID, propertyID).First(&image).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Delete(&image).Error; err != nil {
			return fmt.Errorf("failed to delete image: %w", err)
		}
		if !image.IsCover {
			return nil
		}

		var next models.PropertyImage
		err := tx.Where("property_id = ?", propertyID).Order("id ASC").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&next).Update("is_cover", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &image, nil
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint &&
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}
