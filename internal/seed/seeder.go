package seed

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"proptracker/server/internal/database"
	"proptracker/server/internal/geo"
	"proptracker/server/internal/metrics"
	"proptracker/server/internal/models"
	"proptracker/server/internal/proximity"
)

// ExamplePropertyName is the listing inserted into an empty database.
const ExamplePropertyName = "2 Bedroom Flat, Clapham Common"

type Options struct {
	MaxRetries int
	RetryDelay time.Duration
}

type Seeder struct {
	db        *database.Database
	proximity *proximity.Service
	opts      Options
	logger    *logrus.Logger
}

func NewSeeder(db *database.Database, prox *proximity.Service, opts Options, logger *logrus.Logger) *Seeder {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Seeder{db: db, proximity: prox, opts: opts, logger: logger}
}

// SeedStations replaces the station table with stations. Running it again
// with the same input leaves the same table.
func (s *Seeder) SeedStations(ctx context.Context, stations []models.Station) error {
	err := s.withRetry(ctx, "stations", func() error {
		return s.db.ReplaceStations(ctx, stations)
	})
	if err != nil {
		return err
	}
	metrics.SeededRecords.WithLabelValues("stations").Set(float64(len(stations)))
	return nil
}

func (s *Seeder) SeedSchools(ctx context.Context, schools []models.School) error {
	err := s.withRetry(ctx, "schools", func() error {
		return s.db.ReplaceSchools(ctx, schools)
	})
	if err != nil {
		return err
	}
	metrics.SeededRecords.WithLabelValues("schools").Set(float64(len(schools)))
	return nil
}

// SeedExampleProperty inserts a sample listing when no properties exist
// and computes its proximity. It reports whether a row was inserted.
func (s *Seeder) SeedExampleProperty(ctx context.Context) (bool, error) {
	count, err := s.db.CountProperties(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		s.logger.WithField("properties", count).Debug("Properties exist, skipping example property")
		return false, nil
	}

	property := ExampleProperty()
	if err := s.db.CreateProperty(ctx, property); err != nil {
		return false, err
	}

	coord := &geo.Coordinate{Lat: *property.GPSLat, Lng: *property.GPSLng}
	if _, err := s.proximity.Refresh(ctx, property.ID, coord); err != nil {
		s.logger.WithError(err).Warn("Example property created without proximity data")
	}

	s.logger.WithField("property_id", property.ID).Info("Inserted example property")
	return true, nil
}

func (s *Seeder) withRetry(ctx context.Context, dataset string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Infof("Retrying %s seed, attempt %d of %d", dataset, attempt, s.opts.MaxRetries)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.opts.RetryDelay):
			}
		}

		err = fn()
		if err == nil {
			return nil
		}
		s.logger.WithError(err).Errorf("Seeding %s failed", dataset)
	}

	return fmt.Errorf("failed to seed %s after %d attempts: %w", dataset, s.opts.MaxRetries+1, err)
}

func ExampleProperty() *models.Property {
	price := int64(650000)
	squareFeet, bedrooms, bathrooms := 850, 2, 1
	lat, lng := 51.4618, -0.1385
	listed := "2024-10-01"

	return &models.Property{
		Name:            ExamplePropertyName,
		Price:           &price,
		SquareFeet:      &squareFeet,
		Bedrooms:        &bedrooms,
		Bathrooms:       &bathrooms,
		Status:          models.StatusNotContacted,
		Link:            "https://example.com/property/123",
		Agency:          "Foxtons",
		GPSLat:          &lat,
		GPSLng:          &lng,
		MapReference:    "TQ 295 770",
		Notes:           "Beautiful period conversion with original features. Close to Clapham Common station.",
		FirstListedDate: &listed,
	}
}
