package proximity

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"proptracker/server/internal/geo"
	"proptracker/server/internal/metrics"
	"proptracker/server/internal/models"
	"proptracker/server/internal/report"
)

const (
	DefaultStationRadius = 1000.0
	DefaultSchoolRadius  = 2000.0
)

// Store is the persistence the service needs: read access to POIs and a
// write path for the two cached result fields.
type Store interface {
	ListStations(ctx context.Context) ([]models.Station, error)
	ListSchools(ctx context.Context) ([]models.School, error)
	SaveProximity(ctx context.Context, id int64, stations models.NearbyStations, schools models.NearbySchools) error
}

// Radii are search radii in meters.
type Radii struct {
	Stations float64
	Schools  float64
}

type Result struct {
	Stations models.NearbyStations `json:"nearbyStations"`
	Schools  models.NearbySchools  `json:"nearbySchools"`
}

type Service struct {
	store  Store
	radii  Radii
	logger *logrus.Logger
}

// NewService returns a service using radii, where zero fields fall back to
// the defaults.
func NewService(store Store, radii Radii, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if radii.Stations <= 0 {
		radii.Stations = DefaultStationRadius
	}
	if radii.Schools <= 0 {
		radii.Schools = DefaultSchoolRadius
	}
	return &Service{store: store, radii: radii, logger: logger}
}

func (s *Service) Radii() Radii {
	return s.radii
}

// Compute runs the radius searches for coord without persisting anything.
// Stations are required; a school dataset that is empty or unreadable
// yields no schools.
func (s *Service) Compute(ctx context.Context, coord geo.Coordinate) (Result, error) {
	start := time.Now()
	defer func() { metrics.ProximityDuration.Observe(time.Since(start).Seconds()) }()

	stations, err := s.store.ListStations(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load stations: %w", err)
	}

	result := Result{
		Stations: models.StationMatches(geo.FindWithinRadius(coord, stations, s.radii.Stations)),
		Schools:  models.NearbySchools{},
	}

	schools, err := s.store.ListSchools(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load schools, continuing without them")
	} else if len(schools) > 0 {
		result.Schools = models.SchoolMatches(geo.FindWithinRadius(coord, schools, s.radii.Schools))
	}

	metrics.ProximityMatches.WithLabelValues("station").Observe(float64(len(result.Stations)))
	metrics.ProximityMatches.WithLabelValues("school").Observe(float64(len(result.Schools)))
	return result, nil
}

// Recompute computes proximity for coord and stores it on the property.
// On failure the stored results are left as they were.
func (s *Service) Recompute(ctx context.Context, propertyID int64, coord geo.Coordinate) (Result, error) {
	log := s.logger.WithFields(logrus.Fields{
		"property_id": propertyID,
		"lat":         coord.Lat,
		"lng":         coord.Lng,
	})

	result, err := s.Compute(ctx, coord)
	if err == nil {
		err = s.store.SaveProximity(ctx, propertyID, result.Stations, result.Schools)
	}
	if err != nil {
		s.fail(log, propertyID, err)
		return Result{}, err
	}

	metrics.ProximityRefreshes.WithLabelValues(metrics.OutcomeComputed).Inc()
	log.WithFields(logrus.Fields{
		"stations": len(result.Stations),
		"schools":  len(result.Schools),
	}).Info("Updated nearby stations and schools")
	return result, nil
}

// Refresh brings a property's cached proximity in line with its
// coordinates. A nil coord clears both results; anything else recomputes.
// Create and update both go through here.
func (s *Service) Refresh(ctx context.Context, propertyID int64, coord *geo.Coordinate) (Result, error) {
	if coord != nil {
		return s.Recompute(ctx, propertyID, *coord)
	}

	empty := Result{Stations: models.NearbyStations{}, Schools: models.NearbySchools{}}
	if err := s.store.SaveProximity(ctx, propertyID, empty.Stations, empty.Schools); err != nil {
		s.fail(s.logger.WithField("property_id", propertyID), propertyID, err)
		return Result{}, err
	}

	metrics.ProximityRefreshes.WithLabelValues(metrics.OutcomeCleared).Inc()
	s.logger.WithField("property_id", propertyID).Info("Cleared proximity for property without coordinates")
	return empty, nil
}

func (s *Service) fail(log *logrus.Entry, propertyID int64, err error) {
	metrics.ProximityRefreshes.WithLabelValues(metrics.OutcomeFailed).Inc()
	log.WithError(err).Error("Failed to refresh proximity")
	report.ReportErrorWithOptions(err, report.Options{
		Tags:         map[string]string{"component": "proximity"},
		ExtraContext: map[string]interface{}{"property_id": propertyID},
	})
}

// RecomputeAll refreshes every given property, continuing past failures.
// It returns how many succeeded and the last error seen.
func (s *Service) RecomputeAll(ctx context.Context, properties []models.Property) (int, error) {
	var (
		updated int
		lastErr error
	)
	for _, p := range properties {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		var coord *geo.Coordinate
		if p.HasCoordinates() {
			coord = &geo.Coordinate{Lat: *p.GPSLat, Lng: *p.GPSLng}
		}
		if _, err := s.Refresh(ctx, p.ID, coord); err != nil {
			lastErr = err
			continue
		}
		updated++
	}

	s.logger.WithFields(logrus.Fields{
		"updated": updated,
		"total":   len(properties),
	}).Info("Finished proximity backfill")
	return updated, lastErr
}
