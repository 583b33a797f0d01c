package proximity

import (
	"context"
	"fmt"

	"proptracker/server/internal/geo"
	"proptracker/server/internal/models"
)

// NearbyStations lists stations within radius of coord. A non-positive
// radius uses the configured station radius.
func (s *Service) NearbyStations(ctx context.Context, coord geo.Coordinate, radius float64) (models.NearbyStations, error) {
	if radius <= 0 {
		radius = s.radii.Stations
	}
	stations, err := s.store.ListStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stations: %w", err)
	}
	return models.StationMatches(geo.FindWithinRadius(coord, stations, radius)), nil
}

// NearestStation returns the closest station regardless of distance, or
// nil when no stations are loaded.
func (s *Service) NearestStation(ctx context.Context, coord geo.Coordinate) (*models.StationWithDistance, error) {
	stations, err := s.store.ListStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stations: %w", err)
	}

	match, ok := geo.FindNearest(coord, stations)
	if !ok {
		return nil, nil
	}
	return &models.StationWithDistance{
		Station:     match.Item,
		Distance:    match.RoundedDistance(),
		WalkingTime: match.WalkingTime,
	}, nil
}

func (s *Service) NearbySchools(ctx context.Context, coord geo.Coordinate, radius float64) (models.NearbySchools, error) {
	if radius <= 0 {
		radius = s.radii.Schools
	}
	schools, err := s.store.ListSchools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load schools: %w", err)
	}
	return models.SchoolMatches(geo.FindWithinRadius(coord, schools, radius)), nil
}
