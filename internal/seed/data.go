package seed

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"

	"proptracker/server/internal/models"
)

//go:embed data/*.json
var bundled embed.FS

// LoadStations reads a station dataset from path, or the bundled South
// London dataset when path is empty.
func LoadStations(path string) ([]models.Station, error) {
	data, err := readDataset(path, "data/stations.json")
	if err != nil {
		return nil, err
	}

	var stations []models.Station
	if err := json.Unmarshal(data, &stations); err != nil {
		return nil, fmt.Errorf("failed to parse stations: %w", err)
	}
	if err := validateStations(stations); err != nil {
		return nil, err
	}
	return stations, nil
}

// LoadSchools reads a school dataset from path, or the bundled one (which
// may be empty) when path is empty.
func LoadSchools(path string) ([]models.School, error) {
	data, err := readDataset(path, "data/schools.json")
	if err != nil {
		return nil, err
	}

	schools := []models.School{}
	if err := json.Unmarshal(data, &schools); err != nil {
		return nil, fmt.Errorf("failed to parse schools: %w", err)
	}

	seen := make(map[string]bool, len(schools))
	for i, s := range schools {
		if s.ID == "" || s.Name == "" {
			return nil, fmt.Errorf("school %d: id and name are required", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate school id %q", s.ID)
		}
		seen[s.ID] = true
		if err := checkPosition(s.Lat, s.Lng); err != nil {
			return nil, fmt.Errorf("school %q: %w", s.ID, err)
		}
	}
	return schools, nil
}

func readDataset(path, embedded string) ([]byte, error) {
	if path == "" {
		return bundled.ReadFile(embedded)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return data, nil
}

func validateStations(stations []models.Station) error {
	seen := make(map[string]bool, len(stations))
	for i, s := range stations {
		if s.ID == "" || s.Name == "" {
			return fmt.Errorf("station %d: id and name are required", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate station id %q", s.ID)
		}
		seen[s.ID] = true
		if !s.Type.IsValid() {
			return fmt.Errorf("station %q: unknown type %q", s.ID, s.Type)
		}
		if err := checkPosition(s.Lat, s.Lng); err != nil {
			return fmt.Errorf("station %q: %w", s.ID, err)
		}
	}
	return nil
}

func checkPosition(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("coordinates (%v, %v) out of range", lat, lng)
	}
	return nil
}
