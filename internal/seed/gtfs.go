package seed

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jamespfennell/gtfs"

	"proptracker/server/internal/models"
)

// LoadGTFSStations builds a station dataset from a GTFS static feed (zip).
// Every station in the feed is tagged with stationType and network.
func LoadGTFSStations(path string, stationType models.StationType, network string) ([]models.Station, error) {
	if !stationType.IsValid() {
		return nil, fmt.Errorf("unknown station type %q", stationType)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read GTFS feed: %w", err)
	}

	static, err := gtfs.ParseStatic(data, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse GTFS feed: %w", err)
	}

	stations := StationsFromStops(static.Stops, stationType, network)
	if err := validateStations(stations); err != nil {
		return nil, err
	}
	return stations, nil
}

// StationsFromStops keeps stations (location type 1) and parentless stops
// with a position. Platforms and entrances of a station collapse into it.
func StationsFromStops(stops []gtfs.Stop, stationType models.StationType, network string) []models.Station {
	var networks models.StringList
	if network != "" {
		networks = models.StringList{network}
	}

	stations := []models.Station{}
	seen := make(map[string]bool)
	for _, stop := range stops {
		isStation := stop.Type == 1
		isStandalone := stop.Type == 0 && stop.Parent == nil
		if !isStation && !isStandalone {
			continue
		}
		if stop.Latitude == nil || stop.Longitude == nil {
			continue
		}

		id := "gtfs-" + stop.Id
		if seen[id] {
			continue
		}
		seen[id] = true

		stations = append(stations, models.Station{
			ID:       id,
			Name:     strings.TrimSpace(stop.Name),
			Lat:      *stop.Latitude,
			Lng:      *stop.Longitude,
			Lines:    models.StringList{},
			Type:     stationType,
			Zone:     parseZone(stop.ZoneId),
			Networks: networks,
			AllTypes: models.StringList{string(stationType)},
		})
	}
	return stations
}

// parseZone accepts fare zones such as "2" or "Zone 2". Shared-boundary
// zones like "2/3" take the lower number.
func parseZone(zoneID string) *int {
	s := strings.TrimSpace(strings.TrimPrefix(strings.ToLower(zoneID), "zone"))
	if i := strings.IndexAny(s, "/+"); i >= 0 {
		s = s[:i]
	}
	zone, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || zone <= 0 {
		return nil
	}
	return &zone
}
