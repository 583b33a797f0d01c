package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jamespfennell/gtfs"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proptracker/server/internal/database"
	"proptracker/server/internal/models"
	"proptracker/server/internal/proximity"
)

func TestLoadBundledStations(t *testing.T) {
	stations, err := LoadStations("")
	require.NoError(t, err)
	assert.Len(t, stations, 352)

	var clapham *models.Station
	for i := range stations {
		if stations[i].Name == "Clapham Common" {
			clapham = &stations[i]
		}
	}
	require.NotNil(t, clapham)
	assert.Equal(t, "station-4503057074", clapham.ID)
	assert.InDelta(t, 51.4620748, clapham.Lat, 1e-9)
	assert.InDelta(t, -0.1373589, clapham.Lng, 1e-9)
	assert.Equal(t, models.StationTube, clapham.Type)
	assert.NotNil(t, clapham.Lines)
}

func TestLoadBundledSchools(t *testing.T) {
	schools, err := LoadSchools("")
	require.NoError(t, err)
	assert.NotNil(t, schools)
	assert.Empty(t, schools)
}

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadStationsFromFile(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		expectError bool
	}{
		{
			name:    "Valid",
			content: `[{"id":"s1","name":"Balham","lat":51.443,"lng":-0.152,"lines":["Northern"],"type":"tube","zone":3}]`,
		},
		{name: "Not JSON", content: `stations`, expectError: true},
		{name: "Missing id", content: `[{"name":"Balham","lat":51.4,"lng":-0.1,"type":"tube"}]`, expectError: true},
		{name: "Unknown type", content: `[{"id":"s1","name":"Balham","lat":51.4,"lng":-0.1,"type":"bus"}]`, expectError: true},
		{name: "Latitude out of range", content: `[{"id":"s1","name":"Balham","lat":151.4,"lng":-0.1,"type":"tube"}]`, expectError: true},
		{
			name:        "Duplicate ids",
			content:     `[{"id":"s1","name":"A","lat":51.4,"lng":-0.1,"type":"tube"},{"id":"s1","name":"B","lat":51.4,"lng":-0.1,"type":"tube"}]`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stations, err := LoadStations(writeFile(t, "stations.json", tt.content))
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, stations, 1)
			require.NotNil(t, stations[0].Zone)
			assert.Equal(t, 3, *stations[0].Zone)
			assert.Equal(t, models.StringList{"Northern"}, stations[0].Lines)
		})
	}

	_, err := LoadStations(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadSchoolsFromFile(t *testing.T) {
	schools, err := LoadSchools(writeFile(t, "schools.json",
		`[{"id":"sc1","name":"Clapham Manor Primary","lat":51.465,"lng":-0.139,"ofstedRating":"Good","schoolType":"Primary","performancePercentage":0}]`))
	require.NoError(t, err)
	require.Len(t, schools, 1)
	assert.Equal(t, "Good", schools[0].OfstedRating)

	_, err = LoadSchools(writeFile(t, "bad.json", `[{"id":"","name":"x"}]`))
	assert.Error(t, err)
}

func float64Ptr(f float64) *float64 { return &f }

func TestStationsFromStops(t *testing.T) {
	station := gtfs.Stop{Id: "940GZZLUCPC", Name: "Clapham Common ", Type: 1, ZoneId: "2", Latitude: float64Ptr(51.4618), Longitude: float64Ptr(-0.1384)}
	stops := []gtfs.Stop{
		station,
		{Id: "9400ZZLUCPC1", Name: "Clapham Common Platform 1", Type: 0, Parent: &station, Latitude: float64Ptr(51.4618), Longitude: float64Ptr(-0.1384)},
		{Id: "entrance", Name: "Clapham Common Entrance", Type: 2, Parent: &station, Latitude: float64Ptr(51.4619), Longitude: float64Ptr(-0.1385)},
		{Id: "halt", Name: "Lonely Halt", Type: 0, ZoneId: "Zone 2/3", Latitude: float64Ptr(51.40), Longitude: float64Ptr(-0.10)},
		{Id: "nowhere", Name: "No Position", Type: 0},
	}

	stations := StationsFromStops(stops, models.StationTube, "London Underground")
	require.Len(t, stations, 2)

	assert.Equal(t, "gtfs-940GZZLUCPC", stations[0].ID)
	assert.Equal(t, "Clapham Common", stations[0].Name)
	require.NotNil(t, stations[0].Zone)
	assert.Equal(t, 2, *stations[0].Zone)
	assert.Equal(t, models.StringList{"London Underground"}, stations[0].Networks)
	assert.Equal(t, models.StringList{"tube"}, stations[0].AllTypes)

	assert.Equal(t, "Lonely Halt", stations[1].Name)
	require.NotNil(t, stations[1].Zone)
	assert.Equal(t, 2, *stations[1].Zone)
}

func TestParseZone(t *testing.T) {
	assert.Nil(t, parseZone(""))
	assert.Nil(t, parseZone("central"))
	assert.Nil(t, parseZone("0"))
	assert.Equal(t, 4, *parseZone("4"))
	assert.Equal(t, 6, *parseZone("Zone 6"))
	assert.Equal(t, 3, *parseZone("3+4"))
}

func TestLoadGTFSStationsErrors(t *testing.T) {
	_, err := LoadGTFSStations("unused.zip", models.StationType("bus"), "")
	assert.Error(t, err)

	_, err = LoadGTFSStations(filepath.Join(t.TempDir(), "missing.zip"), models.StationTram, "")
	assert.Error(t, err)

	_, err = LoadGTFSStations(writeFile(t, "feed.zip", "not a zip"), models.StationTram, "")
	assert.Error(t, err)
}

func setupSeeder(t *testing.T) (*Seeder, *database.Database) {
	db, err := database.NewTestDatabase()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	prox := proximity.NewService(db, proximity.Radii{}, logger)
	return NewSeeder(db, prox, Options{MaxRetries: 2}, logger), db
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	seeder, db := setupSeeder(t)

	stations, err := LoadStations("")
	require.NoError(t, err)

	require.NoError(t, seeder.SeedStations(ctx, stations))
	require.NoError(t, seeder.SeedStations(ctx, stations))
	require.NoError(t, seeder.SeedSchools(ctx, []models.School{}))

	count, err := db.CountStations(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(352), count)

	inserted, err := seeder.SeedExampleProperty(ctx)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = seeder.SeedExampleProperty(ctx)
	require.NoError(t, err)
	assert.False(t, inserted)

	properties, err := db.ListProperties(ctx, database.PropertyFilter{})
	require.NoError(t, err)
	require.Len(t, properties, 1)

	example := properties[0]
	assert.Equal(t, ExamplePropertyName, example.Name)
	require.NotEmpty(t, example.NearbyStations)
	assert.Len(t, example.NearbyStations, 4)
	assert.Equal(t, "Clapham Common", example.NearbyStations[0].Name)
	assert.Equal(t, 85, example.NearbyStations[0].Distance)
	assert.Equal(t, 1, example.NearbyStations[0].WalkingTime)
	assert.Empty(t, example.NearbySchools)
}

func TestSeedRetriesThenFails(t *testing.T) {
	seeder, db := setupSeeder(t)
	require.NoError(t, db.Close())

	err := seeder.SeedStations(context.Background(), []models.Station{{ID: "s", Name: "S", Type: models.StationTube}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
}
