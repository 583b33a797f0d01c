package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proptracker/server/internal/models"
)

func setupTestDatabase(t *testing.T) *Database {
	db, err := NewTestDatabase()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func float64Ptr(f float64) *float64 { return &f }
func int64Ptr(i int64) *int64       { return &i }

func testStations() []models.Station {
	return []models.Station{
		{
			ID: "station-4503057074", Name: "Clapham Common", Lat: 51.4620748, Lng: -0.1373589,
			Type: models.StationTube, Networks: models.StringList{"London Underground"},
			AllTypes: models.StringList{"tube"},
		},
		{
			ID: "station-1", Name: "Wimbledon", Lat: 51.4214, Lng: -0.2064,
			Type: models.StationNationalRail, Networks: models.StringList{"National Rail", "London Underground"},
			AllTypes: models.StringList{"national_rail", "tube", "tram"},
		},
		{
			ID: "station-2", Name: "Brixton", Lat: 51.4627, Lng: -0.1145, Type: models.StationTube,
		},
	}
}

func TestMigrateSchemaIsIdempotent(t *testing.T) {
	db := setupTestDatabase(t)
	require.NoError(t, db.RunMigrations())
	require.NoError(t, MigrateSchema(db.GetDB()))
}

func TestPropertyCRUD(t *testing.T) {
	ctx := context.Background()
	db := setupTestDatabase(t)

	listed := "2024-10-01"
	property := &models.Property{
		Name:            "2 Bedroom Flat, Clapham Common",
		Price:           int64Ptr(650000),
		Agency:          "Foxtons",
		GPSLat:          float64Ptr(51.4618),
		GPSLng:          float64Ptr(-0.1385),
		FirstListedDate: &listed,
	}
	require.NoError(t, db.CreateProperty(ctx, property))
	require.NotZero(t, property.ID)
	assert.Equal(t, models.StatusNotContacted, property.Status)

	got, err := db.GetProperty(ctx, property.ID)
	require.NoError(t, err)
	assert.Equal(t, property.Name, got.Name)
	assert.Equal(t, 51.4618, *got.GPSLat)
	assert.NotNil(t, got.NearbyStations)
	assert.Empty(t, got.NearbyStations)
	require.NotNil(t, got.TimeOnMarketMonths)
	assert.GreaterOrEqual(t, *got.TimeOnMarketMonths, 0)

	got.Status = models.StatusViewed
	got.GPSLat, got.GPSLng = nil, nil
	require.NoError(t, db.UpdateProperty(ctx, got))

	updated, err := db.GetProperty(ctx, property.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusViewed, updated.Status)
	assert.Nil(t, updated.GPSLat)
	assert.Nil(t, updated.GPSLng)

	count, err := db.CountProperties(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = db.DeleteProperty(ctx, property.ID)
	require.NoError(t, err)

	_, err = db.GetProperty(ctx, property.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.DeleteProperty(ctx, property.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateMissingProperty(t *testing.T) {
	db := setupTestDatabase(t)
	err := db.UpdateProperty(context.Background(), &models.Property{ID: 999, Name: "Ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPropertiesFilters(t *testing.T) {
	ctx := context.Background()
	db := setupTestDatabase(t)

	for _, p := range []*models.Property{
		{Name: "Flat on Abbeville Road", Agency: "Foxtons", Status: models.StatusContacted},
		{Name: "House in Brixton", Agency: "Savills"},
		{Name: "Studio", Notes: "near the common", Status: models.StatusContacted},
	} {
		require.NoError(t, db.CreateProperty(ctx, p))
	}

	all, err := db.ListProperties(ctx, PropertyFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	contacted, err := db.ListProperties(ctx, PropertyFilter{Status: models.StatusContacted})
	require.NoError(t, err)
	assert.Len(t, contacted, 2)

	search, err := db.ListProperties(ctx, PropertyFilter{Search: "COMMON"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, "Studio", search[0].Name)

	search, err = db.ListProperties(ctx, PropertyFilter{Search: "savills"})
	require.NoError(t, err)
	require.Len(t, search, 1)

	located, err := db.ListPropertiesWithCoordinates(ctx)
	require.NoError(t, err)
	assert.Empty(t, located)
}

func TestSaveProximity(t *testing.T) {
	ctx := context.Background()
	db := setupTestDatabase(t)

	property := &models.Property{Name: "Flat", GPSLat: float64Ptr(51.4618), GPSLng: float64Ptr(-0.1385)}
	require.NoError(t, db.CreateProperty(ctx, property))

	stations := models.NearbyStations{
		{Station: testStations()[0], Distance: 85, WalkingTime: 1},
	}
	require.NoError(t, db.SaveProximity(ctx, property.ID, stations, nil))

	got, err := db.GetProperty(ctx, property.ID)
	require.NoError(t, err)
	require.Len(t, got.NearbyStations, 1)
	assert.Equal(t, "Clapham Common", got.NearbyStations[0].Name)
	assert.Equal(t, 85, got.NearbyStations[0].Distance)
	assert.Equal(t, models.StringList{"London Underground"}, got.NearbyStations[0].Networks)
	assert.NotNil(t, got.NearbySchools)
	assert.Empty(t, got.NearbySchools)
	assert.Equal(t, "Flat", got.Name)

	// CRUD updates leave the cached results alone.
	got.Name = "Renamed flat"
	require.NoError(t, db.UpdateProperty(ctx, got))
	again, err := db.GetProperty(ctx, property.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed flat", again.Name)
	assert.Len(t, again.NearbyStations, 1)

	err = db.SaveProximity(ctx, 12345, nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplaceStations(t *testing.T) {
	ctx := context.Background()
	db := setupTestDatabase(t)

	require.NoError(t, db.ReplaceStations(ctx, testStations()))
	require.NoError(t, db.ReplaceStations(ctx, testStations()))

	count, err := db.CountStations(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	stations, err := db.ListStations(ctx)
	require.NoError(t, err)
	require.Len(t, stations, 3)
	assert.Equal(t, "Brixton", stations[0].Name)
	assert.NotNil(t, stations[0].Lines)

	station, err := db.GetStation(ctx, "station-1")
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"national_rail", "tube", "tram"}, station.AllTypes)

	_, err = db.GetStation(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	trams, err := db.ListStationsByType(ctx, models.StationTram)
	require.NoError(t, err)
	require.Len(t, trams, 1)
	assert.Equal(t, "Wimbledon", trams[0].Name)

	tubes, err := db.ListStationsByType(ctx, models.StationTube)
	require.NoError(t, err)
	assert.Len(t, tubes, 3)

	require.NoError(t, db.ReplaceStations(ctx, nil))
	stations, err = db.ListStations(ctx)
	require.NoError(t, err)
	assert.Empty(t, stations)
}

func TestReplaceSchools(t *testing.T) {
	ctx := context.Background()
	db := setupTestDatabase(t)

	schools, err := db.ListSchools(ctx)
	require.NoError(t, err)
	assert.NotNil(t, schools)
	assert.Empty(t, schools)

	require.NoError(t, db.ReplaceSchools(ctx, []models.School{
		{ID: "school-1", Name: "Clapham Manor Primary", Lat: 51.465, Lng: -0.139, OfstedRating: "Good", SchoolType: "Primary"},
	}))
	schools, err = db.ListSchools(ctx)
	require.NoError(t, err)
	require.Len(t, schools, 1)
	assert.Equal(t, "Good", schools[0].OfstedRating)
}

func TestImages(t *testing.T) {
	ctx := context.Background()
	db := setupTestDatabase(t)

	property := &models.Property{Name: "Flat"}
	require.NoError(t, db.CreateProperty(ctx, property))

	added, err := db.AddImages(ctx, property.ID, []models.PropertyImage{
		{Filename: "a.jpg", OriginalName: "front.jpg"},
		{Filename: "b.jpg", OriginalName: "kitchen.jpg"},
	})
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.True(t, added[0].IsCover)
	assert.False(t, added[1].IsCover)

	more, err := db.AddImages(ctx, property.ID, []models.PropertyImage{{Filename: "c.jpg"}})
	require.NoError(t, err)
	assert.False(t, more[0].IsCover)

	got, err := db.GetProperty(ctx, property.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CoverImage)
	assert.Equal(t, "a.jpg", *got.CoverImage)
	assert.Len(t, got.Images, 3)

	require.NoError(t, db.SetCoverImage(ctx, property.ID, added[1].ID))
	got, err = db.GetProperty(ctx, property.ID)
	require.NoError(t, err)
	assert.Equal(t, "b.jpg", *got.CoverImage)

	deleted, err := db.DeleteImage(ctx, property.ID, added[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "b.jpg", deleted.Filename)

	images, err := db.ListImages(ctx, property.ID)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "a.jpg", images[0].Filename)
	assert.True(t, images[0].IsCover)

	assert.ErrorIs(t, db.SetCoverImage(ctx, property.ID, 999), ErrNotFound)
	_, err = db.DeleteImage(ctx, property.ID+1, added[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.AddImages(ctx, 999, []models.PropertyImage{{Filename: "orphan.jpg"}})
	assert.ErrorIs(t, err, ErrNotFound)

	removed, err := db.DeleteProperty(ctx, property.ID)
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	images, err = db.ListImages(ctx, property.ID)
	require.NoError(t, err)
	assert.Empty(t, images)
}
