package geometry

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ptgeo "proptracker/server/internal/geo"
	"proptracker/server/internal/models"
)

func located(id int64, name string, lat, lng float64) models.Property {
	return models.Property{ID: id, Name: name, GPSLat: &lat, GPSLng: &lng, Status: models.StatusContacted}
}

func TestStationsFeatureCollection(t *testing.T) {
	zone := 2
	fc := StationsFeatureCollection([]models.Station{
		{ID: "a", Name: "Clapham Common", Lat: 51.4620748, Lng: -0.1373589, Type: models.StationTube, Zone: &zone},
		{ID: "b", Name: "Brixton", Lat: 51.4627, Lng: -0.1145, Type: models.StationTube},
	})

	require.Len(t, fc.Features, 2)
	point, ok := fc.Features[0].Geometry.(orb.Point)
	require.True(t, ok)
	assert.Equal(t, -0.1373589, point.Lon())
	assert.Equal(t, 51.4620748, point.Lat())
	assert.Equal(t, "Clapham Common", fc.Features[0].Properties["name"])
	assert.Equal(t, 2, fc.Features[0].Properties["zone"])
	assert.NotContains(t, fc.Features[1].Properties, "zone")

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)
}

func TestPropertiesFeatureCollection(t *testing.T) {
	withStation := located(1, "Flat", 51.4618, -0.1385)
	withStation.NearbyStations = models.NearbyStations{
		{Station: models.Station{ID: "a", Name: "Clapham Common"}, Distance: 85, WalkingTime: 1},
	}

	fc := PropertiesFeatureCollection([]models.Property{
		withStation,
		{ID: 2, Name: "No location yet"},
		located(3, "House", 51.44, -0.15),
	})

	require.Len(t, fc.Features, 2)
	assert.Equal(t, int64(1), fc.Features[0].ID)
	assert.Equal(t, "Clapham Common", fc.Features[0].Properties["nearestStation"])
	assert.Equal(t, 85, fc.Features[0].Properties["nearestStationDistance"])
	assert.NotContains(t, fc.Features[1].Properties, "nearestStation")
}

func TestCircle(t *testing.T) {
	center := orb.Point{-0.1385, 51.4618}
	polygon := Circle(center, 1000)

	require.Len(t, polygon, 1)
	ring := polygon[0]
	assert.Len(t, ring, circleSegments+1)
	assert.True(t, ring.Closed())

	for _, p := range ring {
		d := ptgeo.DistanceMeters(center.Lat(), center.Lon(), p.Lat(), p.Lon())
		assert.InDelta(t, 1000, d, 5)
	}
}

func TestCatchment(t *testing.T) {
	p := located(1, "Flat", 51.4618, -0.1385)
	p.NearbyStations = models.NearbyStations{
		{Station: models.Station{ID: "a", Name: "Clapham Common", Lat: 51.4620748, Lng: -0.1373589}, Distance: 85, WalkingTime: 1},
		{Station: models.Station{ID: "b", Name: "Clapham North", Lat: 51.4651, Lng: -0.1296}, Distance: 727, WalkingTime: 9},
	}

	fc := Catchment(&p, 1000)
	require.NotNil(t, fc)
	require.Len(t, fc.Features, 4)
	assert.Equal(t, "property", fc.Features[0].Properties["kind"])
	assert.Equal(t, "radius", fc.Features[1].Properties["kind"])
	assert.Equal(t, 727, fc.Features[3].Properties["distance"])

	assert.Nil(t, Catchment(&models.Property{ID: 2}, 1000))
}
