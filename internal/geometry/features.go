package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"proptracker/server/internal/models"
)

const circleSegments = 64

// StationsFeatureCollection renders stations as GeoJSON points.
func StationsFeatureCollection(stations []models.Station) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range stations {
		fc.Append(stationFeature(s, nil))
	}
	return fc
}

func stationFeature(s models.Station, extra geojson.Properties) *geojson.Feature {
	feature := geojson.NewFeature(orb.Point{s.Lng, s.Lat})
	feature.ID = s.ID
	feature.Properties = geojson.Properties{
		"kind":     "station",
		"name":     s.Name,
		"type":     string(s.Type),
		"allTypes": []string(s.AllTypes),
		"networks": []string(s.Networks),
	}
	if s.Zone != nil {
		feature.Properties["zone"] = *s.Zone
	}
	for k, v := range extra {
		feature.Properties[k] = v
	}
	return feature
}

// PropertiesFeatureCollection renders located properties as GeoJSON points.
// Properties without coordinates are skipped.
func PropertiesFeatureCollection(properties []models.Property) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range properties {
		if f := propertyFeature(&properties[i]); f != nil {
			fc.Append(f)
		}
	}
	return fc
}

func propertyFeature(p *models.Property) *geojson.Feature {
	if !p.HasCoordinates() {
		return nil
	}

	feature := geojson.NewFeature(orb.Point{*p.GPSLng, *p.GPSLat})
	feature.ID = p.ID
	feature.Properties = geojson.Properties{
		"kind":   "property",
		"name":   p.Name,
		"status": string(p.Status),
	}
	if p.Price != nil {
		feature.Properties["price"] = *p.Price
	}
	if p.CoverImage != nil {
		feature.Properties["coverImage"] = *p.CoverImage
	}
	if len(p.NearbyStations) > 0 {
		nearest := p.NearbyStations[0]
		feature.Properties["nearestStation"] = nearest.Name
		feature.Properties["nearestStationDistance"] = nearest.Distance
		feature.Properties["nearestStationWalkingTime"] = nearest.WalkingTime
	}
	return feature
}

// Catchment renders one property with its station search radius and the
// cached nearby stations, for map display. It returns nil for a property
// without coordinates.
func Catchment(p *models.Property, radiusMeters float64) *geojson.FeatureCollection {
	center := propertyFeature(p)
	if center == nil {
		return nil
	}

	fc := geojson.NewFeatureCollection()
	fc.Append(center)

	circle := geojson.NewFeature(Circle(orb.Point{*p.GPSLng, *p.GPSLat}, radiusMeters))
	circle.Properties = geojson.Properties{
		"kind":   "radius",
		"radius": radiusMeters,
	}
	fc.Append(circle)

	for _, s := range p.NearbyStations {
		fc.Append(stationFeature(s.Station, geojson.Properties{
			"distance":    s.Distance,
			"walkingTime": s.WalkingTime,
		}))
	}
	return fc
}

// Circle approximates a circle of the given radius as a closed polygon.
func Circle(center orb.Point, radiusMeters float64) orb.Polygon {
	ring := make(orb.Ring, 0, circleSegments+1)
	for i := 0; i < circleSegments; i++ {
		bearing := float64(i) * 360 / circleSegments
		ring = append(ring, geo.PointAtBearingAndDistance(center, bearing, radiusMeters))
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}
