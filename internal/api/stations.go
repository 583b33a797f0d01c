package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"proptracker/server/internal/geo"
	"proptracker/server/internal/geocoding"
	"proptracker/server/internal/geometry"
	"proptracker/server/internal/models"
	"proptracker/server/internal/validation"
)

const maxSearchRadiusMeters = 50000

var queryFields = map[string]string{"gpsLat": "lat", "gpsLng": "lng"}

// pointFromQuery reads the required lat and lng query parameters.
func (h *Handler) pointFromQuery(c *gin.Context) (geo.Coordinate, bool) {
	lat, lng := c.Query("lat"), c.Query("lng")
	if lat == "" && lng == "" {
		h.badQuery(c, "lat", "lat and lng query parameters are required")
		return geo.Coordinate{}, false
	}

	res, err := validation.ValidateCoordinate(lat, lng, validation.Options{})
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			h.badQuery(c, queryFields[verr.Field], verr.Message)
			return geo.Coordinate{}, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return geo.Coordinate{}, false
	}
	return *res.Coordinate, true
}

func (h *Handler) badQuery(c *gin.Context, field, msg string) {
	h.validationFailed(c, &validation.Error{Field: field, Message: msg})
}

// radiusFromQuery returns the radius parameter, or 0 to use the default.
func (h *Handler) radiusFromQuery(c *gin.Context) (float64, bool) {
	raw := c.Query("radius")
	if raw == "" {
		return 0, true
	}
	radius, err := strconv.ParseFloat(raw, 64)
	if err != nil || radius <= 0 || radius > maxSearchRadiusMeters {
		h.badQuery(c, "radius", "radius must be a number of meters between 0 and 50000")
		return 0, false
	}
	return radius, true
}

func (h *Handler) ListStations(c *gin.Context) {
	stations, err := h.db.ListStations(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get stations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stations"})
		return
	}
	c.JSON(http.StatusOK, stations)
}

func (h *Handler) ListStationsByType(c *gin.Context) {
	stationType := models.StationType(c.Param("type"))
	if !stationType.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid station type", "field": "type"})
		return
	}

	stations, err := h.db.ListStationsByType(c.Request.Context(), stationType)
	if err != nil {
		h.logger.WithError(err).WithField("type", stationType).Error("Failed to get stations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stations"})
		return
	}
	c.JSON(http.StatusOK, stations)
}

func (h *Handler) NearbyStations(c *gin.Context) {
	point, ok := h.pointFromQuery(c)
	if !ok {
		return
	}
	radius, ok := h.radiusFromQuery(c)
	if !ok {
		return
	}

	stations, err := h.proximity.NearbyStations(c.Request.Context(), point, radius)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{"lat": point.Lat, "lng": point.Lng}).Error("Failed to find nearby stations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find nearby stations"})
		return
	}
	c.JSON(http.StatusOK, stations)
}

func (h *Handler) NearestStation(c *gin.Context) {
	point, ok := h.pointFromQuery(c)
	if !ok {
		return
	}

	station, err := h.proximity.NearestStation(c.Request.Context(), point)
	if err != nil {
		h.logger.WithError(err).Error("Failed to find nearest station")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find nearest station"})
		return
	}
	if station == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No stations loaded"})
		return
	}
	c.JSON(http.StatusOK, station)
}

func (h *Handler) ListSchools(c *gin.Context) {
	schools, err := h.db.ListSchools(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get schools")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch schools"})
		return
	}
	c.JSON(http.StatusOK, schools)
}

func (h *Handler) NearbySchools(c *gin.Context) {
	point, ok := h.pointFromQuery(c)
	if !ok {
		return
	}
	radius, ok := h.radiusFromQuery(c)
	if !ok {
		return
	}

	schools, err := h.proximity.NearbySchools(c.Request.Context(), point, radius)
	if err != nil {
		h.logger.WithError(err).Error("Failed to find nearby schools")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find nearby schools"})
		return
	}
	c.JSON(http.StatusOK, schools)
}

func (h *Handler) StationsGeoJSON(c *gin.Context) {
	stations, err := h.db.ListStations(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get stations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stations"})
		return
	}
	c.JSON(http.StatusOK, geometry.StationsFeatureCollection(stations))
}

func (h *Handler) PropertiesGeoJSON(c *gin.Context) {
	properties, err := h.db.ListPropertiesWithCoordinates(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get properties")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch properties"})
		return
	}
	c.JSON(http.StatusOK, geometry.PropertiesFeatureCollection(properties))
}

// Geocode resolves ?q= to coordinates so the form can prefill them.
func (h *Handler) Geocode(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required", "field": "q"})
		return
	}
	if h.geocoder == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Geocoding is disabled"})
		return
	}

	coord, err := h.geocoder.Geocode(c.Request.Context(), query)
	if err != nil {
		if errors.Is(err, geocoding.ErrNoResults) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Address not found"})
			return
		}
		h.logger.WithError(err).WithField("query", query).Error("Failed to geocode address")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Geocoding service unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lat":          coord.Lat,
		"lng":          coord.Lng,
		"insideRegion": h.config.Region().Contains(coord.Lat, coord.Lng),
	})
}
