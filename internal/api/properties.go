package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"proptracker/server/internal/database"
	"proptracker/server/internal/geo"
	"proptracker/server/internal/geometry"
	"proptracker/server/internal/models"
	"proptracker/server/internal/validation"
)

// PropertyRequest is the body of create and update. GPSLat and GPSLng stay
// untyped so numeric strings and blanks can be told apart from bad input.
type PropertyRequest struct {
	Name            string      `json:"name"`
	Price           *int64      `json:"price"`
	SquareFeet      *int        `json:"squareFeet"`
	Bedrooms        *int        `json:"bedrooms"`
	Bathrooms       *int        `json:"bathrooms"`
	Status          string      `json:"status"`
	Link            string      `json:"link"`
	Agency          string      `json:"agency"`
	GPSLat          interface{} `json:"gpsLat"`
	GPSLng          interface{} `json:"gpsLng"`
	MapReference    string      `json:"mapReference"`
	Notes           string      `json:"notes"`
	FirstListedDate *string     `json:"firstListedDate"`
	DateViewed      *string     `json:"dateViewed"`
}

type propertyResponse struct {
	*models.Property
	Warnings []string `json:"warnings"`
}

// toProperty validates the request and builds the model to persist.
func (r *PropertyRequest) toProperty(opts validation.Options) (*models.Property, validation.Result, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return nil, validation.Result{}, &validation.Error{Field: "name", Message: "Name is required"}
	}

	status := models.PropertyStatus(r.Status)
	if r.Status != "" && !status.IsValid() {
		return nil, validation.Result{}, &validation.Error{Field: "status", Message: "Invalid status"}
	}

	numbers := []struct {
		field string
		value *int
	}{
		{"squareFeet", r.SquareFeet},
		{"bedrooms", r.Bedrooms},
		{"bathrooms", r.Bathrooms},
	}
	if r.Price != nil && *r.Price < 0 {
		return nil, validation.Result{}, &validation.Error{Field: "price", Message: "price must not be negative"}
	}
	for _, n := range numbers {
		if n.value != nil && *n.value < 0 {
			return nil, validation.Result{}, &validation.Error{Field: n.field, Message: n.field + " must not be negative"}
		}
	}

	firstListed, err := normaliseDate("firstListedDate", r.FirstListedDate)
	if err != nil {
		return nil, validation.Result{}, err
	}
	viewed, err := normaliseDate("dateViewed", r.DateViewed)
	if err != nil {
		return nil, validation.Result{}, err
	}

	res, err := validation.ValidateCoordinate(r.GPSLat, r.GPSLng, opts)
	if err != nil {
		return nil, validation.Result{}, err
	}

	property := &models.Property{
		Name:            name,
		Price:           r.Price,
		SquareFeet:      r.SquareFeet,
		Bedrooms:        r.Bedrooms,
		Bathrooms:       r.Bathrooms,
		Status:          status,
		Link:            r.Link,
		Agency:          r.Agency,
		MapReference:    r.MapReference,
		Notes:           r.Notes,
		FirstListedDate: firstListed,
		DateViewed:      viewed,
	}
	if res.Coordinate != nil {
		lat, lng := res.Coordinate.Lat, res.Coordinate.Lng
		property.GPSLat = &lat
		property.GPSLng = &lng
	}
	return property, res, nil
}

func normaliseDate(field string, value *string) (*string, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	v := strings.TrimSpace(*value)
	if _, err := time.Parse(models.DateLayout, v); err != nil {
		return nil, &validation.Error{Field: field, Message: field + " must be a YYYY-MM-DD date"}
	}
	return &v, nil
}

func (h *Handler) coordinateOptions(clamp bool) validation.Options {
	return validation.Options{Clamp: clamp, Region: h.config.Region()}
}

func (h *Handler) ListProperties(c *gin.Context) {
	filter := database.PropertyFilter{
		Status: models.PropertyStatus(c.Query("status")),
		Search: strings.TrimSpace(c.Query("search")),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status", "field": "status"})
		return
	}

	properties, err := h.db.ListProperties(c.Request.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get properties")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch properties"})
		return
	}

	c.JSON(http.StatusOK, properties)
}

func (h *Handler) GetProperty(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	property, err := h.db.GetProperty(c.Request.Context(), id)
	if err != nil {
		h.respondPropertyError(c, id, err, "Failed to fetch property")
		return
	}

	c.JSON(http.StatusOK, property)
}

func (h *Handler) CreateProperty(c *gin.Context) {
	clamp, ok := parseClamp(c, h.config.Validation.ClampOnCreate)
	if !ok {
		return
	}

	var req PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	property, res, err := req.toProperty(h.coordinateOptions(clamp))
	if err != nil {
		h.validationFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.db.CreateProperty(ctx, property); err != nil {
		h.logger.WithError(err).Error("Failed to create property")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create property"})
		return
	}
	h.recordWarnings(res, logrus.Fields{"property_id": property.ID})

	// The row is already committed; a proximity failure leaves it with
	// empty results and the caller can retry via the proximity endpoint.
	if res.Coordinate != nil {
		if _, err := h.proximity.Refresh(ctx, property.ID, res.Coordinate); err != nil {
			res.Warnings = append(res.Warnings, "Nearby stations could not be calculated")
		}
	}

	h.respondWithProperty(c, http.StatusCreated, property.ID, res.Warnings)
}

// UpdateProperty replaces every editable field. Sending no coordinates
// removes them and clears the cached proximity.
func (h *Handler) UpdateProperty(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	clamp, ok := parseClamp(c, h.config.Validation.ClampOnUpdate)
	if !ok {
		return
	}

	var req PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	property, res, err := req.toProperty(h.coordinateOptions(clamp))
	if err != nil {
		h.validationFailed(c, err)
		return
	}
	property.ID = id

	ctx := c.Request.Context()
	if err := h.db.UpdateProperty(ctx, property); err != nil {
		h.respondPropertyError(c, id, err, "Failed to update property")
		return
	}
	h.recordWarnings(res, logrus.Fields{"property_id": id})

	if _, err := h.proximity.Refresh(ctx, id, res.Coordinate); err != nil {
		res.Warnings = append(res.Warnings, "Nearby stations could not be calculated")
	}

	h.respondWithProperty(c, http.StatusOK, id, res.Warnings)
}

func (h *Handler) DeleteProperty(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	images, err := h.db.DeleteProperty(c.Request.Context(), id)
	if err != nil {
		h.respondPropertyError(c, id, err, "Failed to delete property")
		return
	}

	for _, img := range images {
		h.removeImageFile(img.Filename)
	}

	c.Status(http.StatusNoContent)
}

// RefreshProximity recomputes the cached nearby stations and schools from
// the stored coordinates.
func (h *Handler) RefreshProximity(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	property, err := h.db.GetProperty(ctx, id)
	if err != nil {
		h.respondPropertyError(c, id, err, "Failed to fetch property")
		return
	}

	var coord *geo.Coordinate
	if property.HasCoordinates() {
		coord = &geo.Coordinate{Lat: *property.GPSLat, Lng: *property.GPSLng}
	}

	result, err := h.proximity.Refresh(ctx, id, coord)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to calculate nearby stations"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// PropertyCatchment returns the property, its station radius and its cached
// nearby stations as a GeoJSON feature collection.
func (h *Handler) PropertyCatchment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	property, err := h.db.GetProperty(c.Request.Context(), id)
	if err != nil {
		h.respondPropertyError(c, id, err, "Failed to fetch property")
		return
	}

	fc := geometry.Catchment(property, h.proximity.Radii().Stations)
	if fc == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Property has no coordinates"})
		return
	}

	c.JSON(http.StatusOK, fc)
}

func (h *Handler) respondWithProperty(c *gin.Context, status int, id int64, warnings []string) {
	property, err := h.db.GetProperty(c.Request.Context(), id)
	if err != nil {
		h.logger.WithError(err).WithField("property_id", id).Error("Failed to reload property")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch property"})
		return
	}
	if warnings == nil {
		warnings = []string{}
	}
	c.JSON(status, propertyResponse{Property: property, Warnings: warnings})
}

func (h *Handler) respondPropertyError(c *gin.Context, id int64, err error, msg string) {
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
		return
	}
	h.logger.WithError(err).WithField("property_id", id).Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func (h *Handler) removeImageFile(filename string) {
	path := filepath.Join(h.config.Storage.ImageDir, filepath.Base(filename))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		h.logger.WithError(err).WithField("filename", filename).Warn("Failed to remove image file")
	}
}
