package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"proptracker/server/config"
	"proptracker/server/internal/database"
	"proptracker/server/internal/geocoding"
	"proptracker/server/internal/metrics"
	"proptracker/server/internal/proximity"
	"proptracker/server/internal/validation"
)

type Handler struct {
	db        *database.Database
	proximity *proximity.Service
	geocoder  *geocoding.Geocoder
	config    *config.Config
	logger    *logrus.Logger
}

func NewHandler(db *database.Database, prox *proximity.Service, geocoder *geocoding.Geocoder, cfg *config.Config, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:        db,
		proximity: prox,
		geocoder:  geocoder,
		config:    cfg,
		logger:    logger,
	}
}

func (h *Handler) Health(c *gin.Context) {
	stations, err := h.db.CountStations(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "Database unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"stations": stations,
		"region":   h.config.Region().Name,
	})
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param})
		return 0, false
	}
	return id, true
}

// parseClamp reads ?clamp=, falling back to def when absent.
func parseClamp(c *gin.Context, def bool) (bool, bool) {
	raw, ok := c.GetQuery("clamp")
	if !ok || raw == "" {
		return def, true
	}
	clamp, err := strconv.ParseBool(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "clamp must be true or false"})
		return false, false
	}
	return clamp, true
}

func (h *Handler) validationFailed(c *gin.Context, err error) bool {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return false
	}
	metrics.ValidationRejections.Inc()
	h.logger.WithFields(logrus.Fields{
		"field": verr.Field,
		"path":  c.FullPath(),
	}).Info(verr.Message)
	c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	return true
}

func (h *Handler) recordWarnings(res validation.Result, fields logrus.Fields) {
	if res.Clamped {
		metrics.CoordinateWarnings.WithLabelValues("clamped").Inc()
	}
	if res.OutsideRegion {
		metrics.CoordinateWarnings.WithLabelValues("outside_region").Inc()
	}
	for _, w := range res.Warnings {
		h.logger.WithFields(fields).Warn(w)
	}
}
