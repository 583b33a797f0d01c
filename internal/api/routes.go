package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"proptracker/server/internal/metrics"
)

// NewRouter builds the engine with CORS, recovery and request logging.
func NewRouter(handler *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(handler.logger))
	router.MaxMultipartMemory = handler.config.MaxUploadBytes()

	corsConfig := cors.DefaultConfig()
	origins := handler.config.Server.CORSOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	router.Use(cors.New(corsConfig))

	SetupRoutes(router, handler)
	return router
}

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.GET("/geocode", handler.Geocode)

		properties := api.Group("/properties")
		properties.GET("", handler.ListProperties)
		properties.POST("", handler.CreateProperty)
		properties.GET("/:id", handler.GetProperty)
		properties.PUT("/:id", handler.UpdateProperty)
		properties.DELETE("/:id", handler.DeleteProperty)
		properties.POST("/:id/proximity", handler.RefreshProximity)
		properties.GET("/:id/catchment", handler.PropertyCatchment)
		properties.GET("/:id/images", handler.ListImages)
		properties.POST("/:id/images", handler.UploadImages)
		properties.PUT("/:id/images/:imageId/cover", handler.SetCoverImage)
		properties.DELETE("/:id/images/:imageId", handler.DeleteImage)

		api.GET("/images/:filename", handler.ServeImage)

		stations := api.Group("/train-stations")
		stations.GET("", handler.ListStations)
		stations.GET("/type/:type", handler.ListStationsByType)
		stations.GET("/nearby", handler.NearbyStations)
		stations.GET("/nearest", handler.NearestStation)

		schools := api.Group("/schools")
		schools.GET("", handler.ListSchools)
		schools.GET("/nearby", handler.NearbySchools)

		geojson := api.Group("/geojson")
		geojson.GET("/properties", handler.PropertiesGeoJSON)
		geojson.GET("/train-stations", handler.StationsGeoJSON)
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if c.Writer.Status() >= 500 {
			entry.Error("Request failed")
			return
		}
		entry.Debug("Request handled")
	}
}
