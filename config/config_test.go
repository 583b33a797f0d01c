package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 1000.0, cfg.Proximity.StationRadiusMeters)
	assert.Equal(t, 2000.0, cfg.Proximity.SchoolRadiusMeters)
	assert.False(t, cfg.Validation.ClampOnCreate)
	assert.True(t, cfg.Validation.ClampOnUpdate)
	assert.True(t, cfg.Seed.ExampleProperty)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
	assert.Equal(t, time.Second, cfg.RetryDelay())
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	t.Setenv("STATION_RADIUS_METERS", "750")
	t.Setenv("CLAMP_ON_CREATE", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 750.0, cfg.Proximity.StationRadiusMeters)
	assert.True(t, cfg.Validation.ClampOnCreate)
	assert.Equal(t, logrus.DebugLevel, cfg.NewLogger().GetLevel())
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "Zero station radius", key: "STATION_RADIUS_METERS", value: "0"},
		{name: "Negative school radius", key: "SCHOOL_RADIUS_METERS", value: "-5"},
		{name: "Inverted latitude bounds", key: "REGION_MIN_LAT", value: "52"},
		{name: "Zero upload size", key: "MAX_UPLOAD_MB", value: "0"},
		{name: "Unparseable number", key: "STATION_RADIUS_METERS", value: "far"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "chatty"
	cfg.Logging.Format = "text"

	logger := cfg.NewLogger()
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}
