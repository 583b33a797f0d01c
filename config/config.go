package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Server struct {
		Port        string   `env:"PORT" envDefault:"3001"`
		Environment string   `env:"APP_ENV" envDefault:"development"`
		CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

		// Seconds to wait for in-flight requests on shutdown
		ShutdownTimeout int `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	}

	Database struct {
		Path string `env:"DATABASE_PATH" envDefault:"data/properties.db"`
	}

	Storage struct {
		ImageDir    string `env:"IMAGE_DIR" envDefault:"data/images"`
		MaxUploadMB int    `env:"MAX_UPLOAD_MB" envDefault:"10"`
		MaxFiles    int    `env:"MAX_UPLOAD_FILES" envDefault:"10"`
	}

	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
	}

	Proximity struct {
		StationRadiusMeters float64 `env:"STATION_RADIUS_METERS" envDefault:"1000"`
		SchoolRadiusMeters  float64 `env:"SCHOOL_RADIUS_METERS" envDefault:"2000"`
	}

	Validation struct {
		// Out-of-range coordinates are rejected on create and clamped on
		// update unless the request overrides it with ?clamp=
		ClampOnCreate bool `env:"CLAMP_ON_CREATE" envDefault:"false"`
		ClampOnUpdate bool `env:"CLAMP_ON_UPDATE" envDefault:"true"`

		RegionName string  `env:"REGION_NAME" envDefault:"south-london"`
		MinLat     float64 `env:"REGION_MIN_LAT" envDefault:"51.3"`
		MaxLat     float64 `env:"REGION_MAX_LAT" envDefault:"51.6"`
		MinLng     float64 `env:"REGION_MIN_LNG" envDefault:"-0.3"`
		MaxLng     float64 `env:"REGION_MAX_LNG" envDefault:"0.1"`
	}

	Seed struct {
		// Empty paths fall back to the embedded datasets
		StationsFile    string `env:"STATIONS_FILE"`
		SchoolsFile     string `env:"SCHOOLS_FILE"`
		ExampleProperty bool   `env:"SEED_EXAMPLE_PROPERTY" envDefault:"true"`

		MaxRetries int `env:"SEED_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"SEED_RETRY_DELAY" envDefault:"1"`
	}

	Geocoding struct {
		BaseURL      string `env:"GEOCODER_URL" envDefault:"https://nominatim.openstreetmap.org/search"`
		CountryCodes string `env:"GEOCODER_COUNTRY_CODES" envDefault:"gb"`
		CacheDir     string `env:"GEOCODER_CACHE_DIR" envDefault:"data/geocode_cache"`
		UserAgent    string `env:"GEOCODER_USER_AGENT" envDefault:"PropTracker/1.0"`

		// Minimum time between upstream requests in milliseconds
		MinIntervalMS int `env:"GEOCODER_MIN_INTERVAL_MS" envDefault:"1000"`
	}

	Sentry struct {
		DSN string `env:"SENTRY_DSN"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	if c.Proximity.StationRadiusMeters <= 0 || c.Proximity.SchoolRadiusMeters <= 0 {
		return fmt.Errorf("proximity radii must be positive")
	}
	v := c.Validation
	if v.MinLat >= v.MaxLat || v.MinLng >= v.MaxLng {
		return fmt.Errorf("invalid region bounds: lat [%v, %v], lng [%v, %v]", v.MinLat, v.MaxLat, v.MinLng, v.MaxLng)
	}
	if c.Storage.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

// Region returns the advisory area configured for coordinate warnings.
func (c *Config) Region() Region {
	v := c.Validation
	return NewRegion(v.RegionName, v.MinLat, v.MaxLat, v.MinLng, v.MaxLng)
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Seed.RetryDelay) * time.Second
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeout) * time.Second
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Storage.MaxUploadMB) << 20
}

// NewLogger builds the process logger from the logging section.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	if c.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		logger.WithError(err).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
