package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"proptracker/server/config"
	"proptracker/server/internal/api"
	"proptracker/server/internal/database"
	"proptracker/server/internal/geocoding"
	"proptracker/server/internal/proximity"
	"proptracker/server/internal/report"
	"proptracker/server/internal/seed"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "proptracker",
	Short: "Property tracker API server",
	Long:  `Tracks candidate homes and keeps their nearby stations and schools up to date.`,
	RunE:  runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Seed reference data and start the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, seedCmd, recomputeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds what every command needs. close releases it.
type app struct {
	cfg       *config.Config
	logger    *logrus.Logger
	db        *database.Database
	proximity *proximity.Service
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger()

	if err := report.SetupSentry(cfg.Sentry.DSN, cfg.Server.Environment, version); err != nil {
		logger.WithError(err).Warn("Sentry disabled")
	}

	logger.Infof("Using database at: %s", cfg.Database.Path)
	db, err := database.NewDatabase(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	prox := proximity.NewService(db, proximity.Radii{
		Stations: cfg.Proximity.StationRadiusMeters,
		Schools:  cfg.Proximity.SchoolRadiusMeters,
	}, logger)

	return &app{cfg: cfg, logger: logger, db: db, proximity: prox}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Failed to close database")
	}
	report.FlushSentry()
}

func (a *app) seeder() *seed.Seeder {
	return seed.NewSeeder(a.db, a.proximity, seed.Options{
		MaxRetries: a.cfg.Seed.MaxRetries,
		RetryDelay: a.cfg.RetryDelay(),
	}, a.logger)
}

// seedDefaults loads the configured station and school datasets and, when
// enabled, the example property.
func (a *app) seedDefaults(ctx context.Context) error {
	stations, err := seed.LoadStations(a.cfg.Seed.StationsFile)
	if err != nil {
		return err
	}
	schools, err := seed.LoadSchools(a.cfg.Seed.SchoolsFile)
	if err != nil {
		return err
	}

	s := a.seeder()
	if err := s.SeedStations(ctx, stations); err != nil {
		return err
	}
	if err := s.SeedSchools(ctx, schools); err != nil {
		return err
	}
	if a.cfg.Seed.ExampleProperty {
		if _, err := s.SeedExampleProperty(ctx); err != nil {
			return err
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.seedDefaults(ctx); err != nil {
		a.logger.WithError(err).Error("Failed to seed reference data")
		report.ReportError(err)
		return err
	}

	geocoder := geocoding.NewGeocoder(a.logger, geocoding.Options{
		BaseURL:      a.cfg.Geocoding.BaseURL,
		CountryCodes: a.cfg.Geocoding.CountryCodes,
		UserAgent:    a.cfg.Geocoding.UserAgent,
		CacheDir:     a.cfg.Geocoding.CacheDir,
		MinInterval:  time.Duration(a.cfg.Geocoding.MinIntervalMS) * time.Millisecond,
	})

	if a.cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(a.db, a.proximity, geocoder, a.cfg, a.logger)
	srv := &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("Server starting on port %s", a.cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.logger.WithError(err).Error("Server failed")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
