package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"proptracker/server/internal/geo"
)

var ErrNoResults = errors.New("no results found")

type Options struct {
	BaseURL      string
	CountryCodes string
	UserAgent    string
	CacheDir     string

	// MinInterval spaces out upstream requests to respect Nominatim's usage policy.
	MinInterval time.Duration
}

type Geocoder struct {
	logger    *logrus.Logger
	opts      Options
	cache     map[string]geo.Coordinate
	cacheLock sync.RWMutex
	client    *http.Client

	rateLock    sync.Mutex
	lastRequest time.Time
}

func NewGeocoder(logger *logrus.Logger, opts Options) *Geocoder {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if opts.CacheDir != "" {
		if err := os.MkdirAll(opts.CacheDir, 0755); err != nil {
			logger.WithError(err).Warn("Could not create geocode cache directory")
		}
	}

	g := &Geocoder{
		logger: logger,
		opts:   opts,
		cache:  make(map[string]geo.Coordinate),
		client: &http.Client{Timeout: 10 * time.Second},
	}

	g.loadCache()
	return g
}

func (g *Geocoder) cacheFile() string {
	if g.opts.CacheDir == "" {
		return ""
	}
	return filepath.Join(g.opts.CacheDir, "geocode_cache.json")
}

func (g *Geocoder) loadCache() {
	path := g.cacheFile()
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			g.logger.Warnf("Could not load geocode cache: %v", err)
		}
		return
	}

	if err := json.Unmarshal(data, &g.cache); err != nil {
		g.logger.Errorf("Failed to parse geocode cache: %v", err)
		return
	}

	g.logger.Infof("Loaded %d cached addresses", len(g.cache))
}

func (g *Geocoder) saveCache() {
	path := g.cacheFile()
	if path == "" {
		return
	}

	g.cacheLock.RLock()
	data, err := json.Marshal(g.cache)
	g.cacheLock.RUnlock()
	if err != nil {
		g.logger.Errorf("Failed to marshal geocode cache: %v", err)
		return
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		g.logger.Errorf("Failed to save geocode cache: %v", err)
	}
}

type nominatimResponse []struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func cacheKey(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}

// Geocode resolves a free-text address to a coordinate, consulting the
// on-disk cache before Nominatim.
func (g *Geocoder) Geocode(ctx context.Context, address string) (geo.Coordinate, error) {
	key := cacheKey(address)
	if key == "" {
		return geo.Coordinate{}, fmt.Errorf("address is empty")
	}

	g.cacheLock.RLock()
	coord, ok := g.cache[key]
	g.cacheLock.RUnlock()
	if ok {
		g.logger.WithFields(logrus.Fields{
			"address":   address,
			"latitude":  coord.Lat,
			"longitude": coord.Lng,
			"source":    "cache",
		}).Debug("Found coordinates in cache")
		return coord, nil
	}

	if err := g.wait(ctx); err != nil {
		return geo.Coordinate{}, err
	}

	params := url.Values{
		"q":      []string{address},
		"format": []string{"json"},
		"limit":  []string{"1"},
	}
	if g.opts.CountryCodes != "" {
		params.Set("countrycodes", g.opts.CountryCodes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.opts.BaseURL, nil)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", g.opts.UserAgent)
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WithError(err).WithField("address", address).Error("Geocoding request failed")
		return geo.Coordinate{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return geo.Coordinate{}, fmt.Errorf("geocoding request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("failed to read response: %w", err)
	}

	var result nominatimResponse
	if err := json.Unmarshal(body, &result); err != nil {
		g.logger.WithError(err).WithField("address", address).Error("Failed to parse response")
		return geo.Coordinate{}, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(result) == 0 {
		g.logger.WithField("address", address).Warn("No results found")
		return geo.Coordinate{}, ErrNoResults
	}

	lat, latErr := strconv.ParseFloat(result[0].Lat, 64)
	lng, lngErr := strconv.ParseFloat(result[0].Lon, 64)
	if latErr != nil || lngErr != nil {
		return geo.Coordinate{}, fmt.Errorf("invalid coordinates in response: %q, %q", result[0].Lat, result[0].Lon)
	}
	coord = geo.Coordinate{Lat: lat, Lng: lng}

	g.logger.WithFields(logrus.Fields{
		"address":   address,
		"latitude":  lat,
		"longitude": lng,
		"source":    "nominatim",
	}).Info("Successfully geocoded address")

	g.cacheLock.Lock()
	g.cache[key] = coord
	g.cacheLock.Unlock()
	g.saveCache()

	return coord, nil
}

// wait blocks until MinInterval has passed since the previous upstream call.
func (g *Geocoder) wait(ctx context.Context) error {
	g.rateLock.Lock()
	defer g.rateLock.Unlock()

	if delay := g.opts.MinInterval - time.Since(g.lastRequest); delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	g.lastRequest = time.Now()
	return nil
}
