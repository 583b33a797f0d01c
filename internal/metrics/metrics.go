package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeComputed = "computed"
	OutcomeCleared  = "cleared"
	OutcomeFailed   = "failed"
)

var (
	// ProximityRefreshes counts proximity refreshes by outcome.
	ProximityRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proptracker_proximity_refreshes_total",
		Help: "Number of property proximity refreshes by outcome (computed, cleared, failed)",
	}, []string{"outcome"})

	ProximityDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "proptracker_proximity_compute_seconds",
		Help:    "Time spent loading POIs and running the radius search for one property",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
	})

	ProximityMatches = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "proptracker_proximity_matches",
		Help:    "Number of POIs found within radius per refresh",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	}, []string{"poi"})
)

var (
	// CoordinateWarnings counts accepted coordinates that were clamped or
	// fell outside the configured region.
	CoordinateWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proptracker_coordinate_warnings_total",
		Help: "Number of coordinate warnings by kind (clamped, outside_region)",
	}, []string{"kind"})

	ValidationRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proptracker_coordinate_rejections_total",
		Help: "Number of requests rejected for invalid coordinates",
	})
)

var (
	SeededRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "proptracker_seeded_records",
		Help: "Number of POI records loaded by the last seed run",
	}, []string{"dataset"})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
