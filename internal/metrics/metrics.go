// Package metrics exposes the game's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "plonk_sessions_started_total",
		Help: "Total number of sessions started",
	})
	SessionsFinished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "plonk_sessions_finished_total",
		Help: "Total number of sessions finished",
	})
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "plonk_sessions_active",
		Help: "Sessions currently held in memory",
	})
	GuessesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plonk_guesses_total",
		Help: "Guess submissions by outcome",
	}, []string{"outcome"})
	GuessScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "plonk_guess_score",
		Help:    "GeoScore of accepted guesses",
		Buckets: []float64{100, 500, 1000, 2000, 3000, 4000, 4500, 4900, 5000},
	})
	GuessDistanceKM = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "plonk_guess_distance_km",
		Help:    "Distance between guess and true location in kilometres",
		Buckets: []float64{1, 25, 200, 750, 2500, 5000, 10000, 20000},
	})
	UploadFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "plonk_upload_failures_total",
		Help: "Result archives that could not be uploaded",
	})
	GeocodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "plonk_geocode_duration_ms",
		Help:    "Batch reverse-geocoding duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	})
)

func init() {
	prometheus.MustRegister(SessionsStarted)
	prometheus.MustRegister(SessionsFinished)
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(GuessesTotal)
	prometheus.MustRegister(GuessScore)
	prometheus.MustRegister(GuessDistanceKM)
	prometheus.MustRegister(UploadFailures)
	prometheus.MustRegister(GeocodeDurationMs)
}

// Guess outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
)

// ObserveGuess records an accepted guess.
func ObserveGuess(score, distanceKM float64) {
	GuessesTotal.WithLabelValues(OutcomeAccepted).Inc()
	GuessScore.Observe(score)
	GuessDistanceKM.Observe(distanceKM)
}

// Handler serves the default registry for Prometheus scraping.
func Handler() http.Handler { return promhttp.Handler() }
