// Package metrics holds the Prometheus collectors of a client session.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "image_search"

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeWarnings = "warnings"
	OutcomeError    = "error"
)

var (
	Searches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "searches_total",
		Help:      "Searches sent to the search service by outcome",
	}, []string{"outcome"})

	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_duration_seconds",
		Help:      "Round trip time of predict requests",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	ImagesReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_images_returned",
		Help:      "Number of images in successful search results",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	FaceOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "face_operations_total",
		Help:      "Face register/delete/scan/recognize/refresh calls by outcome",
	}, []string{"operation", "outcome"})

	SettingsSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settings_saves_total",
		Help:      "Settings commits by outcome of the remote save",
	}, []string{"outcome"})

	ImagesExported = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exported_images_total",
		Help:      "Images written into zip archives",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Local API request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	EventListeners = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "event_listeners",
		Help:      "Number of connected notification streams",
	})
)

// Outcome maps an error and a warnings flag to an outcome label.
func Outcome(err error, warnings bool) string {
	switch {
	case err != nil:
		return OutcomeError
	case warnings:
		return OutcomeWarnings
	}
	return OutcomeSuccess
}
