// Package search turns the committed configuration and a free-text query
// into search requests and keeps the latest result, the query-correction
// suggestion and the loading flag.
package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/image-search/internal/backend"
	"github.com/kozaktomas/image-search/internal/metrics"
	"github.com/kozaktomas/image-search/internal/notify"
	"github.com/kozaktomas/image-search/internal/settings"
)

var (
	// ErrNotReady is returned when required inputs are missing.
	ErrNotReady = errors.New("search is not ready")
	// ErrSearchInFlight is returned when a search is started while another
	// one has not finished yet.
	ErrSearchInFlight = errors.New("a search is already in progress")
	// ErrNoSuggestion is returned by AcceptSuggestion when there is none.
	ErrNoSuggestion = errors.New("no query suggestion available")
)

const (
	msgSearchFailed = "Failed to fetch images."
	msgFetched      = "Images fetched successfully!"
	msgWarnings     = "Search completed with warnings."

	// DefaultFallbackLocations is how many history entries follow the
	// primary location in a request.
	DefaultFallbackLocations = 2
)

// Predictor runs text-to-image searches.
type Predictor interface {
	Predict(ctx context.Context, req backend.PredictRequest) (*backend.PredictResponse, error)
}

// ConfigSource provides the committed configuration and location history.
type ConfigSource interface {
	Committed() settings.Configuration
	RecentLocations(n int) []string
}

// FaceFilter provides the active face filter, if any.
type FaceFilter interface {
	ActiveFilter() []string
}

// Options wires an Orchestrator.
type Options struct {
	Predictor         Predictor
	Settings          ConfigSource
	Faces             FaceFilter // optional
	Notifier          notify.Notifier
	FallbackLocations int
}

// Orchestrator runs searches one at a time.
type Orchestrator struct {
	mu         sync.RWMutex
	predictor  Predictor
	settings   ConfigSource
	faces      FaceFilter
	notifier   notify.Notifier
	fallbacks  int
	result     *Result
	suggestion string
	loading    bool
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.FallbackLocations <= 0 {
		opts.FallbackLocations = DefaultFallbackLocations
	}
	return &Orchestrator{
		predictor: opts.Predictor,
		settings:  opts.Settings,
		faces:     opts.Faces,
		notifier:  opts.Notifier,
		fallbacks: opts.FallbackLocations,
	}
}

// Readiness checks query against the current committed configuration.
func (o *Orchestrator) Readiness(query string) []Missing {
	return Readiness(query, o.settings.Committed())
}

// BuildRequest assembles the predict request: the primary location comes
// first, followed by the given recent locations as fallbacks.
func BuildRequest(query string, cfg settings.Configuration, recent, faces []string) backend.PredictRequest {
	k := 1
	if cfg.ResultCount != nil {
		k = *cfg.ResultCount
	}
	var threshold float64
	if cfg.SimilarityThreshold != nil {
		threshold = *cfg.SimilarityThreshold
	}
	req := backend.PredictRequest{
		Query:          query,
		SelectedIndex:  string(cfg.IndexAlgorithm),
		URL:            append([]string{cfg.CorpusLocation}, recent...),
		Threshold:      threshold,
		SelectedDevice: string(cfg.ComputeDevice),
		K:              k,
	}
	if len(faces) > 0 {
		req.Faces = slices.Clone(faces)
	}
	return req
}

// Search runs query with the committed configuration. On success the
// previous result is replaced; warnings in the response still install the
// result but are escalated as an error notification. On failure the
// previous result is kept.
func (o *Orchestrator) Search(ctx context.Context, query string) (*Result, error) {
	cfg := o.settings.Committed()
	if missing := Readiness(query, cfg); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotReady, TooltipText(missing))
	}

	o.mu.Lock()
	if o.loading {
		o.mu.Unlock()
		return nil, ErrSearchInFlight
	}
	o.loading = true
	o.suggestion = ""
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.loading = false
		o.mu.Unlock()
	}()

	var faces []string
	if o.faces != nil {
		faces = o.faces.ActiveFilter()
	}
	req := BuildRequest(query, cfg, o.settings.RecentLocations(o.fallbacks), faces)

	start := time.Now()
	resp, err := o.predictor.Predict(ctx, req)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Searches.WithLabelValues(metrics.OutcomeError).Inc()
		notify.Error(o.notifier, backend.Message(err, msgSearchFailed))
		return nil, fmt.Errorf("search failed: %w", err)
	}

	images, decodeWarnings := decodeImages(resp.Images)
	result := &Result{
		Query:    query,
		Images:   images,
		Warnings: append(slices.Clone(resp.Warnings), decodeWarnings...),
	}
	if resp.Query != "" && resp.Query != query {
		result.CorrectedQuery = resp.Query
	}

	o.mu.Lock()
	o.result = result
	o.suggestion = result.CorrectedQuery
	o.mu.Unlock()

	metrics.Searches.WithLabelValues(metrics.Outcome(nil, len(result.Warnings) > 0)).Inc()
	metrics.ImagesReturned.Observe(float64(len(images)))

	if len(result.Warnings) > 0 {
		notify.Error(o.notifier, msgWarnings, result.Warnings...)
	} else {
		notify.Success(o.notifier, msgFetched)
	}
	return result, nil
}

// AcceptSuggestion clears the current suggestion and searches for it.
func (o *Orchestrator) AcceptSuggestion(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	suggestion := o.suggestion
	o.suggestion = ""
	o.mu.Unlock()

	if strings.TrimSpace(suggestion) == "" {
		return nil, ErrNoSuggestion
	}
	return o.Search(ctx, suggestion)
}

// Result returns the latest successful result, or nil before the first one.
func (o *Orchestrator) Result() *Result {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.result
}

// Suggestion returns the pending corrected query, or "".
func (o *Orchestrator) Suggestion() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.suggestion
}

// Loading reports whether a search is in flight.
func (o *Orchestrator) Loading() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.loading
}
