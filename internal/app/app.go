// Package app wires one client session: backend client, local state store,
// settings, search, faces and notifications.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kozaktomas/image-search/internal/backend"
	"github.com/kozaktomas/image-search/internal/config"
	"github.com/kozaktomas/image-search/internal/export"
	"github.com/kozaktomas/image-search/internal/faces"
	"github.com/kozaktomas/image-search/internal/history"
	"github.com/kozaktomas/image-search/internal/kvstore"
	"github.com/kozaktomas/image-search/internal/notify"
	"github.com/kozaktomas/image-search/internal/search"
	"github.com/kozaktomas/image-search/internal/settings"
)

// ErrNoBackend is returned when no backend URL is configured.
var ErrNoBackend = errors.New("IMAGE_SEARCH_BACKEND_URL is not set")

// App is one client session.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Client   *backend.Client
	Store    kvstore.Store
	Session  *settings.Session
	Search   *search.Orchestrator
	Faces    *faces.Context
	Events   *notify.Broadcaster
	Notifier notify.Notifier
}

type options struct {
	store      kvstore.Store
	httpClient *http.Client
	sinks      []notify.Notifier
}

// Option customizes New.
type Option func(*options)

// WithStore uses store instead of opening the configured one.
func WithStore(store kvstore.Store) Option {
	return func(o *options) { o.store = store }
}

// WithHTTPClient sets the HTTP client used for backend calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithNotifier adds a notification sink, e.g. terminal output.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.sinks = append(o.sinks, n) }
}

// New builds an App from cfg. Call Start to load the remote settings and
// Close when done.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if cfg.Backend.URL == "" {
		return nil, ErrNoBackend
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	clientOpts := []backend.Option{backend.WithTimeout(cfg.Backend.Timeout)}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, backend.WithHTTPClient(o.httpClient))
	}
	if cfg.Backend.CaptureDir != "" {
		clientOpts = append(clientOpts, backend.WithCaptureDir(cfg.Backend.CaptureDir))
	}
	client, err := backend.NewClient(cfg.Backend.URL, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating backend client: %w", err)
	}

	store := o.store
	if store == nil {
		store, err = kvstore.Open(kvstore.Type(cfg.Storage.Type), cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("opening %s store at %s: %w", cfg.Storage.Type, cfg.Storage.Path, err)
		}
	}

	events := &notify.Broadcaster{}
	var notifier notify.Notifier = append(notify.Multi{notify.NewLogSink(logger), events}, o.sinks...)

	d := cfg.Defaults
	hist := history.Load(store, d.History.StorageKey, d.History.Size)
	session := settings.NewSession(settings.Options{
		Remote:     client,
		History:    hist,
		Store:      store,
		HistoryKey: d.History.StorageKey,
		Notifier:   notifier,
		Defaults: settings.Defaults{
			ResultCount:         d.Search.ResultCount,
			SimilarityThreshold: d.Search.SimilarityThreshold,
			ComputeDevice:       settings.ComputeDevice(d.Search.ComputeDevice),
			ExportLabel:         d.Search.ExportLabel,
		},
	})

	faceCtx := faces.New(faces.Options{
		Client:       client,
		Notifier:     notifier,
		Threshold:    d.Faces.RecognizeThreshold,
		OutputFolder: d.Faces.OutputFolder,
		MaxImageSize: d.Faces.MaxImageSize,
	})

	orchestrator := search.New(search.Options{
		Predictor:         client,
		Settings:          session,
		Faces:             faceCtx,
		Notifier:          notifier,
		FallbackLocations: d.History.SearchCandidates,
	})

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Client:   client,
		Store:    store,
		Session:  session,
		Search:   orchestrator,
		Faces:    faceCtx,
		Events:   events,
		Notifier: notifier,
	}

	session.OnChange(func(ctx context.Context, c settings.Configuration) {
		if err := faceCtx.SetLocation(ctx, c.CorpusLocation); err != nil {
			logger.Warn("face metadata refresh failed", "location", c.CorpusLocation, "error", err)
		}
	})

	return a, nil
}

// Start loads the remote settings, which also derives the face state for
// the loaded location.
func (a *App) Start(ctx context.Context) {
	a.Session.Load(ctx)
	a.Logger.Debug("session loaded",
		"location", a.Session.Committed().CorpusLocation,
		"history", len(a.Session.History()),
	)
}

// Images returns the images of the latest search result.
func (a *App) Images() []search.Image {
	if r := a.Search.Result(); r != nil {
		return r.Images
	}
	return nil
}

// ExportToDir writes the latest result as <export label>.zip into dir.
func (a *App) ExportToDir(ctx context.Context, dir string, progress export.ProgressFunc) (string, error) {
	return export.ToDir(ctx, dir, a.Session.ExportLabel(), a.Images(), progress)
}

// Close releases the local store.
func (a *App) Close() error {
	return a.Store.Close()
}
