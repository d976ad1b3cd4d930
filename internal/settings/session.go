// Package settings reconciles the committed search configuration, the
// editable draft, the recent-location history and the service's settings
// store.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kozaktomas/image-search/internal/backend"
	"github.com/kozaktomas/image-search/internal/history"
	"github.com/kozaktomas/image-search/internal/metrics"
	"github.com/kozaktomas/image-search/internal/notify"
)

// ErrRemoteSave is returned by Commit when the local commit succeeded but
// the service could not store the settings.
var ErrRemoteSave = errors.New("settings applied locally but not saved remotely")

const (
	msgLoadFailed = "Failed to load saved settings."
	msgSaveFailed = "Error saving settings."
	msgSaved      = "Settings saved successfully!"
)

// Remote is the settings store of the search service.
type Remote interface {
	GetSettings(ctx context.Context) (*backend.Settings, error)
	SaveSettings(ctx context.Context, req backend.SaveSettingsRequest) (*backend.SaveSettingsResponse, error)
}

// Defaults seed the committed configuration before anything is loaded.
type Defaults struct {
	ResultCount         int
	SimilarityThreshold float64
	ComputeDevice       ComputeDevice
	ExportLabel         string
}

// Options wires a Session to its collaborators.
type Options struct {
	Remote     Remote
	History    *history.History
	Store      history.Store
	HistoryKey string
	Notifier   notify.Notifier
	Defaults   Defaults
}

// ChangeFunc is called with the committed configuration after it changes.
type ChangeFunc func(ctx context.Context, cfg Configuration)

// Session owns the committed configuration and its draft.
type Session struct {
	mu          sync.RWMutex
	remote      Remote
	history     *history.History
	store       history.Store
	historyKey  string
	notifier    notify.Notifier
	defaults    Defaults
	committed   Configuration
	exportLabel string
	draft       Draft
	onChange    []ChangeFunc
}

// NewSession creates a session holding the defaults as its committed
// configuration.
func NewSession(opts Options) *Session {
	if opts.History == nil {
		opts.History = history.New(history.DefaultSize)
	}
	if opts.HistoryKey == "" {
		opts.HistoryKey = history.DefaultKey
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Defaults.ResultCount < 1 {
		opts.Defaults.ResultCount = 1
	}
	if opts.Defaults.ComputeDevice == "" {
		opts.Defaults.ComputeDevice = DeviceCPU
	}
	if opts.Defaults.ExportLabel == "" {
		opts.Defaults.ExportLabel = "images"
	}

	k := opts.Defaults.ResultCount
	th := opts.Defaults.SimilarityThreshold
	s := &Session{
		remote:     opts.Remote,
		history:    opts.History,
		store:      opts.Store,
		historyKey: opts.HistoryKey,
		notifier:   opts.Notifier,
		defaults:   opts.Defaults,
		committed: Configuration{
			ResultCount:         &k,
			SimilarityThreshold: &th,
			ComputeDevice:       opts.Defaults.ComputeDevice,
		},
		exportLabel: opts.Defaults.ExportLabel,
	}
	s.draft = Draft{Configuration: s.committed.Clone(), ExportLabel: s.exportLabel}
	return s
}

// OnChange registers fn to run after Load or Commit changes the committed
// configuration. Callbacks run in registration order on the caller's goroutine.
func (s *Session) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Committed returns a copy of the configuration searches run with.
func (s *Session) Committed() Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed.Clone()
}

// ExportLabel returns the committed archive label.
func (s *Session) ExportLabel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exportLabel
}

// History returns the recent locations, most recent first.
func (s *Session) History() []string {
	return s.history.Entries()
}

// RecentLocations returns up to n most recent history entries.
func (s *Session) RecentLocations(n int) []string {
	return s.history.Recent(n)
}

// Load fetches the persisted configuration and history from the service.
// Failures never reach the caller: the previous state is kept and an error
// notification is emitted instead.
func (s *Session) Load(ctx context.Context) {
	remote, err := s.remote.GetSettings(ctx)
	if err != nil {
		notify.Error(s.notifier, backend.Message(err, msgLoadFailed))
		return
	}

	cfg := s.fromRemote(remote)

	s.mu.Lock()
	s.committed = cfg
	s.draft = Draft{Configuration: cfg.Clone(), ExportLabel: s.exportLabel}
	if remote.RecentPaths != nil {
		s.history.Replace(remote.RecentPaths)
	}
	s.mu.Unlock()

	if len(remote.Warnings) > 0 {
		notify.Error(s.notifier, "Settings loaded with warnings.", remote.Warnings...)
	}

	s.changed(ctx, cfg)
}

// fromRemote maps the stored settings onto a Configuration; zero or missing
// count, threshold and device fall back to the defaults.
func (s *Session) fromRemote(r *backend.Settings) Configuration {
	k := s.defaults.ResultCount
	if r.K != nil && *r.K > 0 {
		k = *r.K
	}
	th := s.defaults.SimilarityThreshold
	if r.Threshold != nil {
		th = *r.Threshold
	}
	cfg := Configuration{
		CorpusLocation:      r.URL,
		ResultCount:         &k,
		SimilarityThreshold: &th,
		ComputeDevice:       s.defaults.ComputeDevice,
	}
	if r.SelectedIndex != nil && *r.SelectedIndex != "" {
		if alg, err := ParseIndexAlgorithm(*r.SelectedIndex); err == nil {
			cfg.IndexAlgorithm = alg
		} else {
			notify.Warning(s.notifier, "Ignoring unsupported index from saved settings.", err.Error())
		}
	}
	if r.SelectedDevice != "" {
		if dev, err := ParseComputeDevice(r.SelectedDevice); err == nil {
			cfg.ComputeDevice = dev
		}
	}
	return cfg
}

// OpenEditor replaces the draft with a snapshot of the committed
// configuration and the current export label, and returns it.
func (s *Session) OpenEditor() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = Draft{Configuration: s.committed.Clone(), ExportLabel: s.exportLabel}
	return s.draft.clone()
}

// Cancel discards draft edits.
func (s *Session) Cancel() {
	s.OpenEditor()
}

// Draft returns a copy of the current draft.
func (s *Session) Draft() Draft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft.clone()
}

// Edit mutates the draft in place. It performs no validation and no I/O.
func (s *Session) Edit(fn func(d *Draft)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.draft)
}

// Set parses raw into one draft field; see Draft.Set.
func (s *Session) Set(field Field, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Set(field, raw)
}

// Commit adopts the draft, records its location in the history (persisted
// locally) and sends the configuration with the full history to the
// service. A remote failure does not undo the local commit; it is reported
// through a notification and an error wrapping ErrRemoteSave.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	draft := s.draft.clone()
	s.committed = draft.Configuration.Clone()
	s.exportLabel = draft.ExportLabel
	if s.exportLabel == "" {
		s.exportLabel = s.defaults.ExportLabel
	}
	location := draft.CorpusLocation
	if location != "" && s.history.Front() != location {
		s.history.Insert(location)
		if s.store != nil {
			if err := s.history.Save(s.store, s.historyKey); err != nil {
				notify.Warning(s.notifier, "Could not remember recent location.", err.Error())
			}
		}
	}
	recent := s.history.Entries()
	s.mu.Unlock()

	s.changed(ctx, draft.Configuration)

	req := backend.SaveSettingsRequest{
		K:              draft.ResultCount,
		URL:            draft.CorpusLocation,
		Threshold:      draft.SimilarityThreshold,
		SelectedDevice: string(draft.ComputeDevice),
		SavedURLs:      recent,
	}
	if draft.IndexAlgorithm != "" {
		alg := string(draft.IndexAlgorithm)
		req.SelectedIndex = &alg
	}

	resp, err := s.remote.SaveSettings(ctx, req)
	metrics.SettingsSaves.WithLabelValues(metrics.Outcome(err, err == nil && len(resp.Warnings) > 0)).Inc()
	if err != nil {
		notify.Error(s.notifier, backend.Message(err, msgSaveFailed))
		return fmt.Errorf("%w: %w", ErrRemoteSave, err)
	}

	if len(resp.Warnings) > 0 {
		notify.Error(s.notifier, "Settings saved with warnings.", resp.Warnings...)
		return nil
	}
	msg := resp.Message
	if msg == "" {
		msg = msgSaved
	}
	notify.Success(s.notifier, msg)
	return nil
}

func (s *Session) changed(ctx context.Context, cfg Configuration) {
	s.mu.RLock()
	hooks := append([]ChangeFunc(nil), s.onChange...)
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn(ctx, cfg.Clone())
	}
}
