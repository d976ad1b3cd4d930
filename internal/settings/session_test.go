package settings

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/kozaktomas/image-search/internal/backend"
	"github.com/kozaktomas/image-search/internal/history"
	"github.com/kozaktomas/image-search/internal/kvstore"
	"github.com/kozaktomas/image-search/internal/notify"
)

// mockRemote is an in-memory settings store with error injection.
type mockRemote struct {
	mu        sync.Mutex
	settings  *backend.Settings
	saveResp  *backend.SaveSettingsResponse
	GetError  error
	SaveError error
	saved     []backend.SaveSettingsRequest
}

func (m *mockRemote) GetSettings(ctx context.Context) (*backend.Settings, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	return m.settings, nil
}

func (m *mockRemote) SaveSettings(ctx context.Context, req backend.SaveSettingsRequest) (*backend.SaveSettingsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, req)
	if m.SaveError != nil {
		return nil, m.SaveError
	}
	if m.saveResp != nil {
		return m.saveResp, nil
	}
	return &backend.SaveSettingsResponse{Message: "Settings saved"}, nil
}

func newTestSession(remote *mockRemote) (*Session, *notify.Recorder, *kvstore.MemoryStore) {
	rec := &notify.Recorder{}
	store := kvstore.NewMemoryStore()
	s := NewSession(Options{
		Remote:   remote,
		History:  history.New(history.DefaultSize),
		Store:    store,
		Notifier: rec,
	})
	return s, rec, store
}

func strPtr(s string) *string { return &s }

func TestNewSession_Defaults(t *testing.T) {
	s, _, _ := newTestSession(&mockRemote{})
	cfg := s.Committed()

	if cfg.ResultCount == nil || *cfg.ResultCount != 1 {
		t.Errorf("expected default k=1, got %v", cfg.ResultCount)
	}
	if cfg.SimilarityThreshold == nil || *cfg.SimilarityThreshold != 0 {
		t.Errorf("expected default threshold 0, got %v", cfg.SimilarityThreshold)
	}
	if cfg.ComputeDevice != DeviceCPU {
		t.Errorf("expected default device cpu, got %q", cfg.ComputeDevice)
	}
	if cfg.IndexAlgorithm != "" {
		t.Errorf("expected index unset, got %q", cfg.IndexAlgorithm)
	}
	if s.ExportLabel() != "images" {
		t.Errorf("expected default export label 'images', got %q", s.ExportLabel())
	}
}

func TestLoad_AppliesRemoteSettings(t *testing.T) {
	remote := &mockRemote{settings: &backend.Settings{
		K:             intPtr(3),
		SelectedIndex: strPtr("IndexFlatL2"),
		URL:           "/data/x",
		Threshold:     floatPtr(0.2),
		RecentPaths:   []string{"/data/x"},
	}}
	s, rec, _ := newTestSession(remote)

	s.Load(context.Background())

	want := Configuration{
		CorpusLocation:      "/data/x",
		ResultCount:         intPtr(3),
		SimilarityThreshold: floatPtr(0.2),
		IndexAlgorithm:      IndexFlatL2,
		ComputeDevice:       DeviceCPU,
	}
	if got := s.Committed(); !got.Equal(want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if got := s.History(); !slices.Equal(got, []string{"/data/x"}) {
		t.Errorf("expected history [/data/x], got %v", got)
	}
	if !s.Draft().Configuration.Equal(want) {
		t.Errorf("expected draft seeded from loaded settings, got %+v", s.Draft())
	}
	if len(rec.All()) != 0 {
		t.Errorf("expected no notifications, got %+v", rec.All())
	}
}

func TestLoad_ZeroValuesFallBackToDefaults(t *testing.T) {
	remote := &mockRemote{settings: &backend.Settings{K: intPtr(0)}}
	s, _, _ := newTestSession(remote)

	s.Load(context.Background())
	cfg := s.Committed()

	if *cfg.ResultCount != 1 || *cfg.SimilarityThreshold != 0 || cfg.ComputeDevice != DeviceCPU {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_FailureKeepsStateAndNotifies(t *testing.T) {
	remote := &mockRemote{GetError: &backend.APIError{StatusCode: 500, Message: "settings db offline"}}
	s, rec, _ := newTestSession(remote)
	s.Set(FieldCorpusLocation, "/before")
	s.Commit(context.Background())
	before := s.Committed()
	rec.Reset()

	s.Load(context.Background())

	if !s.Committed().Equal(before) {
		t.Errorf("expected state to be unchanged, got %+v", s.Committed())
	}
	last, ok := rec.Last()
	if !ok || last.Level != notify.LevelError || last.Message != "settings db offline" {
		t.Errorf("expected error notification with server message, got %+v", last)
	}
}

func TestLoad_TransportFailureUsesFallbackMessage(t *testing.T) {
	remote := &mockRemote{GetError: errors.New("connection refused")}
	s, rec, _ := newTestSession(remote)

	s.Load(context.Background())

	last, _ := rec.Last()
	if last.Message != msgLoadFailed {
		t.Errorf("expected fallback message, got %q", last.Message)
	}
}

func TestLoad_WarningsApplyAndNotify(t *testing.T) {
	remote := &mockRemote{settings: &backend.Settings{
		URL:      "/data/w",
		Warnings: []string{"recent path /old missing"},
	}}
	s, rec, _ := newTestSession(remote)

	s.Load(context.Background())

	if s.Committed().CorpusLocation != "/data/w" {
		t.Error("expected settings to be applied despite warnings")
	}
	if rec.Count(notify.LevelError) != 1 {
		t.Errorf("expected one error notification, got %+v", rec.All())
	}
}

func TestOpenEditor_EditsOnlyTouchDraft(t *testing.T) {
	s, _, _ := newTestSession(&mockRemote{})
	committed := s.Committed()

	s.OpenEditor()
	s.Edit(func(d *Draft) {
		d.CorpusLocation = "/new"
		d.SimilarityThreshold = nil
	})

	if !s.Committed().Equal(committed) {
		t.Error("expected committed configuration to be unaffected by edits")
	}
	if d := s.Draft(); d.CorpusLocation != "/new" || d.SimilarityThreshold != nil {
		t.Errorf("unexpected draft %+v", d)
	}

	s.Cancel()
	if d := s.Draft(); !d.Configuration.Equal(committed) {
		t.Errorf("expected cancel to discard edits, got %+v", d)
	}
}

func TestCommit_Success(t *testing.T) {
	remote := &mockRemote{}
	s, rec, store := newTestSession(remote)

	s.OpenEditor()
	s.Set(FieldCorpusLocation, "/data/a")
	s.Set(FieldResultCount, "4")
	s.Set(FieldIndexAlgorithm, "IVFPQ")
	s.Set(FieldExportLabel, "cars")

	if err := s.Commit(context.Background()); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	cfg := s.Committed()
	if cfg.CorpusLocation != "/data/a" || *cfg.ResultCount != 4 || cfg.IndexAlgorithm != IndexIVFPQ {
		t.Errorf("unexpected committed configuration %+v", cfg)
	}
	if s.ExportLabel() != "cars" {
		t.Errorf("expected export label 'cars', got %q", s.ExportLabel())
	}
	if len(remote.saved) != 1 {
		t.Fatalf("expected one remote save, got %d", len(remote.saved))
	}
	req := remote.saved[0]
	if req.SelectedIndex == nil || *req.SelectedIndex != "IndexIVFPQ" {
		t.Errorf("expected selectedIndex IndexIVFPQ, got %v", req.SelectedIndex)
	}
	if !slices.Equal(req.SavedURLs, []string{"/data/a"}) {
		t.Errorf("expected full history in request, got %v", req.SavedURLs)
	}
	raw, err := store.Get(history.DefaultKey)
	if err != nil || string(raw) != `["/data/a"]` {
		t.Errorf("expected history persisted locally, got %s (%v)", raw, err)
	}
	last, _ := rec.Last()
	if last.Level != notify.LevelSuccess || last.Message != "Settings saved" {
		t.Errorf("expected success notification, got %+v", last)
	}
}

func TestCommit_RemoteFailureKeepsLocalCommit(t *testing.T) {
	remote := &mockRemote{SaveError: errors.New("connection reset")}
	s, rec, store := newTestSession(remote)

	s.OpenEditor()
	s.Set(FieldCorpusLocation, "/data/b")
	s.Set(FieldThreshold, "0.4")
	draft := s.Draft()

	err := s.Commit(context.Background())
	if !errors.Is(err, ErrRemoteSave) {
		t.Fatalf("expected ErrRemoteSave, got %v", err)
	}

	if !s.Committed().Equal(draft.Configuration) {
		t.Errorf("expected committed == draft, got %+v vs %+v", s.Committed(), draft.Configuration)
	}
	if got := s.History(); !slices.Equal(got, []string{"/data/b"}) {
		t.Errorf("expected history to contain the location, got %v", got)
	}
	if _, err := store.Get(history.DefaultKey); err != nil {
		t.Errorf("expected history to be persisted locally: %v", err)
	}
	last, _ := rec.Last()
	if last.Level != notify.LevelError || last.Message != msgSaveFailed {
		t.Errorf("expected error notification with fallback, got %+v", last)
	}
}

func TestCommit_FrontLocationNotReinserted(t *testing.T) {
	s, _, store := newTestSession(&mockRemote{})
	s.history.Replace([]string{"/data/a", "/data/b"})

	s.Set(FieldCorpusLocation, "/data/a")
	s.Commit(context.Background())

	if got := s.History(); !slices.Equal(got, []string{"/data/a", "/data/b"}) {
		t.Errorf("unexpected history %v", got)
	}
	if _, err := store.Get(history.DefaultKey); !errors.Is(err, kvstore.ErrNotFound) {
		t.Error("expected no local write when the location is already the front entry")
	}
}

func TestCommit_EmptyLocationNotRecorded(t *testing.T) {
	remote := &mockRemote{}
	s, _, _ := newTestSession(remote)

	s.Commit(context.Background())

	if len(s.History()) != 0 {
		t.Errorf("expected empty history, got %v", s.History())
	}
	if remote.saved[0].SelectedIndex != nil {
		t.Errorf("expected nil selectedIndex for unset index, got %v", *remote.saved[0].SelectedIndex)
	}
}

func TestCommit_WarningsEscalate(t *testing.T) {
	remote := &mockRemote{saveResp: &backend.SaveSettingsResponse{Message: "ok", Warnings: []string{"gpu unavailable"}}}
	s, rec, _ := newTestSession(remote)

	if err := s.Commit(context.Background()); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	last, _ := rec.Last()
	if last.Level != notify.LevelError || len(last.Details) != 1 {
		t.Errorf("expected error notification carrying warnings, got %+v", last)
	}
}

func TestOnChange_CalledAfterLoadAndCommit(t *testing.T) {
	remote := &mockRemote{settings: &backend.Settings{URL: "/loaded"}}
	s, _, _ := newTestSession(remote)

	var seen []string
	s.OnChange(func(ctx context.Context, cfg Configuration) {
		seen = append(seen, cfg.CorpusLocation)
	})

	s.Load(context.Background())
	s.Set(FieldCorpusLocation, "/committed")
	s.Commit(context.Background())

	if !slices.Equal(seen, []string{"/loaded", "/committed"}) {
		t.Errorf("unexpected change notifications %v", seen)
	}
}
