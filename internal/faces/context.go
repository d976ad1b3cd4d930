// Package faces tracks which registered faces are available for the current
// corpus location and which of them filter the search. It also wraps the
// face registration and recognition endpoints.
package faces

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/kozaktomas/image-search/internal/backend"
	"github.com/kozaktomas/image-search/internal/metrics"
	"github.com/kozaktomas/image-search/internal/notify"
)

var (
	ErrUnknownFace     = errors.New("face is not available for this location")
	ErrNameRequired    = errors.New("face name is required")
	ErrImageRequired   = errors.New("face image is required")
	ErrFolderRequired  = errors.New("folder is required")
	ErrNoFacesSelected = errors.New("at least one face must be selected")
)

const (
	DefaultThreshold    = 0.4
	DefaultOutputFolder = "recognized_faces_output"
	DefaultMaxImageSize = 1920

	msgMetadataFailed   = "Failed to load face metadata."
	msgKnownFacesFailed = "Failed to load known faces."
	msgRegisterSuccess  = "Face registered successfully."
	msgRegisterFailed   = "Face registration failed."
	msgDeleteSuccess    = "Face deleted."
	msgDeleteFailed     = "Failed to delete face."
	msgScanFailed       = "Face scan failed."
	msgRecognizeFailed  = "Face recognition failed."
)

// Client is the subset of the backend used for faces.
type Client interface {
	KnownFaces(ctx context.Context) ([]string, error)
	FaceMetadata(ctx context.Context, folder string) (*backend.FaceMetadata, error)
	RegisterFace(ctx context.Context, req backend.RegisterFaceRequest) (*backend.FaceActionResponse, error)
	DeleteFace(ctx context.Context, name string) (*backend.FaceActionResponse, error)
	ScanFaces(ctx context.Context, req backend.ScanRequest) (*backend.ScanResult, error)
	RecognizeFaces(ctx context.Context, req backend.RecognizeRequest) (*backend.ScanResult, error)
}

// Options wires a Context.
type Options struct {
	Client       Client
	Notifier     notify.Notifier
	Threshold    float64
	OutputFolder string
	MaxImageSize int
}

// State is a snapshot of the face metadata for one corpus location.
// Active is always a subset of Available.
type State struct {
	Location    string   `json:"location"`
	HasMetadata bool     `json:"hasMetadata"`
	Available   []string `json:"availableFaces"`
	Active      []string `json:"activeFaceFilter"`
	Token       uint64   `json:"refreshToken"`
}

// Context owns the face metadata state. Refreshes are tagged with a
// generation and a response is applied only if no newer refresh started.
type Context struct {
	mu          sync.Mutex
	client      Client
	notifier    notify.Notifier
	opts        Options
	location    string
	hasMetadata bool
	available   []string
	active      []string
	token       uint64
	generation  uint64
	failed      bool // last fetch for location failed
}

// New creates an empty Context.
func New(opts Options) *Context {
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.OutputFolder == "" {
		opts.OutputFolder = DefaultOutputFolder
	}
	if opts.MaxImageSize <= 0 {
		opts.MaxImageSize = DefaultMaxImageSize
	}
	return &Context{client: opts.Client, notifier: opts.Notifier, opts: opts}
}

// State returns a copy of the current state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Location:    c.location,
		HasMetadata: c.hasMetadata,
		Available:   slices.Clone(c.available),
		Active:      slices.Clone(c.active),
		Token:       c.token,
	}
}

// ActiveFilter returns the faces search results are filtered by.
func (c *Context) ActiveFilter() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.active)
}

// SetActiveFilter replaces the filter. Every label must resolve to an
// available face; case, diacritics and dashes are ignored when the label
// is not an exact match.
func (c *Context) SetActiveFilter(labels []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var filter []string
	for _, label := range labels {
		resolved, ok := resolveLabel(c.available, label)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownFace, label)
		}
		if !slices.Contains(filter, resolved) {
			filter = append(filter, resolved)
		}
	}
	c.active = filter
	return nil
}

// SetLocation re-derives the state when location differs from the current
// one, or when the last fetch for it failed. The previous location's faces
// are dropped before the request. An empty location resets the state
// without a request.
func (c *Context) SetLocation(ctx context.Context, location string) error {
	c.mu.Lock()
	if location == c.location && !c.failed {
		c.mu.Unlock()
		return nil
	}
	if location != c.location {
		c.location = location
		c.hasMetadata = false
		c.available = nil
		c.active = nil
	}
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// Invalidate bumps the refresh token and re-derives the state for the
// current location.
func (c *Context) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.token++
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// Refresh queries the face metadata of the current location. On failure
// the state is left unchanged and the next SetLocation for the same
// location fetches again.
func (c *Context) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	location := c.location
	if location == "" {
		c.failed = false
		c.hasMetadata = false
		c.available = nil
		c.active = nil
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	md, err := c.client.FaceMetadata(ctx, location)
	record("refresh", err, false)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return nil
	}
	if err != nil {
		c.failed = true
		notify.Error(c.notifier, backend.Message(err, msgMetadataFailed))
		return fmt.Errorf("refreshing face metadata for %s: %w", location, err)
	}

	c.failed = false
	c.hasMetadata = md.HasMetadata
	c.available = sortLabels(md.Faces)
	c.active = slices.DeleteFunc(c.active, func(label string) bool {
		return !slices.Contains(c.available, label)
	})
	return nil
}

// sortLabels returns a deduplicated copy of labels in collation order.
func sortLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l != "" && !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	collate.New(language.Und, collate.IgnoreCase).SortStrings(out)
	return out
}

// KnownFaces lists every registered face.
func (c *Context) KnownFaces(ctx context.Context) ([]string, error) {
	faces, err := c.client.KnownFaces(ctx)
	if err != nil {
		notify.Error(c.notifier, backend.Message(err, msgKnownFacesFailed))
		return nil, fmt.Errorf("listing known faces: %w", err)
	}
	return sortLabels(faces), nil
}

// Register uploads a reference photo for name.
func (c *Context) Register(ctx context.Context, name string, image []byte) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if len(image) == 0 {
		return ErrImageRequired
	}

	dataURL, err := prepareImage(image, c.opts.MaxImageSize)
	if err != nil {
		notify.Error(c.notifier, msgRegisterFailed, err.Error())
		return err
	}

	resp, err := c.client.RegisterFace(ctx, backend.RegisterFaceRequest{Name: name, ImageBase64: dataURL})
	record("register", err, false)
	if err != nil {
		notify.Error(c.notifier, backend.Message(err, msgRegisterFailed))
		return fmt.Errorf("registering face %s: %w", name, err)
	}
	notify.Success(c.notifier, orDefault(resp.Text(), msgRegisterSuccess))
	c.invalidateAfter(ctx)
	return nil
}

// Delete removes a registered face.
func (c *Context) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	resp, err := c.client.DeleteFace(ctx, name)
	record("delete", err, false)
	if err != nil {
		notify.Error(c.notifier, backend.Message(err, msgDeleteFailed))
		return fmt.Errorf("deleting face %s: %w", name, err)
	}
	notify.Success(c.notifier, orDefault(resp.Text(), msgDeleteSuccess))
	c.invalidateAfter(ctx)
	return nil
}

// ScanOptions selects what Scan looks for.
type ScanOptions struct {
	Folder      string
	TargetFaces []string
	Threshold   float64 // 0 selects the default
}

// Scan detects the target faces in a folder and records face metadata for
// it on the server.
func (c *Context) Scan(ctx context.Context, opts ScanOptions) (*backend.ScanResult, error) {
	if err := validateTargets(opts.Folder, opts.TargetFaces); err != nil {
		return nil, err
	}
	res, err := c.client.ScanFaces(ctx, backend.ScanRequest{
		Folder:      opts.Folder,
		TargetFaces: opts.TargetFaces,
		Threshold:   c.threshold(opts.Threshold),
	})
	record("scan", err, err == nil && len(res.Errors) > 0)
	if err != nil {
		notify.Error(c.notifier, backend.Message(err, msgScanFailed))
		return nil, fmt.Errorf("scanning %s: %w", opts.Folder, err)
	}
	c.reportScan(res, fmt.Sprintf("Scan complete: %d of %d images matched.", res.Matched(), res.Total()))
	c.invalidateAfter(ctx)
	return res, nil
}

// RecognizeOptions selects what Recognize looks for and where matches go.
type RecognizeOptions struct {
	InputFolder string
	OutputName  string // folder name created next to InputFolder
	TargetFaces []string
	Threshold   float64 // 0 selects the default
}

// OutputFolder returns the folder recognized images are copied to: a
// sibling of input named name.
func OutputFolder(input, name string) string {
	return strings.TrimSuffix(input, "/") + "/../" + name
}

// Recognize copies images containing the target faces into an output folder.
func (c *Context) Recognize(ctx context.Context, opts RecognizeOptions) (*backend.ScanResult, error) {
	if err := validateTargets(opts.InputFolder, opts.TargetFaces); err != nil {
		return nil, err
	}
	name := opts.OutputName
	if name == "" {
		name = c.opts.OutputFolder
	}
	res, err := c.client.RecognizeFaces(ctx, backend.RecognizeRequest{
		InputFolder:  opts.InputFolder,
		OutputFolder: OutputFolder(opts.InputFolder, name),
		TargetFaces:  opts.TargetFaces,
		Threshold:    c.threshold(opts.Threshold),
	})
	record("recognize", err, err == nil && len(res.Errors) > 0)
	if err != nil {
		notify.Error(c.notifier, backend.Message(err, msgRecognizeFailed))
		return nil, fmt.Errorf("recognizing faces in %s: %w", opts.InputFolder, err)
	}
	c.reportScan(res, fmt.Sprintf("Recognition complete: %d images recognized.", res.Matched()))
	c.invalidateAfter(ctx)
	return res, nil
}

func record(operation string, err error, warnings bool) {
	metrics.FaceOperations.WithLabelValues(operation, metrics.Outcome(err, warnings)).Inc()
}

// invalidateAfter re-derives the state after a successful face operation.
// A refresh failure is already notified and does not fail the operation.
func (c *Context) invalidateAfter(ctx context.Context) {
	_ = c.Invalidate(ctx)
}

func (c *Context) reportScan(res *backend.ScanResult, summary string) {
	if len(res.Errors) > 0 {
		notify.Error(c.notifier, summary, res.Errors...)
		return
	}
	notify.Success(c.notifier, summary)
}

func (c *Context) threshold(t float64) float64 {
	if t <= 0 {
		return c.opts.Threshold
	}
	return t
}

func validateTargets(folder string, targets []string) error {
	if strings.TrimSpace(folder) == "" {
		return ErrFolderRequired
	}
	if len(targets) == 0 {
		return ErrNoFacesSelected
	}
	return nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
