package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/image-search/internal/search"
)

// SearchHandler runs searches and serves their results.
type SearchHandler struct {
	search *search.Orchestrator
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(orchestrator *search.Orchestrator) *SearchHandler {
	return &SearchHandler{search: orchestrator}
}

// ReadinessResponse tells the UI whether the search trigger is enabled.
type ReadinessResponse struct {
	Ready   bool             `json:"ready"`
	Missing []search.Missing `json:"missing"`
	Tooltip string           `json:"tooltip"`
	Loading bool             `json:"loading"`
}

// ImageResponse is one result image, inlined as a data URL.
type ImageResponse struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
	DataURL     string `json:"dataUrl"`
}

// ResultResponse is a search result.
type ResultResponse struct {
	Query          string          `json:"query"`
	CorrectedQuery *string         `json:"correctedQuery"`
	Images         []ImageResponse `json:"images"`
	Warnings       []string        `json:"warnings"`
}

func toResultResponse(r *search.Result) *ResultResponse {
	if r == nil {
		return nil
	}
	resp := &ResultResponse{
		Query:    r.Query,
		Images:   make([]ImageResponse, len(r.Images)),
		Warnings: r.Warnings,
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	if r.CorrectedQuery != "" {
		corrected := r.CorrectedQuery
		resp.CorrectedQuery = &corrected
	}
	for i, img := range r.Images {
		resp.Images[i] = ImageResponse{
			Index:       i,
			Name:        img.Name,
			ContentType: img.ContentType(),
			Size:        len(img.Data),
			DataURL:     img.DataURL(),
		}
	}
	return resp
}

// Readiness reports which inputs are missing for the given query.
func (h *SearchHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	missing := h.search.Readiness(r.URL.Query().Get("query"))
	if missing == nil {
		missing = []search.Missing{}
	}
	respondJSON(w, http.StatusOK, ReadinessResponse{
		Ready:   len(missing) == 0,
		Missing: missing,
		Tooltip: search.TooltipText(missing),
		Loading: h.search.Loading(),
	})
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query string `json:"query"`
}

// Search runs a query with the committed configuration.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	result, err := h.search.Search(r.Context(), strings.TrimSpace(req.Query))
	if err != nil {
		h.respondSearchError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toResultResponse(result))
}

// AcceptSuggestion searches for the pending corrected query.
func (h *SearchHandler) AcceptSuggestion(w http.ResponseWriter, r *http.Request) {
	result, err := h.search.AcceptSuggestion(r.Context())
	if err != nil {
		h.respondSearchError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toResultResponse(result))
}

func (h *SearchHandler) respondSearchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, search.ErrNotReady):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, search.ErrSearchInFlight):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, search.ErrNoSuggestion):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondBackendError(w, err, "Failed to fetch images.")
	}
}

// Result returns the latest result, or null before the first search.
func (h *SearchHandler) Result(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"result":     toResultResponse(h.search.Result()),
		"suggestion": h.search.Suggestion(),
		"loading":    h.search.Loading(),
	})
}

// Image serves the raw bytes of one result image.
func (h *SearchHandler) Image(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid image index")
		return
	}

	result := h.search.Result()
	if result == nil || index < 0 || index >= len(result.Images) {
		respondError(w, http.StatusNotFound, "image not found")
		return
	}

	img := result.Images[index]
	w.Header().Set("Content-Type", img.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}
