package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/image-search/internal/constants"
	"github.com/kozaktomas/image-search/internal/faces"
)

// FacesHandler exposes the face filter state and the face operations.
type FacesHandler struct {
	faces *faces.Context
}

// NewFacesHandler creates a new faces handler.
func NewFacesHandler(faceCtx *faces.Context) *FacesHandler {
	return &FacesHandler{faces: faceCtx}
}

// State returns the face metadata of the current location.
func (h *FacesHandler) State(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.stateResponse())
}

func (h *FacesHandler) stateResponse() faces.State {
	st := h.faces.State()
	if st.Available == nil {
		st.Available = []string{}
	}
	if st.Active == nil {
		st.Active = []string{}
	}
	return st
}

// FilterRequest is the body of PUT /faces/filter.
type FilterRequest struct {
	Faces []string `json:"faces"`
}

// SetFilter replaces the active face filter.
func (h *FacesHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if err := h.faces.SetActiveFilter(req.Faces); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.stateResponse())
}

// Refresh re-derives the face metadata for the current location.
func (h *FacesHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.faces.Invalidate(r.Context()); err != nil {
		respondBackendError(w, err, "Failed to load face metadata.")
		return
	}
	respondJSON(w, http.StatusOK, h.stateResponse())
}

// Known lists every registered face.
func (h *FacesHandler) Known(w http.ResponseWriter, r *http.Request) {
	known, err := h.faces.KnownFaces(r.Context())
	if err != nil {
		respondBackendError(w, err, "Failed to load known faces.")
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"faces": known})
}

// Register accepts a multipart form with "name" and an "image" file.
func (h *FacesHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, faces.ErrImageRequired.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	if err := h.faces.Register(r.Context(), r.FormValue("name"), data); err != nil {
		h.respondFaceError(w, err, "Face registration failed.")
		return
	}
	respondJSON(w, http.StatusCreated, h.stateResponse())
}

// Delete removes a registered face.
func (h *FacesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.faces.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.respondFaceError(w, err, "Failed to delete face.")
		return
	}
	respondJSON(w, http.StatusOK, h.stateResponse())
}

// ScanRequest is the body of POST /faces/scan.
type ScanRequest struct {
	Folder      string   `json:"folder"`
	TargetFaces []string `json:"targetFaces"`
	Threshold   float64  `json:"threshold"`
}

// Scan records face metadata for a folder.
func (h *FacesHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	res, err := h.faces.Scan(r.Context(), faces.ScanOptions{
		Folder:      req.Folder,
		TargetFaces: req.TargetFaces,
		Threshold:   req.Threshold,
	})
	if err != nil {
		h.respondFaceError(w, err, "Face scan failed.")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// RecognizeRequest is the body of POST /faces/recognize.
type RecognizeRequest struct {
	InputFolder string   `json:"inputFolder"`
	OutputName  string   `json:"outputFolderName"`
	TargetFaces []string `json:"targetFaces"`
	Threshold   float64  `json:"threshold"`
}

// Recognize copies images with the target faces into an output folder.
func (h *FacesHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	var req RecognizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	res, err := h.faces.Recognize(r.Context(), faces.RecognizeOptions{
		InputFolder: req.InputFolder,
		OutputName:  req.OutputName,
		TargetFaces: req.TargetFaces,
		Threshold:   req.Threshold,
	})
	if err != nil {
		h.respondFaceError(w, err, "Face recognition failed.")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *FacesHandler) respondFaceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, faces.ErrNameRequired),
		errors.Is(err, faces.ErrImageRequired),
		errors.Is(err, faces.ErrFolderRequired),
		errors.Is(err, faces.ErrNoFacesSelected):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondBackendError(w, err, fallback)
	}
}
