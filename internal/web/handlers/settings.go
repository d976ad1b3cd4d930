package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/kozaktomas/image-search/internal/backend"
	"github.com/kozaktomas/image-search/internal/settings"
)

// SettingsHandler exposes the settings session: committed configuration,
// the editable draft and the location history.
type SettingsHandler struct {
	session *settings.Session
	logger  *slog.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(session *settings.Session, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{session: session, logger: logger}
}

// SettingsResponse is the full session state.
type SettingsResponse struct {
	Committed   settings.Configuration `json:"committed"`
	Complete    bool                   `json:"complete"`
	Draft       settings.Draft         `json:"draft"`
	ExportLabel string                 `json:"folderName"`
	History     []string               `json:"savedUrls"`
}

func (h *SettingsHandler) state() SettingsResponse {
	committed := h.session.Committed()
	history := h.session.History()
	if history == nil {
		history = []string{}
	}
	return SettingsResponse{
		Committed:   committed,
		Complete:    committed.Complete(),
		Draft:       h.session.Draft(),
		ExportLabel: h.session.ExportLabel(),
		History:     history,
	}
}

// Snapshot returns the session state for the event stream.
func (h *SettingsHandler) Snapshot() SettingsResponse {
	return h.state()
}

// Get returns the session state.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.state())
}

// Reload fetches the settings from the backend again. Failures are
// reported as notifications and leave the state unchanged.
func (h *SettingsHandler) Reload(w http.ResponseWriter, r *http.Request) {
	h.session.Load(r.Context())
	respondJSON(w, http.StatusOK, h.state())
}

// OpenEditor resets the draft to the committed configuration.
func (h *SettingsHandler) OpenEditor(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.session.OpenEditor())
}

// UpdateDraft applies a set of field edits, given as raw strings keyed by
// field name. Either every edit applies or none does.
func (h *SettingsHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	var edits map[string]string
	if err := decodeJSON(w, r, &edits); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	for name := range edits {
		if !slices.Contains(settings.Fields, settings.Field(name)) {
			respondError(w, http.StatusBadRequest, "unknown field: "+name)
			return
		}
	}

	var (
		result settings.Draft
		err    error
	)
	h.session.Edit(func(d *settings.Draft) {
		next := *d
		next.Configuration = d.Configuration.Clone()
		for _, field := range settings.Fields {
			raw, ok := edits[string(field)]
			if !ok {
				continue
			}
			if err = next.Set(field, raw); err != nil {
				return
			}
		}
		*d = next
		result = next
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Cancel discards the draft.
func (h *SettingsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.session.Cancel()
	respondJSON(w, http.StatusOK, h.state())
}

// Commit adopts the draft and saves it to the backend. When only the
// remote save fails, the local commit stands and the response says so.
func (h *SettingsHandler) Commit(w http.ResponseWriter, r *http.Request) {
	err := h.session.Commit(r.Context())
	if err != nil {
		if !errors.Is(err, settings.ErrRemoteSave) {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.logger.Warn("settings committed locally only", "error", sanitizeForLog(err.Error()))
		respondJSON(w, http.StatusBadGateway, map[string]any{
			"error":    backend.Message(err, "Error saving settings."),
			"settings": h.state(),
		})
		return
	}
	respondJSON(w, http.StatusOK, h.state())
}

// History returns the recent corpus locations, most recent first.
func (h *SettingsHandler) History(w http.ResponseWriter, r *http.Request) {
	history := h.session.History()
	if history == nil {
		history = []string{}
	}
	respondJSON(w, http.StatusOK, map[string][]string{"savedUrls": history})
}
