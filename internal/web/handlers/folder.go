package handlers

import (
	"context"
	"net/http"

	"github.com/kozaktomas/image-search/internal/backend"
	"github.com/kozaktomas/image-search/internal/notify"
	"github.com/kozaktomas/image-search/internal/settings"
)

// FolderSelector opens the native folder picker on the backend host.
type FolderSelector interface {
	SelectFolder(ctx context.Context) (*backend.FolderSelection, error)
}

// FolderHandler proxies the backend folder picker.
type FolderHandler struct {
	selector FolderSelector
	session  *settings.Session
	notifier notify.Notifier
}

// NewFolderHandler creates a new folder handler.
func NewFolderHandler(selector FolderSelector, session *settings.Session, notifier notify.Notifier) *FolderHandler {
	return &FolderHandler{selector: selector, session: session, notifier: notifier}
}

// Select opens the picker. With ?apply=true the chosen path becomes the
// draft corpus location.
func (h *FolderHandler) Select(w http.ResponseWriter, r *http.Request) {
	sel, err := h.selector.SelectFolder(r.Context())
	if err != nil {
		respondBackendError(w, err, "Failed to select folder.")
		return
	}
	if sel.Path == "" {
		if sel.Error != "" {
			notify.Warning(h.notifier, sel.Error)
		}
		respondJSON(w, http.StatusOK, sel)
		return
	}

	if r.URL.Query().Get("apply") == "true" {
		if err := h.session.Set(settings.FieldCorpusLocation, sel.Path); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	respondJSON(w, http.StatusOK, sel)
}
