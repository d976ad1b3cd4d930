package handlers

import (
	"log/slog"
	"mime"
	"net/http"

	"github.com/kozaktomas/image-search/internal/export"
	"github.com/kozaktomas/image-search/internal/search"
	"github.com/kozaktomas/image-search/internal/settings"
)

// ExportHandler serves the current result as a zip download.
type ExportHandler struct {
	search  *search.Orchestrator
	session *settings.Session
	logger  *slog.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(orchestrator *search.Orchestrator, session *settings.Session, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{search: orchestrator, session: session, logger: logger}
}

// Download streams <label>.zip. The label comes from the query string or
// the committed export label.
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")
	if label == "" {
		label = h.session.ExportLabel()
	}

	var images []search.Image
	if result := h.search.Result(); result != nil {
		images = result.Images
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": export.FileName(label),
	}))
	w.WriteHeader(http.StatusOK)

	if err := export.Write(r.Context(), w, images, nil); err != nil {
		// Headers are already sent; the client sees a truncated archive.
		h.logger.Error("export failed", "label", sanitizeForLog(label), "error", err)
	}
}
