package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kozaktomas/image-search/internal/faces"
	"github.com/kozaktomas/image-search/internal/web/handlers"
)

// snapshot is the initial state sent on every event stream.
type snapshot struct {
	Settings  handlers.SettingsResponse `json:"settings"`
	Faces     faces.State               `json:"faces"`
	Loading   bool                      `json:"loading"`
	Suggested string                    `json:"suggestion,omitempty"`
}

func (s *Server) setupRoutes() {
	a := s.app

	settingsHandler := handlers.NewSettingsHandler(a.Session, s.logger)
	searchHandler := handlers.NewSearchHandler(a.Search)
	exportHandler := handlers.NewExportHandler(a.Search, a.Session, s.logger)
	facesHandler := handlers.NewFacesHandler(a.Faces)
	folderHandler := handlers.NewFolderHandler(a.Client, a.Session, a.Notifier)
	configHandler := handlers.NewConfigHandler(a.Config)
	eventsHandler := handlers.NewEventsHandler(a.Events, func() any {
		return snapshot{
			Settings:  settingsHandler.Snapshot(),
			Faces:     a.Faces.State(),
			Loading:   a.Search.Loading(),
			Suggested: a.Search.Suggestion(),
		}
	})

	s.router.Get("/api/v1/health", handlers.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		// Long-lived stream, no request timeout.
		r.Get("/events", eventsHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(requestTimeout())

			r.Get("/config", configHandler.Get)

			// Settings
			r.Get("/settings", settingsHandler.Get)
			r.Post("/settings/reload", settingsHandler.Reload)
			r.Post("/settings/draft", settingsHandler.OpenEditor)
			r.Put("/settings/draft", settingsHandler.UpdateDraft)
			r.Delete("/settings/draft", settingsHandler.Cancel)
			r.Post("/settings/commit", settingsHandler.Commit)
			r.Get("/history", settingsHandler.History)
			r.Get("/folder/select", folderHandler.Select)

			// Search
			r.Get("/search/readiness", searchHandler.Readiness)
			r.Post("/search", searchHandler.Search)
			r.Get("/search/result", searchHandler.Result)
			r.Post("/search/suggestion", searchHandler.AcceptSuggestion)
			r.Get("/search/images/{index}", searchHandler.Image)
			r.Get("/export", exportHandler.Download)

			// Faces
			r.Get("/faces", facesHandler.State)
			r.Put("/faces/filter", facesHandler.SetFilter)
			r.Post("/faces/refresh", facesHandler.Refresh)
			r.Get("/faces/known", facesHandler.Known)
			r.Post("/faces/register", facesHandler.Register)
			r.Delete("/faces/{name}", facesHandler.Delete)
			r.Post("/faces/scan", facesHandler.Scan)
			r.Post("/faces/recognize", facesHandler.Recognize)
		})
	})
}
