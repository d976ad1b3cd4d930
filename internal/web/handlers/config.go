package handlers

import (
	"net/http"

	"github.com/kozaktomas/image-search/internal/config"
	"github.com/kozaktomas/image-search/internal/settings"
)

// ConfigHandler exposes the static client configuration.
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	BackendURL     string          `json:"backendUrl"`
	Store          string          `json:"store"`
	IndexOptions   []string        `json:"indexOptions"`
	DeviceOptions  []string        `json:"deviceOptions"`
	EditableFields []string        `json:"editableFields"`
	Defaults       config.Defaults `json:"defaults"`
}

// Get returns the configuration the UI needs to render its forms.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	indexes := make([]string, len(settings.IndexAlgorithms))
	for i, a := range settings.IndexAlgorithms {
		indexes[i] = string(a)
	}
	fields := make([]string, len(settings.Fields))
	for i, f := range settings.Fields {
		fields[i] = string(f)
	}

	respondJSON(w, http.StatusOK, ConfigResponse{
		BackendURL:     h.config.Backend.URL,
		Store:          h.config.Storage.Type,
		IndexOptions:   indexes,
		DeviceOptions:  []string{string(settings.DeviceCPU), string(settings.DeviceGPU)},
		EditableFields: fields,
		Defaults:       h.config.Defaults,
	})
}
