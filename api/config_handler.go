// Package api: configuration endpoints.
package api

import (
	"net/http"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/seenimoa/forecastviz/internal/config"
	"github.com/seenimoa/forecastviz/internal/dashboard"
)

// configMu serialises theme updates and writes to the config file.
var configMu sync.Mutex

// ConfigResponse is the JSON envelope returned by the config endpoints.
type ConfigResponse struct {
	Config     *config.Config         `json:"config"`
	ConfigFile string                 `json:"config_file"` // path to the active config file
	Settings   []config.SettingStatus `json:"settings"`
	Persisted  bool                   `json:"persisted,omitempty"`
}

// handleGetConfig returns the running configuration.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configMu.Lock()
	defer configMu.Unlock()
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     s.cfg,
			ConfigFile: config.ConfigFilePath(),
			Settings:   config.CheckSettings(s.cfg),
		},
	})
}

// handleUpdateTheme overlays the posted theme keys (snake_case, JSON or
// YAML) on the running theme and swaps in a renderer built from it. With
// ?persist=true the configuration is also written to the config file.
func (s *Server) handleUpdateTheme(w http.ResponseWriter, r *http.Request) {
	configMu.Lock()
	defer configMu.Unlock()

	th := s.currentRenderer().Config().Theme
	dec := yaml.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.KnownFields(true)
	if err := dec.Decode(&th); err != nil {
		writeError(w, http.StatusBadRequest, "invalid theme body: "+err.Error())
		return
	}
	if _, err := dashboard.NewTheme(th); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dc := s.cfg.Dashboard()
	dc.Theme = th
	renderer, err := s.newRenderer(dc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.mu.Lock()
	s.renderer = renderer
	s.mu.Unlock()
	s.cfg.Theme = th

	resp := ConfigResponse{
		Config:     s.cfg,
		ConfigFile: config.ConfigFilePath(),
		Settings:   config.CheckSettings(s.cfg),
	}
	if r.URL.Query().Get("persist") == "true" {
		if err := config.SaveToFile(s.cfg, resp.ConfigFile); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save config: "+err.Error())
			return
		}
		resp.Persisted = true
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}
