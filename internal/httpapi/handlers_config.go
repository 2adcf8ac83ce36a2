package httpapi

import "net/http"

type ConfigHandler struct {
	BaseURL string
}

type ConfigDocument struct {
	BaseURL string `json:"baseUrl"`
}

// Get Config
// @Summary Runtime configuration for the web client
// @Tags config
// @Produce json
// @Success 200 {object} ConfigDocument
// @Router /config.json [get]
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, ConfigDocument{BaseURL: h.BaseURL})
}
