package httpapi

import (
	"context"
	"net/http"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	DB Pinger
}

// Get Health
// @Summary Service and store health
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	type resp struct {
		Status string `json:"status"`
		DB     string `json:"db"`
		Time   string `json:"time"`
	}

	dbStatus := "ok"
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.DB == nil || h.DB.Ping(ctx) != nil {
		dbStatus = "down"
	}

	writeJSON(w, http.StatusOK, resp{
		Status: "ok",
		DB:     dbStatus,
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
