package api

import (
	"context"
	"net/http"
)

type HealthHandler struct {
	ping func(ctx context.Context) error
}

type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.DB = "error"
			resp.Error = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.DB = "ok"
	}
	writeJSON(w, http.StatusOK, resp)
}
