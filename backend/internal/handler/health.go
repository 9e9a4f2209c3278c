package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/itchan-dev/caster/shared/api"
	"github.com/itchan-dev/caster/shared/logger"
	"github.com/itchan-dev/caster/shared/utils"
)

// Health reports liveness.
// Returns 200 OK if the server is running.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Ready reports readiness, including the cache.
// Returns 503 Service Unavailable when the preview cache cannot be reached.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.health.Ping(ctx); err != nil {
		logger.Component("previews").Warn("readiness check failed", "error", err)
		utils.WriteJSONStatus(w, http.StatusServiceUnavailable, api.HealthResponse{Status: "cache unavailable", Cache: h.cacheKind})
		return
	}
	utils.WriteJSON(w, api.HealthResponse{Status: "ok", Cache: h.cacheKind})
}
