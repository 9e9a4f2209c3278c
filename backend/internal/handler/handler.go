package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/itchan-dev/caster/backend/internal/service"
	"github.com/itchan-dev/caster/shared/config"
	"github.com/itchan-dev/caster/shared/utils"
)

// HealthChecker is whatever backs the preview cache: postgres or memory.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	previews  service.PreviewsService
	health    HealthChecker
	cacheKind string
	cfg       *config.Config
}

func New(previews service.PreviewsService, health HealthChecker, cacheKind string, cfg *config.Config) *Handler {
	return &Handler{previews: previews, health: health, cacheKind: cacheKind, cfg: cfg}
}

// Previews serves GET /previews?urls=a,b with one JSON slot per url.
func (h *Handler) Previews(w http.ResponseWriter, r *http.Request) {
	urls := splitURLs(r.URL.Query().Get("urls"))

	previews, err := h.previews.Previews(r.Context(), urls)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, previews)
}

func splitURLs(raw string) []string {
	var urls []string
	for _, u := range strings.Split(raw, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
