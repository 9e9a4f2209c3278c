package api

import "github.com/itchan-dev/caster/shared/domain"

// Response DTOs shared by the previews service and the composer client

// PreviewsResponse has one slot per requested URL, in request order.
// A nil slot means the URL resolved to nothing usable.
type PreviewsResponse = []*domain.EmbedPreview

// UploadResponse is the image host's reply to an upload.
type UploadResponse struct {
	Data    UploadData `json:"data"`
	Success bool       `json:"success"`
	Status  int        `json:"status"`
}

type UploadData struct {
	Id   string `json:"id"`
	Link string `json:"link"`
}

// HealthResponse is returned by /ready.
type HealthResponse struct {
	Status string `json:"status"`
	Cache  string `json:"cache,omitempty"`
}
