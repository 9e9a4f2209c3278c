package composer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "composer_submissions_total",
			Help: "Submission attempts by outcome",
		},
		[]string{"outcome"},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "composer_uploads_total",
			Help: "Attachment uploads by result",
		},
		[]string{"result"},
	)

	previewFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "composer_preview_fetches_total",
			Help: "Link preview lookups by result",
		},
		[]string{"result"},
	)

	stalePreviewsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "composer_stale_previews_total",
			Help: "Preview responses dropped because the draft moved on",
		},
	)

	previewHandlesLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "composer_preview_handles",
			Help: "Attachment preview handles allocated and not yet released",
		},
	)
)
