package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	previewLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "previews_lookups_total",
			Help: "Link preview lookups by result (hit, scraped, empty, error)",
		},
		[]string{"result"},
	)

	scrapeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "previews_scrape_duration_seconds",
			Help:    "Time spent fetching and parsing a single page",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	cacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "previews_cache_evictions_total",
			Help: "Expired previews removed by the sweeper",
		},
	)
)
