package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/itchan-dev/caster/shared/config"
	"github.com/itchan-dev/caster/shared/domain"
	"github.com/itchan-dev/caster/shared/errors"
	"github.com/itchan-dev/caster/shared/logger"
)

type Scraper interface {
	Scrape(ctx context.Context, url string) (*domain.EmbedPreview, error)
}

// Cache stores scrape results by URL. ok reports a hit, including a cached nil.
type Cache interface {
	Get(ctx context.Context, url string) (preview *domain.EmbedPreview, ok bool, err error)
	Put(ctx context.Context, url string, preview *domain.EmbedPreview) error
}

type PreviewsService interface {
	Previews(ctx context.Context, urls []string) ([]*domain.EmbedPreview, error)
}

type Previews struct {
	scraper Scraper
	cache   Cache
	cfg     config.Previews
	group   singleflight.Group
}

func NewPreviews(scraper Scraper, cache Cache, cfg config.Previews) *Previews {
	return &Previews{scraper: scraper, cache: cache, cfg: cfg}
}

// Previews resolves every URL concurrently and returns one slot per input in
// request order. A URL that cannot be previewed leaves its slot nil; only a
// malformed request is an error.
func (s *Previews) Previews(ctx context.Context, urls []string) ([]*domain.EmbedPreview, error) {
	if len(urls) == 0 {
		return nil, errors.BadRequest("urls is required")
	}
	if len(urls) > s.cfg.MaxURLs {
		return nil, errors.BadRequest(fmt.Sprintf("at most %d urls per request", s.cfg.MaxURLs))
	}

	result := make([]*domain.EmbedPreview, len(urls))
	var g errgroup.Group
	g.SetLimit(s.cfg.MaxURLs)
	for i, u := range urls {
		if !isHTTPS(u) {
			continue
		}
		g.Go(func() error {
			preview := s.lookup(ctx, u)
			if preview != nil {
				p := *preview
				p.URL = u
				result[i] = &p
			}
			return nil
		})
	}
	g.Wait()
	return result, nil
}

// lookup never fails: errors are logged and yield a nil preview. Concurrent
// requests for the same URL share one scrape.
func (s *Previews) lookup(ctx context.Context, u string) *domain.EmbedPreview {
	log := logger.Component("previews").With("url", u)

	v, _, _ := s.group.Do(u, func() (interface{}, error) {
		// Detached from the first caller so a disconnect does not fail the callers sharing this flight.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.FetchTimeout)
		defer cancel()

		preview, ok, err := s.cache.Get(fetchCtx, u)
		if err != nil {
			log.Warn("preview cache read failed", "error", err)
		} else if ok {
			previewLookups.WithLabelValues("hit").Inc()
			return preview, nil
		}

		start := time.Now()
		preview, err = s.scraper.Scrape(fetchCtx, u)
		scrapeDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			previewLookups.WithLabelValues("error").Inc()
			log.Debug("scrape failed", "error", err)
			return nil, nil
		}
		if preview == nil {
			previewLookups.WithLabelValues("empty").Inc()
		} else {
			previewLookups.WithLabelValues("scraped").Inc()
		}

		if err := s.cache.Put(fetchCtx, u, preview); err != nil {
			log.Warn("preview cache write failed", "error", err)
		}
		return preview, nil
	})

	preview, _ := v.(*domain.EmbedPreview)
	return preview
}

func isHTTPS(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme == "https" && u.Host != ""
}
