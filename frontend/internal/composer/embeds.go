package composer

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/itchan-dev/caster/shared/api"
	"github.com/itchan-dev/caster/shared/domain"
	"github.com/itchan-dev/caster/shared/logger"
)

// PreviewFetcher is the link preview service: one slot per input URL, nil
// for URLs it could not resolve.
type PreviewFetcher interface {
	FetchPreviews(ctx context.Context, urls []string) (api.PreviewsResponse, error)
}

var urlPattern = regexp.MustCompile(`https://[^\s<>"'` + "`" + `]+`)

const trailingPunct = ".,;:!?)]}"

// ExtractCandidateURLs returns the first max distinct https URLs of text, in
// text order, skipping ignored ones. The result depends only on its inputs.
func ExtractCandidateURLs(text string, ignored map[string]struct{}, max int) []string {
	if max <= 0 {
		return nil
	}
	var urls []string
	seen := make(map[string]struct{})
	for _, match := range urlPattern.FindAllString(text, -1) {
		u := strings.TrimRight(match, trailingPunct)
		if u == "https://" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		if _, ok := ignored[u]; ok {
			continue
		}
		urls = append(urls, u)
		if len(urls) == max {
			break
		}
	}
	return urls
}

// RequestKey identifies a target URL set. The empty set has the empty key.
func RequestKey(urls []string) string {
	return strings.Join(urls, ",")
}

// EmbedResolver tracks the current target URL set of a draft and fetches
// previews for it. Fetches are keyed by the URL set: identical sets share one
// in-flight request and, once it succeeds, its cached result. Failed fetches
// are not cached. Safe for concurrent use.
type EmbedResolver struct {
	fetcher PreviewFetcher
	group   singleflight.Group

	mu     sync.Mutex
	key    string
	target []string
	cache  map[string][]*domain.EmbedPreview
}

func NewEmbedResolver(fetcher PreviewFetcher) *EmbedResolver {
	return &EmbedResolver{
		fetcher: fetcher,
		cache:   make(map[string][]*domain.EmbedPreview),
	}
}

// Retarget makes urls the current target and reports whether it differs from
// the previous one. Any fetch issued for another key is stale from now on.
func (r *EmbedResolver) Retarget(urls []string) (key string, changed bool) {
	key = RequestKey(urls)
	r.mu.Lock()
	defer r.mu.Unlock()
	if key == r.key {
		return key, false
	}
	r.key = key
	r.target = append([]string(nil), urls...)
	return key, true
}

// IsCurrent reports whether a response for key may still be applied.
func (r *EmbedResolver) IsCurrent(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return key == r.key
}

func (r *EmbedResolver) Target() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.target...)
}

// Resolve returns the usable previews for urls, nil slots dropped. It blocks
// on the network unless the key is cached.
func (r *EmbedResolver) Resolve(ctx context.Context, urls []string) ([]*domain.EmbedPreview, error) {
	key := RequestKey(urls)
	log := logger.Component("embed_resolver").With("key", key)

	r.mu.Lock()
	cached, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		previewFetchesTotal.WithLabelValues("cache_hit").Inc()
		return cached, nil
	}

	v, err, shared := r.group.Do(key, func() (any, error) {
		resp, err := r.fetcher.FetchPreviews(ctx, urls)
		if err != nil {
			return nil, err
		}
		previews := make([]*domain.EmbedPreview, 0, len(resp))
		for i, p := range resp {
			if p == nil {
				continue
			}
			if p.URL == "" && i < len(urls) {
				p.URL = urls[i]
			}
			previews = append(previews, p)
		}

		r.mu.Lock()
		r.cache[key] = previews
		r.mu.Unlock()
		return previews, nil
	})
	if err != nil {
		previewFetchesTotal.WithLabelValues("error").Inc()
		log.Warn("preview fetch failed", "error", err)
		return nil, err
	}

	previewFetchesTotal.WithLabelValues("ok").Inc()
	log.Debug("previews resolved", "shared", shared)
	return v.([]*domain.EmbedPreview), nil
}

// Reset forgets the current target; cached results survive.
func (r *EmbedResolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.key = ""
	r.target = nil
}
