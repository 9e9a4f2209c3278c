// Package scraper turns a web page into a link preview by reading its Open
// Graph, Twitter card and plain HTML metadata.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/itchan-dev/caster/shared/config"
	"github.com/itchan-dev/caster/shared/domain"
)

var (
	ErrNotHTTPS  = errors.New("only https urls are previewed")
	ErrBadStatus = errors.New("unexpected upstream status")
)

const (
	maxWordRunes  = 40
	keptWordRunes = 20
	maxTitleRunes = 300
	maxTextRunes  = 1000
)

type Scraper struct {
	client    *http.Client
	maxBody   int64
	userAgent string
	policy    *bluemonday.Policy
}

type Option func(*Scraper)

func WithHTTPClient(hc *http.Client) Option {
	return func(s *Scraper) { s.client = hc }
}

func New(cfg config.Previews, opts ...Option) *Scraper {
	s := &Scraper{
		client:    &http.Client{Timeout: cfg.FetchTimeout},
		maxBody:   cfg.MaxBodyBytes,
		userAgent: cfg.UserAgent,
		policy:    bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape fetches rawURL and builds its preview. A page that is reachable but
// has nothing worth showing yields (nil, nil).
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*domain.EmbedPreview, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}
	if u.Scheme != "https" {
		return nil, ErrNotHTTPS
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d from %s", ErrBadStatus, resp.StatusCode, u.Host)
	}
	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType != "text/html" && mediaType != "application/xhtml+xml" {
		return nil, nil
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, s.maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	base := resp.Request.URL
	meta := collect(doc)
	preview := &domain.EmbedPreview{
		URL:      rawURL,
		Title:    s.clean(first(meta.props["og:title"], meta.props["twitter:title"], meta.title), maxTitleRunes),
		Text:     s.clean(first(meta.props["og:description"], meta.props["twitter:description"], meta.props["description"]), maxTextRunes),
		Image:    resolve(base, first(meta.props["og:image"], meta.props["og:image:url"], meta.props["twitter:image"])),
		Provider: s.clean(first(meta.props["og:site_name"], base.Hostname()), maxTitleRunes),
		Icon:     resolve(base, first(meta.icon, "/favicon.ico")),
	}
	if preview.Title == "" && preview.Text == "" && preview.Image == "" {
		return nil, nil
	}
	return preview, nil
}

type pageMeta struct {
	props map[string]string // first value per meta property/name, lowercased key
	title string
	icon  string
}

func collect(doc *html.Node) pageMeta {
	meta := pageMeta{props: make(map[string]string)}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Meta:
				key := strings.ToLower(first(attr(n, "property"), attr(n, "name")))
				if _, seen := meta.props[key]; key != "" && !seen {
					meta.props[key] = attr(n, "content")
				}
			case atom.Title:
				if meta.title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					meta.title = n.FirstChild.Data
				}
			case atom.Link:
				if meta.icon == "" && isIconRel(attr(n, "rel")) {
					meta.icon = attr(n, "href")
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return meta
}

func isIconRel(rel string) bool {
	for _, r := range strings.Fields(strings.ToLower(rel)) {
		if r == "icon" || r == "apple-touch-icon" {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func first(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// resolve makes ref absolute against base and drops anything that is not http(s).
func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := base.Parse(ref)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return ""
	}
	return u.String()
}

// clean strips markup, collapses whitespace and shortens very long words.
func (s *Scraper) clean(text string, maxRunes int) string {
	text = html.UnescapeString(s.policy.Sanitize(text))
	words := strings.Fields(text)
	for i, w := range words {
		if utf8.RuneCountInString(w) > maxWordRunes {
			words[i] = string([]rune(w)[:keptWordRunes]) + "..."
		}
	}
	text = strings.Join(words, " ")
	if utf8.RuneCountInString(text) > maxRunes {
		text = string([]rune(text)[:maxRunes]) + "..."
	}
	return text
}
