package composer

import (
	"strings"
	"unicode/utf8"

	"github.com/itchan-dev/caster/shared/domain"
)

// Draft is the unsent content of one composer.
type Draft struct {
	Text             string
	Attachments      domain.Attachments
	Embeds           []*domain.EmbedPreview
	IgnoredEmbedURLs map[string]struct{}
}

func newDraft() Draft {
	return Draft{IgnoredEmbedURLs: make(map[string]struct{})}
}

// Validity holds the flags derived from a draft. Length counts runes.
type Validity struct {
	Length              int
	Limit               int
	IsValidInput        bool
	IsCharLimitExceeded bool
	IsUploadingImages   bool
	IsValidToSubmit     bool
}

func (d *Draft) Validity(limit int) Validity {
	v := Validity{
		Length:            utf8.RuneCountInString(d.Text),
		Limit:             limit,
		IsValidInput:      strings.TrimSpace(d.Text) != "",
		IsUploadingImages: len(d.Attachments) > 0,
	}
	v.IsCharLimitExceeded = v.Length > limit
	v.IsValidToSubmit = !v.IsCharLimitExceeded && (v.IsValidInput || v.IsUploadingImages)
	return v
}

// EmbedURLs lists the resolved preview URLs in display order.
func (d Draft) EmbedURLs() []domain.URL {
	urls := make([]domain.URL, 0, len(d.Embeds))
	for _, e := range d.Embeds {
		urls = append(urls, e.URL)
	}
	return urls
}

func (d *Draft) clone() Draft {
	ignored := make(map[string]struct{}, len(d.IgnoredEmbedURLs))
	for u := range d.IgnoredEmbedURLs {
		ignored[u] = struct{}{}
	}
	return Draft{
		Text:             d.Text,
		Attachments:      append(domain.Attachments(nil), d.Attachments...),
		Embeds:           append([]*domain.EmbedPreview(nil), d.Embeds...),
		IgnoredEmbedURLs: ignored,
	}
}

// keepEmbeds drops embeds whose URL is not in urls.
func keepEmbeds(embeds []*domain.EmbedPreview, urls []string) []*domain.EmbedPreview {
	if len(embeds) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		wanted[u] = struct{}{}
	}
	var kept []*domain.EmbedPreview
	for _, e := range embeds {
		if _, ok := wanted[e.URL]; ok {
			kept = append(kept, e)
		}
	}
	return kept
}
