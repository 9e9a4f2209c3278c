package composer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itchan-dev/caster/shared/api"
	"github.com/itchan-dev/caster/shared/domain"
)

func TestExtractCandidateURLs(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		ignored []string
		want    []string
	}{
		{"none", "just words", nil, nil},
		{"single", "check this out https://example.com/x", nil, []string{"https://example.com/x"}},
		{"http is not a candidate", "see http://example.com and https://b.example", nil, []string{"https://b.example"}},
		{"deduplicated", "https://a.example https://a.example https://b.example", nil, []string{"https://a.example", "https://b.example"}},
		{"capped to two in text order", "https://c.example https://a.example https://b.example", nil, []string{"https://c.example", "https://a.example"}},
		{"ignored skipped", "https://a.example https://b.example https://c.example", []string{"https://a.example"}, []string{"https://b.example", "https://c.example"}},
		{"trailing punctuation trimmed", "(see https://a.example/path), then https://b.example.", nil, []string{"https://a.example/path", "https://b.example"}},
		{"query kept", "https://a.example/?q=1&x=y", nil, []string{"https://a.example/?q=1&x=y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ignored := make(map[string]struct{})
			for _, u := range tt.ignored {
				ignored[u] = struct{}{}
			}
			got := ExtractCandidateURLs(tt.text, ignored, 2)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, ExtractCandidateURLs(tt.text, ignored, 2), "extraction must be idempotent")
		})
	}
}

func TestEmbedResolver_Retarget(t *testing.T) {
	r := NewEmbedResolver(&mockPreviews{})

	key, changed := r.Retarget([]string{"https://a.example", "https://b.example"})
	assert.True(t, changed)
	assert.Equal(t, "https://a.example,https://b.example", key)
	assert.True(t, r.IsCurrent(key))

	_, changed = r.Retarget([]string{"https://a.example", "https://b.example"})
	assert.False(t, changed)

	_, changed = r.Retarget([]string{"https://b.example"})
	assert.True(t, changed)
	assert.False(t, r.IsCurrent(key))
	assert.Equal(t, []string{"https://b.example"}, r.Target())

	r.Reset()
	assert.True(t, r.IsCurrent(""))
	assert.Empty(t, r.Target())
}

func TestEmbedResolver_Resolve(t *testing.T) {
	t.Run("drops null slots", func(t *testing.T) {
		previews := &mockPreviews{fetch: func(ctx context.Context, urls []string) (api.PreviewsResponse, error) {
			return api.PreviewsResponse{nil, {Title: "B"}}, nil
		}}
		r := NewEmbedResolver(previews)

		got, err := r.Resolve(context.Background(), []string{"https://a.example", "https://b.example"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "https://b.example", got[0].URL, "missing url is filled from the request")
		assert.Equal(t, "B", got[0].Title)
	})

	t.Run("caches successes by key", func(t *testing.T) {
		previews := &mockPreviews{}
		r := NewEmbedResolver(previews)
		urls := []string{"https://a.example"}

		_, err := r.Resolve(context.Background(), urls)
		require.NoError(t, err)
		_, err = r.Resolve(context.Background(), urls)
		require.NoError(t, err)
		assert.Len(t, previews.Calls(), 1)
	})

	t.Run("does not cache failures", func(t *testing.T) {
		var fail atomic.Bool
		fail.Store(true)
		previews := &mockPreviews{fetch: func(ctx context.Context, urls []string) (api.PreviewsResponse, error) {
			if fail.Load() {
				return nil, assert.AnError
			}
			return api.PreviewsResponse{{URL: urls[0]}}, nil
		}}
		r := NewEmbedResolver(previews)
		urls := []string{"https://a.example"}

		_, err := r.Resolve(context.Background(), urls)
		assert.ErrorIs(t, err, assert.AnError)

		fail.Store(false)
		got, err := r.Resolve(context.Background(), urls)
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Len(t, previews.Calls(), 2)
	})

	t.Run("concurrent identical requests share one fetch", func(t *testing.T) {
		release := make(chan struct{})
		started := make(chan struct{}, 8)
		previews := &mockPreviews{fetch: func(ctx context.Context, urls []string) (api.PreviewsResponse, error) {
			started <- struct{}{}
			<-release
			return api.PreviewsResponse{{URL: urls[0]}}, nil
		}}
		r := NewEmbedResolver(previews)
		urls := []string{"https://a.example"}

		var wg sync.WaitGroup
		results := make([][]*domain.EmbedPreview, 3)
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[0], _ = r.Resolve(context.Background(), urls)
		}()
		<-started
		for i := 1; i < 3; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], _ = r.Resolve(context.Background(), urls)
			}(i)
		}
		close(release)
		wg.Wait()

		assert.Len(t, previews.Calls(), 1)
		for _, res := range results {
			assert.Len(t, res, 1)
		}
	})
}
