package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itchan-dev/caster/shared/config"
	"github.com/itchan-dev/caster/shared/domain"
	"github.com/itchan-dev/caster/shared/errors"
)

// --- Mock for PreviewsService ---

type MockPreviewsService struct {
	PreviewsFunc func(ctx context.Context, urls []string) ([]*domain.EmbedPreview, error)
}

func (m *MockPreviewsService) Previews(ctx context.Context, urls []string) ([]*domain.EmbedPreview, error) {
	if m.PreviewsFunc != nil {
		return m.PreviewsFunc(ctx, urls)
	}
	return make([]*domain.EmbedPreview, len(urls)), nil
}

func TestPreviews(t *testing.T) {
	t.Run("splits the urls parameter and returns one slot per url", func(t *testing.T) {
		// Arrange
		var received []string
		service := &MockPreviewsService{
			PreviewsFunc: func(ctx context.Context, urls []string) ([]*domain.EmbedPreview, error) {
				received = urls
				return []*domain.EmbedPreview{{URL: urls[0], Title: "A"}, nil}, nil
			},
		}
		handler := New(service, &MockHealthChecker{}, "memory", &config.Config{})

		req := httptest.NewRequest(http.MethodGet, "/previews?urls=https://a.example/x,%20https://b.example/y,", nil)
		rr := httptest.NewRecorder()

		// Act
		handler.Previews(rr, req)

		// Assert
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, []string{"https://a.example/x", "https://b.example/y"}, received)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.JSONEq(t, `[{"url":"https://a.example/x","title":"A"},null]`, rr.Body.String())
	})

	t.Run("maps service status errors", func(t *testing.T) {
		// Arrange
		service := &MockPreviewsService{
			PreviewsFunc: func(ctx context.Context, urls []string) ([]*domain.EmbedPreview, error) {
				assert.Empty(t, urls)
				return nil, errors.BadRequest("urls is required")
			},
		}
		handler := New(service, &MockHealthChecker{}, "memory", &config.Config{})

		req := httptest.NewRequest(http.MethodGet, "/previews", nil)
		rr := httptest.NewRecorder()

		// Act
		handler.Previews(rr, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "urls is required\n", rr.Body.String())
	})
}

func TestSplitURLs(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{" , ,", nil},
		{"https://a.example", []string{"https://a.example"}},
		{"https://a.example,https://b.example", []string{"https://a.example", "https://b.example"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, splitURLs(tt.raw))
		})
	}
}
