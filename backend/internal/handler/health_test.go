package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/itchan-dev/caster/shared/config"
)

// --- Mock for HealthChecker ---

type MockHealthChecker struct {
	PingFunc func(ctx context.Context) error
}

func (m *MockHealthChecker) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil // Default: healthy
}

// --- Tests ---

func TestHealth(t *testing.T) {
	t.Run("always returns 200 OK", func(t *testing.T) {
		// Arrange
		handler := &Handler{
			cfg:    &config.Config{},
			health: &MockHealthChecker{},
		}

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()

		// Act
		handler.Health(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "ok", rr.Body.String())
	})
}

func TestReady(t *testing.T) {
	t.Run("returns 200 OK when the cache is reachable", func(t *testing.T) {
		// Arrange
		handler := &Handler{
			cfg:       &config.Config{},
			health:    &MockHealthChecker{},
			cacheKind: "postgres",
		}

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rr := httptest.NewRecorder()

		// Act
		handler.Ready(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"ok","cache":"postgres"}`, rr.Body.String())
	})

	t.Run("returns 503 Service Unavailable when the cache is down", func(t *testing.T) {
		// Arrange
		healthChecker := &MockHealthChecker{
			PingFunc: func(ctx context.Context) error {
				return errors.New("connection refused")
			},
		}

		handler := &Handler{
			cfg:       &config.Config{},
			health:    healthChecker,
			cacheKind: "postgres",
		}

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rr := httptest.NewRecorder()

		// Act
		handler.Ready(rr, req)

		// Assert
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.JSONEq(t, `{"status":"cache unavailable","cache":"postgres"}`, rr.Body.String())
	})

	t.Run("uses timeout context for ping check", func(t *testing.T) {
		// Arrange
		var hasDeadline bool
		healthChecker := &MockHealthChecker{
			PingFunc: func(ctx context.Context) error {
				_, hasDeadline = ctx.Deadline()
				return nil
			},
		}

		handler := &Handler{
			cfg:    &config.Config{},
			health: healthChecker,
		}

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rr := httptest.NewRecorder()

		// Act
		handler.Ready(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, hasDeadline, "Ping should get a context with a deadline")
	})
}
