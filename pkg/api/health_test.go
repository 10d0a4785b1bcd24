package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Weynie/van-construction-web-sub000/pkg/engine"
	"github.com/Weynie/van-construction-web-sub000/pkg/gateway"
	"github.com/Weynie/van-construction-web-sub000/pkg/storage"
	"github.com/Weynie/van-construction-web-sub000/pkg/template"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *engine.Engine) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	registry := template.MustNewRegistry()
	local, err := gateway.NewLocal(store, registry)
	require.NoError(t, err)

	eng := engine.New(local, engine.Options{Registry: registry})
	t.Cleanup(func() { _ = eng.Close(context.Background()) })
	return NewServer(eng, "test", opts...), eng
}

// TestHealthHandler tests the /health endpoint
func TestHealthHandler(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{
			name:           "GET request succeeds",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "POST request fails",
			method:         http.MethodPost,
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "DELETE request fails",
			method:         http.MethodDelete,
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/health", nil)
			w := httptest.NewRecorder()

			s.healthHandler(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusOK {
				var response HealthResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				assert.NoError(t, err)
				assert.Equal(t, "healthy", response.Status)
				assert.Equal(t, "test", response.Version)
				assert.NotZero(t, response.Timestamp)
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			}
		})
	}
}

// TestReadyHandler tests the /ready endpoint before and after the backend
// has been probed
func TestReadyHandler(t *testing.T) {
	s, eng := newTestServer(t)

	eng.CheckHealth(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	s.readyHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response ReadyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "ready", response.Status)
	assert.Equal(t, "ready", response.Checks["gateway"])
	assert.Equal(t, "0 projects, 0 pages, 0 tabs", response.Checks["workspace"])
	assert.Equal(t, "0 operations", response.Checks["pending"])
}

func TestReadyHandlerMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/ready", nil)
	w := httptest.NewRecorder()
	s.readyHandler(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
