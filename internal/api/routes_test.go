package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runeterra-roulette/backend/internal/models"
)

type stubCardService struct{}

func (stubCardService) ServeCards(ctx context.Context, filter models.RequestFilter) ([]models.CardResponse, error) {
	return []models.CardResponse{}, nil
}

func (stubCardService) CollectionVersion(ctx context.Context) (string, error) {
	return "1_0_0", nil
}

func TestSetupRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := SetupRouter(stubCardService{}, []string{"http://localhost:5173"})

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/health", http.StatusOK, `"status":"ok"`},
		{"/cards", http.StatusOK, `[]`},
		{"/version", http.StatusOK, `"version":"1_0_0"`},
		{"/nope", http.StatusNotFound, `"error":"not found"`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestMetricsEndpointExposesRequestCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := SetupRouter(stubCardService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "runeterra_http_requests_total"))
	assert.Contains(t, body, `path="/health"`)
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := SetupRouter(stubCardService{}, []string{"https://roulette.example"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://roulette.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "https://roulette.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
