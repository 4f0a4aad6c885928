package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-tracker/internal/adapter"
	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/types"
)

// mockPortfolioService is a mock implementation of PortfolioServiceInterface
type mockPortfolioService struct {
	report *types.Report
	err    error
	panics bool
	calls  int
}

func (m *mockPortfolioService) GetPortfolio(ctx context.Context) (*types.Report, error) {
	m.calls++
	if m.panics {
		panic("valuation blew up")
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

type mockHealthReporter struct {
	health *adapter.ProviderHealth
}

func (m *mockHealthReporter) GetHealth() *adapter.ProviderHealth {
	return m.health
}

func testLogger() *logging.Logger {
	logger := logging.NewLogger(logging.LevelError, logging.FormatJSON)
	logger.SetOutput(io.Discard)
	return logger
}

func createTestServer(svc PortfolioServiceInterface, providers ...adapter.HealthReporter) *Server {
	config := &ServerConfig{
		Host:           "localhost",
		Port:           "8080",
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		CacheMaxAge:    time.Hour,
	}
	return NewServer(config, svc, testLogger(), providers...)
}

func sampleReport() *types.Report {
	return &types.Report{
		TotalValue: 1500,
		Assets: []types.Asset{
			{Symbol: "BTC", Amount: 0.02, Price: 50000, Value: 1000, Percentage: 66.67, Color: "#f7931a"},
			{Symbol: "USDC", Amount: 500, Price: 1, Value: 500, Percentage: 33.33},
		},
		LastUpdated: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Cached:      true,
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer(&mockPortfolioService{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "portfolio-tracker", body["service"])
}

func TestProviderHealthEndpoint(t *testing.T) {
	server := createTestServer(&mockPortfolioService{},
		&mockHealthReporter{health: &adapter.ProviderHealth{Name: "coingecko", IsHealthy: true, SuccessfulReqs: 3}},
		&mockHealthReporter{health: &adapter.ProviderHealth{Name: "dexscreener", IsHealthy: false, FailedReqs: 2}},
	)

	req := httptest.NewRequest("GET", "/health/providers", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Providers []adapter.ProviderHealth `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Providers, 2)
	assert.Equal(t, "coingecko", body.Providers[0].Name)
	assert.True(t, body.Providers[0].IsHealthy)
	assert.Equal(t, int64(3), body.Providers[0].SuccessfulReqs)
	assert.Equal(t, "dexscreener", body.Providers[1].Name)
	assert.False(t, body.Providers[1].IsHealthy)
}

func TestGetPortfolio_Success(t *testing.T) {
	svc := &mockPortfolioService{report: sampleReport()}
	server := createTestServer(svc)

	req := httptest.NewRequest("GET", "/api/portfolio", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))
	assert.Equal(t, 1, svc.calls)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1500.0, body["totalValue"])
	assert.Equal(t, true, body["cached"])
	assert.Equal(t, "2026-03-01T12:00:00Z", body["lastUpdated"])

	assets, ok := body["assets"].([]interface{})
	require.True(t, ok)
	require.Len(t, assets, 2)
	first := assets[0].(map[string]interface{})
	assert.Equal(t, "BTC", first["symbol"])
	assert.Equal(t, 66.67, first["percentage"])
	assert.Equal(t, "#f7931a", first["color"])
}

func TestGetPortfolio_EmptyAssetsSerializeAsArray(t *testing.T) {
	svc := &mockPortfolioService{report: &types.Report{Assets: []types.Asset{}, LastUpdated: time.Now()}}
	server := createTestServer(svc)

	req := httptest.NewRequest("GET", "/api/portfolio", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"assets":[]`)
	assert.Contains(t, w.Body.String(), `"totalValue":0`)
}

func TestGetPortfolio_ServiceError(t *testing.T) {
	svc := &mockPortfolioService{err: errors.New("holdings file unreadable")}
	server := createTestServer(svc)

	req := httptest.NewRequest("GET", "/api/portfolio", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"error":"Failed to fetch portfolio data"}`, w.Body.String())
}

func TestGetPortfolio_MethodNotAllowed(t *testing.T) {
	server := createTestServer(&mockPortfolioService{report: sampleReport()})

	req := httptest.NewRequest("POST", "/api/portfolio", bytes.NewReader([]byte("{}")))
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	server := createTestServer(&mockPortfolioService{})

	req := httptest.NewRequest("GET", "/api/unknown", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, ErrCodeNotFound, body.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	server := createTestServer(&mockPortfolioService{panics: true})

	req := httptest.NewRequest("GET", "/api/portfolio", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, ErrCodeInternalError, body.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	server := createTestServer(&mockPortfolioService{})

	t.Run("generates id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, req)

		id := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	})

	t.Run("reuses valid client id", func(t *testing.T) {
		clientID := uuid.NewString()
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set(RequestIDHeader, clientID)
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, req)

		assert.Equal(t, clientID, w.Header().Get(RequestIDHeader))
	})

	t.Run("replaces malformed id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set(RequestIDHeader, "not-a-uuid")
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, req)

		id := w.Header().Get(RequestIDHeader)
		assert.NotEqual(t, "not-a-uuid", id)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	})
}

func TestCORSPreflight(t *testing.T) {
	server := createTestServer(&mockPortfolioService{})

	req := httptest.NewRequest("OPTIONS", "/api/portfolio", nil)
	w := httptest.NewRecorder()
	CORSMiddleware(server.router).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCompressionMiddleware(t *testing.T) {
	server := createTestServer(&mockPortfolioService{report: sampleReport()})

	req := httptest.NewRequest("GET", "/api/portfolio", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	defer gz.Close()

	var report types.Report
	require.NoError(t, json.NewDecoder(gz).Decode(&report))
	assert.Equal(t, 1500.0, report.TotalValue)
	assert.Len(t, report.Assets, 2)
}

func TestRateLimitMiddleware(t *testing.T) {
	config := &ServerConfig{
		RateLimitRPS:   1,
		RateLimitBurst: 2,
		CacheMaxAge:    time.Hour,
	}
	server := NewServer(config, &mockPortfolioService{report: sampleReport()}, testLogger())

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/api/portfolio", nil)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1111").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1:2222").Code)

	limited := send("10.0.0.1:3333")
	require.Equal(t, http.StatusTooManyRequests, limited.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(limited.Body.Bytes(), &body))
	assert.Equal(t, ErrCodeRateLimitExceeded, body.Code)
	assert.Equal(t, 1.0, body.Details["limit"])

	// Other clients keep their own budget
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1111").Code)
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name      string
		remote    string
		forwarded string
		want      string
	}{
		{"remote addr host", "192.168.1.5:5050", "", "192.168.1.5"},
		{"remote addr without port", "192.168.1.5", "", "192.168.1.5"},
		{"first forwarded hop", "10.0.0.1:80", "203.0.113.7, 10.0.0.1", "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/health", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, clientKey(req))
		})
	}
}

func TestNewRateLimiter_NonPositiveDisables(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	limiter := rl.getLimiter("client")
	for i := 0; i < 50; i++ {
		require.True(t, limiter.Allow())
	}
	assert.Same(t, limiter, rl.getLimiter("client"))
}
