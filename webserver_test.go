package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"goPropertyTax/internal/logger"
	"goPropertyTax/taxcalc"
)

func newTestServer(t *testing.T) *WebServer {
	t.Helper()
	return NewWebServer(DefaultSettings(), taxcalc.Default(), logger.Test(t))
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// =============================================================================
// Calculation endpoints
// =============================================================================

func TestAPI_CapitalGains(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/capital-gains", `{
		"property": "general",
		"holding_years": 10,
		"deduction_table": "table-1",
		"sale_price": 1200000000,
		"acquisition_price": 600000000
	}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeBody(t, rec)
	assert.EqualValues(t, 477_500_000, body["tax_base"])
	assert.EqualValues(t, 165_060_000, body["computed_tax"])
	assert.EqualValues(t, 181_566_000, body["final_tax"])
	assert.EqualValues(t, 0.4, body["applied_rate"])
}

func TestAPI_CapitalGains_EmptyBodyRunsDefaults(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/capital-gains", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.EqualValues(t, 0, body["final_tax"])
}

func TestAPI_Gift(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/gift-tax",
		`{"relationship": "직계비속 (성인)", "gift_value": 100000000}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.EqualValues(t, 50_000_000, body["tax_base"])
	assert.EqualValues(t, 4_850_000, body["payable_tax"])
}

func TestAPI_Acquisition_FormLabels(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/acquisition-tax", `{
		"property": "국민주택 (85㎡ 이하)",
		"cause": "매매",
		"houses": "1주택",
		"regulated": true,
		"price": 500000000
	}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.EqualValues(t, 5_000_000, body["acquisition_tax"])
	assert.EqualValues(t, 0, body["agriculture_tax"])
	assert.EqualValues(t, 500_000, body["education_tax"])
	assert.EqualValues(t, 5_500_000, body["total_tax"])
}

func TestAPI_Reconstruction_InvalidDate(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/reconstruction", `{"sale_date": "2025-02-30"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["error"], "sale date")
	assert.NotEmpty(t, body["request_id"])
}

func TestAPI_Errors(t *testing.T) {
	h := newTestServer(t).Handler()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"malformed JSON", http.MethodPost, "/api/capital-gains", `{"sale_price": `, http.StatusBadRequest},
		{"wrong field type", http.MethodPost, "/api/gift-tax", `{"gift_value": "lots"}`, http.StatusBadRequest},
		{"trailing garbage", http.MethodPost, "/api/capital-gains", `{"sale_price": 100} garbage`, http.StatusBadRequest},
		{"second JSON value", http.MethodPost, "/api/capital-gains", `{"sale_price": 100}{"sale_price": "x"}`, http.StatusBadRequest},
		{"trailing value on a report", http.MethodPost, "/api/report/gift-tax", `{"gift_value": 1} 2`, http.StatusBadRequest},
		{"GET on a calculation", http.MethodGet, "/api/capital-gains", "", http.StatusMethodNotAllowed},
		{"POST on health", http.MethodPost, "/api/health", "", http.StatusMethodNotAllowed},
		{"POST on rates", http.MethodPost, "/api/rates", "", http.StatusMethodNotAllowed},
		{"GET on a report", http.MethodGet, "/api/report/gift-tax", "", http.StatusMethodNotAllowed},
		{"unknown report kind", http.MethodPost, "/api/report/estate-tax", "", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, h, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeBody(t, rec)["error"])
		})
	}
}

func TestAPI_TrailingWhitespaceAccepted(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/gift-tax", "{\"gift_value\": 100000000}\n\n  ")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 4_850_000, decodeBody(t, rec)["payable_tax"])
}

func TestAPI_BodyTooLarge(t *testing.T) {
	settings := DefaultSettings()
	settings.MaxBodyBytes = 16
	h := NewWebServer(settings, taxcalc.Default(), logger.Test(t)).Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/capital-gains", `{"sale_price": 1200000000, "acquisition_price": 600000000}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// Reports
// =============================================================================

func TestAPI_Report(t *testing.T) {
	ws := newTestServer(t)
	ws.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	rec := doRequest(t, ws.Handler(), http.MethodPost, "/api/report/capital-gains",
		`{"holding_years": 10, "sale_price": 1200000000, "acquisition_price": 600000000}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	reportID := rec.Header().Get("X-Report-ID")
	require.Len(t, reportID, 36)
	assert.Equal(t, `attachment; filename="capital-gains-`+reportID[:8]+`.pdf"`, rec.Header().Get("Content-Disposition"))
}

func TestAPI_Report_InvalidInput(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/report/reconstruction", `{"approval_date": "yesterday"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "approval date")
}

// =============================================================================
// Health and rates
// =============================================================================

func TestAPI_Health(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doRequest(t, h, http.MethodGet, "/api/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, apiVersion, body["version"])
}

func TestAPI_Rates(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doRequest(t, h, http.MethodGet, "/api/rates", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 2025, body["year"])
	assert.Contains(t, body, "capital_gains")
	assert.Contains(t, body, "gift")
	assert.Contains(t, body, "acquisition")
}

// =============================================================================
// Middleware
// =============================================================================

func TestMiddleware_RequestID(t *testing.T) {
	h := newTestServer(t).Handler()

	t.Run("caller's ID is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set(requestIDHeader, "trace-42")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "trace-42", rec.Header().Get(requestIDHeader))
	})

	t.Run("generated when missing", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodGet, "/api/health", "")
		assert.Len(t, rec.Header().Get(requestIDHeader), 36)
	})

	t.Run("replaced when oversized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set(requestIDHeader, strings.Repeat("x", 200))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Len(t, rec.Header().Get(requestIDHeader), 36)
	})

	t.Run("error bodies carry the ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/gift-tax", nil)
		req.Header.Set(requestIDHeader, "trace-43")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "trace-43", decodeBody(t, rec)["request_id"])
	})
}

func TestMiddleware_AccessLog(t *testing.T) {
	lggr, logs := logger.TestObserved(t, zapcore.InfoLevel)
	h := NewWebServer(DefaultSettings(), taxcalc.Default(), lggr).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, "trace-44")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("Request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "trace-44", fields["request_id"])
	assert.Equal(t, http.MethodGet, fields["method"])
	assert.Equal(t, "/api/health", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.Equal(t, "http", entries[0].LoggerName)
}

func TestMiddleware_CORS(t *testing.T) {
	settings := DefaultSettings()
	settings.AllowedOrigins = []string{"https://calc.example"}
	h := NewWebServer(settings, taxcalc.Default(), logger.Test(t)).Handler()

	t.Run("preflight from an allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/gift-tax", nil)
		req.Header.Set("Origin", "https://calc.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://calc.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	})

	t.Run("other origins get no CORS headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://elsewhere.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

type brokenWriter struct {
	header http.Header
}

func (b *brokenWriter) Header() http.Header { return b.header }
func (b *brokenWriter) WriteHeader(int)     {}
func (b *brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestWriteFailuresAreLogged(t *testing.T) {
	lggr, logs := logger.TestObserved(t, zapcore.DebugLevel)
	ws := NewWebServer(DefaultSettings(), taxcalc.Default(), lggr)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req = req.WithContext(logger.WithContext(req.Context(), lggr))
	writeJSON(&brokenWriter{header: http.Header{}}, req, http.StatusOK, HealthResponse{Status: "ok"})
	assert.Equal(t, 1, logs.FilterMessage("Failed to write response").Len())

	req = httptest.NewRequest(http.MethodPost, "/api/report/gift-tax", strings.NewReader(`{"gift_value": 1}`))
	req.SetPathValue("kind", string(kindGift))
	req = req.WithContext(logger.WithContext(req.Context(), lggr))
	ws.handleReport(&brokenWriter{header: http.Header{}}, req)
	assert.Equal(t, 1, logs.FilterMessage("Failed to write report").Len())
}

// =============================================================================
// Serve
// =============================================================================

func TestServe_ShutsDownOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ws := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ws.Serve(ctx, listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
