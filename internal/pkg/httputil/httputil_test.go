package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bissquit/incident-tracker/internal/pkg/ctxlog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errThingNotFound = errors.New("thing not found")

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleError(t *testing.T) {
	mappings := []ErrorMapping{
		{Error: errThingNotFound, Status: http.StatusNotFound, Message: "Thing not found"},
		{Error: context.DeadlineExceeded, Status: http.StatusGatewayTimeout, Detail: "try again later"},
	}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   ErrorResponse
	}{
		{
			name:       "mapped",
			err:        errThingNotFound,
			wantStatus: http.StatusNotFound,
			wantBody:   ErrorResponse{Error: "Thing not found"},
		},
		{
			name:       "wrapped",
			err:        fmt.Errorf("load: %w", errThingNotFound),
			wantStatus: http.StatusNotFound,
			wantBody:   ErrorResponse{Error: "Thing not found"},
		},
		{
			name:       "message falls back to error text",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantBody:   ErrorResponse{Error: "context deadline exceeded", Message: "try again later"},
		},
		{
			name:       "unmapped",
			err:        errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   ErrorResponse{Error: "Internal server error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			HandleError(context.Background(), rec, tt.err, mappings)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantBody, decodeError(t, rec))
		})
	}
}

func TestHandleError_DoesNotLeakInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()

	HandleError(context.Background(), rec, errors.New("pq: password authentication failed"), nil)

	assert.NotContains(t, rec.Body.String(), "password")
}

func TestErrorJSON_OmitsEmptyFields(t *testing.T) {
	rec := httptest.NewRecorder()

	Error(rec, http.StatusBadRequest, "No JSON data provided")

	assert.JSONEq(t, `{"error":"No JSON data provided"}`, rec.Body.String())
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	Text(w, http.StatusOK, "OK")
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimitMiddleware(0.5, 2)(http.HandlerFunc(okHandler))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/incidents", nil))
		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/incidents", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, "Too many requests", decodeError(t, rec).Error)
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	handler := RateLimitMiddleware(0, 0)(http.HandlerFunc(okHandler))

	for i := 0; i < 100; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/incidents", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		limit float64
		want  int
	}{
		{limit: 100, want: 1},
		{limit: 1, want: 1},
		{limit: 0.5, want: 2},
		{limit: 0.3, want: 4},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, retryAfterSeconds(tt.limit), "limit %v", tt.limit)
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware([]string{"https://status.example.com"})(http.HandlerFunc(okHandler))

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/incidents", nil)
		req.Header.Set("Origin", "https://status.example.com")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://status.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	})

	t.Run("foreign origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/incidents", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/incidents/1", nil)
		req.Header.Set("Origin", "https://status.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("wildcard", func(t *testing.T) {
		wildcard := CORSMiddleware([]string{"*"})(http.HandlerFunc(okHandler))
		req := httptest.NewRequest(http.MethodGet, "/incidents", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()

		wildcard.ServeHTTP(rec, req)

		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRequestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLoggerMiddleware(logger, "/healthz"))
	r.Get("/healthz", okHandler)
	r.Get("/incidents", func(w http.ResponseWriter, r *http.Request) {
		ctxlog.FromContext(r.Context()).Info("listing")
		JSON(w, http.StatusOK, map[string]int{"total": 0})
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, buf.String(), "probe requests are not logged")

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/incidents?status=Open", nil))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var handlerLine, accessLine map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &handlerLine))
	require.NoError(t, json.Unmarshal(lines[1], &accessLine))

	assert.Equal(t, "listing", handlerLine["msg"])
	assert.NotEmpty(t, handlerLine["request_id"])
	assert.Equal(t, handlerLine["request_id"], accessLine["request_id"])

	assert.Equal(t, "http request", accessLine["msg"])
	assert.Equal(t, "GET", accessLine["method"])
	assert.Equal(t, "/incidents", accessLine["path"])
	assert.Equal(t, "status=Open", accessLine["query"])
	assert.EqualValues(t, 200, accessLine["status"])
}

func TestMetricsMiddleware_PassesThrough(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/incidents/{id}", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/incidents/7", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
