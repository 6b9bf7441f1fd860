package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filespace/internal/auth"
	"filespace/internal/httputil"
)

const testSecret = "middleware-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// echoUser writes the resolved user id
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(httputil.GetUserID(r)))
})

func decodeKind(t *testing.T, body []byte) string {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &resp))
	kind, _ := resp["kind"].(string)
	return kind
}

func TestAuthMiddleware(t *testing.T) {
	verifier, err := auth.NewHMACVerifier(testSecret, discardLogger())
	require.NoError(t, err)
	h := AuthMiddleware(verifier, discardLogger())(echoUser)

	valid, err := auth.SignHMAC(testSecret, "user-1", time.Minute)
	require.NoError(t, err)
	forged, err := auth.SignHMAC("other-secret", "user-1", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		method     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid token", header: "Bearer " + valid, wantStatus: http.StatusOK, wantBody: "user-1"},
		{name: "lowercase scheme", header: "bearer " + valid, wantStatus: http.StatusOK, wantBody: "user-1"},
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "forged token", header: "Bearer " + forged, wantStatus: http.StatusUnauthorized},
		{name: "preflight passes", method: http.MethodOptions, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req := httptest.NewRequest(method, "/files", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "unauthorized", decodeKind(t, rec.Body.Bytes()))
			} else {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal", decodeKind(t, rec.Body.Bytes()))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var seen string
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = httputil.GetRequestID(r)
		w.WriteHeader(http.StatusNotFound)
	}))

	t.Run("generates id", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "WARN", line["level"])
		assert.Equal(t, float64(http.StatusNotFound), line["status"])
		assert.Equal(t, "/files", line["path"])
	})

	t.Run("reuses client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/files", nil)
		req.Header.Set(RequestIDHeader, "client-req-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "client-req-1", seen)
		assert.Equal(t, "client-req-1", rec.Header().Get(RequestIDHeader))
	})
}

type observed struct {
	route  string
	method string
	status int
}

type fakeHTTPMetrics struct {
	mu       sync.Mutex
	started  int
	observed []observed
}

func (f *fakeHTTPMetrics) RequestStarted() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
}

func (f *fakeHTTPMetrics) ObserveRequest(route, method string, status int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observed = append(f.observed, observed{route: route, method: method, status: status})
}

func TestMetrics_UsesMatchedPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	m := &fakeHTTPMetrics{}
	h := Metrics(m)(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/documents/abc", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Len(t, m.observed, 2)
	assert.Equal(t, 2, m.started)
	assert.Equal(t, observed{route: "GET /documents/{id}", method: "GET", status: http.StatusOK}, m.observed[0])
	assert.Equal(t, "unmatched", m.observed[1].route)
	assert.Equal(t, http.StatusNotFound, m.observed[1].status)
}

func TestMetrics_NilIsPassThrough(t *testing.T) {
	h := Metrics(nil)(echoUser)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httputil.WithUserID(httptest.NewRequest(http.MethodGet, "/", nil), "u"))
	assert.Equal(t, "u", rec.Body.String())
}

func TestRateLimit_PerUser(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 2})
	h := RateLimit(limiter)(echoUser)

	do := func(user string) int {
		req := httputil.WithUserID(httptest.NewRequest(http.MethodGet, "/files", nil), user)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("alice"))
	assert.Equal(t, http.StatusOK, do("alice"))
	assert.Equal(t, http.StatusTooManyRequests, do("alice"))

	// Another user has an independent budget
	assert.Equal(t, http.StatusOK, do("bob"))
	assert.Equal(t, 2, limiter.Len())
}

func TestRateLimiter_EvictsIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 10, Burst: 10, IdleTTL: time.Minute})
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("alice"))
	now = now.Add(30 * time.Second)
	assert.True(t, limiter.Allow("bob"))
	require.Equal(t, 2, limiter.Len())

	now = now.Add(45 * time.Second)
	assert.True(t, limiter.Allow("bob"))
	assert.Equal(t, 1, limiter.Len(), "alice idle for 75s is evicted")
}
