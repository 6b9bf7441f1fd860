package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobMetrics_ObserveOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newBlobMetrics(reg)

	m.ObserveOperation("copy", 20*time.Millisecond, nil)
	m.ObserveOperation("copy", 30*time.Millisecond, errors.New("boom"))
	m.ObserveOperation("delete", time.Millisecond, nil)
	m.RecordBytes("put", 512)
	m.RecordBytes("put", 512)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("copy", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("copy", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues("copy")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues("delete")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(m.bytesTransferred.WithLabelValues("put")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.operationDuration))
}

func TestHTTPMetrics_ObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newHTTPMetrics(reg)

	m.RequestStarted()
	m.RequestStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.inFlight))

	m.ObserveRequest("/files", http.MethodGet, http.StatusOK, 5*time.Millisecond)
	m.ObserveRequest("/files/folder", http.MethodPost, http.StatusConflict, 5*time.Millisecond)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/files", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/files/folder", "POST", "409")))
}

func TestHandler(t *testing.T) {
	InitRegistry()
	require.True(t, IsEnabled())

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
