package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorWithExtras(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondErrorWithExtras(rec, http.StatusInternalServerError, "backing_store", "copy failed",
		map[string]interface{}{"retryable": true, "opId": "abc"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "copy failed", body["error"])
	assert.Equal(t, "backing_store", body["kind"])
	assert.Equal(t, true, body["retryable"])
	assert.Equal(t, "abc", body["opId"])
}

func TestParseJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		want    string
		wantErr error
	}{
		{name: "valid", body: `{"name":"reports"}`, want: "reports"},
		{name: "unknown field", body: `{"name":"a","extra":1}`, wantErr: nil},
		{name: "malformed", body: `{"name":`},
		{name: "too large", body: `{"name":"` + strings.Repeat("a", maxJSONBody) + `"}`, wantErr: ErrBodyTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var got payload
			err := ParseJSON(rec, req, &got)
			if tt.want != "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got.Name)
				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestReadBody(t *testing.T) {
	rec := httptest.NewRecorder()
	data, err := ReadBody(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hello")), 10)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = ReadBody(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hello world!")), 5)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestContextValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetUserID(req))

	req = WithUserID(req, "user-1")
	req = WithRequestID(req, "req-1")
	assert.Equal(t, "user-1", GetUserID(req))
	assert.Equal(t, "req-1", GetRequestID(req))
}
