package httputil

import (
	"encoding/json"
	"net/http"
)

// RespondJSON writes a JSON response with the given status code.
// It handles encoding errors safely by marshaling first, preventing
// partial responses if encoding fails after headers are sent.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		// Encoding failed - return 500 instead
		RespondError(w, http.StatusInternalServerError, "internal", "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// ErrorResponse is the body of every error response. Kind is the
// machine-readable error class; Extra fields are inlined at top level.
type ErrorResponse struct {
	Error string                 `json:"error"`
	Kind  string                 `json:"kind"`
	Extra map[string]interface{} `json:"-"`
}

// MarshalJSON implements custom JSON marshaling to include Extra fields at top level
func (e ErrorResponse) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"error": e.Error,
		"kind":  e.Kind,
	}
	for k, v := range e.Extra {
		m[k] = v
	}
	return json.Marshal(m)
}

// RespondError writes an error response
func RespondError(w http.ResponseWriter, status int, kind, message string) {
	RespondErrorWithExtras(w, status, kind, message, nil)
}

// RespondErrorWithExtras writes an error response with additional fields
func RespondErrorWithExtras(w http.ResponseWriter, status int, kind, message string, extras map[string]interface{}) {
	payload, err := json.Marshal(ErrorResponse{Error: message, Kind: kind, Extra: extras})
	if err != nil {
		// Fallback to plain text if JSON encoding fails
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}
