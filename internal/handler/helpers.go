package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"filespace/internal/domain"
	"filespace/internal/httputil"
)

// backingStoreMessage is all a client learns about a store failure; the
// step, pathname and cause stay in the log.
const backingStoreMessage = "storage operation failed, try again"

// handleError converts domain errors to HTTP responses. Typed domain errors
// carry their own status and kind; anything else is a 500 whose detail is
// logged but not returned.
func handleError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if errors.Is(err, httputil.ErrBodyTooLarge) {
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, domain.KindValidation, err.Error())
		return
	}

	var storeErr *domain.BackingStoreError
	if errors.As(err, &storeErr) {
		logger.Error("backing store failure",
			"store", storeErr.Store,
			"step", storeErr.Step,
			"pathname", storeErr.Pathname,
			"op_id", storeErr.OpID,
			"request_id", httputil.GetRequestID(r),
			"error", storeErr.Err,
		)
		extras := map[string]interface{}{"retryable": storeErr.Retryable}
		if storeErr.OpID != "" {
			extras["opId"] = storeErr.OpID
		}
		httputil.RespondErrorWithExtras(w, storeErr.StatusCode(), storeErr.Kind(), backingStoreMessage, extras)
		return
	}

	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Kind(), httpErr.Error())
		return
	}

	logger.Error("unhandled error",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", httputil.GetRequestID(r),
		"error", err,
	)
	httputil.RespondError(w, http.StatusInternalServerError, domain.KindInternal, "internal server error")
}

// getUserID returns the caller resolved by the auth middleware, writing a
// 401 when there is none.
func getUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, domain.KindUnauthorized, "user not authenticated")
		return "", false
	}
	return userID, true
}

// parseBody decodes a JSON body, writing a 400 on failure
func parseBody(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dest interface{}) bool {
	if err := httputil.ParseJSON(w, r, dest); err != nil {
		if errors.Is(err, httputil.ErrBodyTooLarge) {
			handleError(w, r, logger, err)
			return false
		}
		httputil.RespondError(w, http.StatusBadRequest, domain.KindValidation, "invalid request body")
		return false
	}
	return true
}
