package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
	Kind() string
}

// Error kinds surfaced to clients as the machine-readable "kind" field
const (
	KindValidation     = "validation"
	KindScopeViolation = "scope_violation"
	KindNotFound       = "not_found"
	KindProtected      = "protected"
	KindConflict       = "conflict"
	KindUnauthorized   = "unauthorized"
	KindBackingStore   = "backing_store"
	KindInternal       = "internal"
)

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("already exists")
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrScopeViolation = errors.New("outside caller namespace")
	ErrProtected      = errors.New("protected resource")
	ErrBackingStore   = errors.New("backing store failure")
)

type (
	// NotFoundError indicates an object or record is absent or owned by someone else
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates a bad, empty or unsafe name
	ValidationError struct {
		Message string
	}

	// ScopeViolationError indicates a pathname outside the caller's namespace prefix
	ScopeViolationError struct {
		Pathname string
	}

	// ProtectedResourceError indicates an attempt to rename or delete the default folder
	ProtectedResourceError struct {
		Pathname string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string   { return e.Message }
func (e *ValidationError) Error() string { return e.Message }
func (e *UnauthorizedError) Error() string {
	return e.Message
}
func (e *ScopeViolationError) Error() string {
	return fmt.Sprintf("pathname %q is outside the caller namespace", e.Pathname)
}
func (e *ProtectedResourceError) Error() string {
	return fmt.Sprintf("%q is the default folder and cannot be renamed or deleted", e.Pathname)
}

func (e *NotFoundError) StatusCode() int          { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int        { return http.StatusBadRequest }
func (e *ScopeViolationError) StatusCode() int    { return http.StatusBadRequest }
func (e *ProtectedResourceError) StatusCode() int { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int      { return http.StatusUnauthorized }

func (e *NotFoundError) Kind() string          { return KindNotFound }
func (e *ValidationError) Kind() string        { return KindValidation }
func (e *ScopeViolationError) Kind() string    { return KindScopeViolation }
func (e *ProtectedResourceError) Kind() string { return KindProtected }
func (e *UnauthorizedError) Kind() string      { return KindUnauthorized }

func (e *NotFoundError) Is(target error) bool          { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool        { return target == ErrValidation }
func (e *ScopeViolationError) Is(target error) bool    { return target == ErrScopeViolation }
func (e *ProtectedResourceError) Is(target error) bool { return target == ErrProtected }
func (e *UnauthorizedError) Is(target error) bool      { return target == ErrUnauthorized }

// ConflictError represents a pathname that is already taken
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // file or folder
	Pathname     string // Pathname of the existing resource
}

func (e *ConflictError) Error() string        { return e.Message }
func (e *ConflictError) StatusCode() int      { return http.StatusConflict }
func (e *ConflictError) Kind() string         { return KindConflict }
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// Backing stores named in BackingStoreError
const (
	StoreBlob     = "blob"
	StoreMetadata = "metadata"
)

// BackingStoreError wraps a content or metadata store failure with the step
// that failed, so an interrupted cascade can be inspected and re-issued.
type BackingStoreError struct {
	Store     string // StoreBlob or StoreMetadata
	Step      string // e.g. "copy", "delete", "list", "commit"
	Pathname  string
	OpID      string // cascade operation id, empty for single-object operations
	Retryable bool
	Err       error
}

func (e *BackingStoreError) Error() string {
	msg := fmt.Sprintf("%s store %s failed", e.Store, e.Step)
	if e.Pathname != "" {
		msg += fmt.Sprintf(" for %q", e.Pathname)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BackingStoreError) Unwrap() error        { return e.Err }
func (e *BackingStoreError) StatusCode() int      { return http.StatusInternalServerError }
func (e *BackingStoreError) Kind() string         { return KindBackingStore }
func (e *BackingStoreError) Is(target error) bool { return target == ErrBackingStore }

// NewBlobError wraps a blob store failure.
func NewBlobError(step, pathname string, err error) *BackingStoreError {
	return &BackingStoreError{Store: StoreBlob, Step: step, Pathname: pathname, Retryable: true, Err: err}
}

// NewMetadataError wraps a metadata store failure.
func NewMetadataError(step, pathname string, err error) *BackingStoreError {
	return &BackingStoreError{Store: StoreMetadata, Step: step, Pathname: pathname, Retryable: true, Err: err}
}
