package workspace

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"filespace/internal/config"
	"filespace/internal/domain"
	models "filespace/internal/domain/models/workspace"
)

// Persisted layout: every object of a user lives under "uploads/{ownerId}/",
// and the reserved default folder is "my-documents/" inside it.
const (
	NamespaceRoot     = models.NamespaceRoot
	DefaultFolderName = "my-documents"
	DefaultFolderPath = DefaultFolderName + "/"

	// FolderMarkerContentType is stored on zero-byte folder marker objects
	FolderMarkerContentType = "application/x-directory"
)

var (
	unsafeRun = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	dashRun   = regexp.MustCompile(`-{2,}`)
	dashDot   = regexp.MustCompile(`-*\.-*`)
)

// SanitizeSegment makes a single path segment safe: runs of characters
// outside [A-Za-z0-9._-] become "-", repeated dashes collapse, dashes next to
// a dot are dropped, and leading or trailing dashes are trimmed. Case is
// preserved. Returns "" when nothing usable survives (including "." and
// ".."); callers treat that as invalid.
//
// Examples:
//   - SanitizeSegment("Q1 report (final).txt") → "Q1-report-final.txt"
//   - SanitizeSegment("a/b") → "a-b"
//   - SanitizeSegment("!!!") → ""
func SanitizeSegment(s string) string {
	s = strings.TrimSpace(s)
	s = unsafeRun.ReplaceAllString(s, "-")
	s = dashRun.ReplaceAllString(s, "-")
	s = dashDot.ReplaceAllString(s, ".")
	s = strings.Trim(s, "-")
	if strings.Trim(s, ".") == "" {
		return ""
	}
	return s
}

// JoinPath joins the non-empty parts with a single "/" and strips any
// trailing slash from the result.
func JoinPath(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}

// EnsureTrailingSlash appends "/" unless already present. "" stays "" (the
// namespace root).
func EnsureTrailingSlash(p string) string {
	if p == "" || strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// EncodeID turns a pathname into a storage-key-safe identifier. The encoding
// is reversible, so a record key can be recomputed from its pathname.
func EncodeID(pathname string) string {
	return models.EncodeID(pathname)
}

// DecodeID reverses EncodeID.
func DecodeID(id string) (string, error) {
	pathname, err := models.DecodeID(id)
	if err != nil || pathname == "" {
		return "", &domain.ValidationError{Message: fmt.Sprintf("invalid id %q", id)}
	}
	return pathname, nil
}

// NamespacePrefix returns "uploads/{ownerId}/".
func NamespacePrefix(ownerID string) (string, error) {
	if ownerID == "" || SanitizeSegment(ownerID) != ownerID {
		return "", &domain.UnauthorizedError{Message: "invalid caller identity"}
	}
	return NamespaceRoot + "/" + ownerID + "/", nil
}

// IsFolderPath reports whether p uses the folder (trailing slash) form.
func IsFolderPath(p string) bool {
	return strings.HasSuffix(p, "/")
}

// ParentPath returns the parent folder of a relative path, with trailing
// slash, or "" for items at the namespace root.
//
// Examples:
//   - ParentPath("a/b/c.txt") → "a/b/"
//   - ParentPath("a/b/") → "a/"
//   - ParentPath("a.txt") → ""
func ParentPath(rel string) string {
	trimmed := strings.TrimSuffix(rel, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return ""
	}
	return trimmed[:idx+1]
}

// LeafName returns the last segment of a relative path without a trailing slash.
func LeafName(rel string) string {
	trimmed := strings.TrimSuffix(rel, "/")
	return trimmed[strings.LastIndex(trimmed, "/")+1:]
}

// SplitExt splits a name into base and extension (with the dot). Dot-files
// such as ".env" have no extension.
func SplitExt(name string) (string, string) {
	ext := path.Ext(name)
	if ext == name || ext == "." {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

// CheckScope verifies that pathname lies inside the caller's namespace and
// that every segment is already in sanitized form. It returns the path
// relative to the namespace. Nothing is read from either store.
func CheckScope(ownerID, pathname string) (string, error) {
	prefix, err := NamespacePrefix(ownerID)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(pathname, prefix) {
		return "", &domain.ScopeViolationError{Pathname: pathname}
	}
	if len(pathname) > config.MaxPathLength {
		return "", &domain.ValidationError{Message: "pathname is too long"}
	}

	rel := strings.TrimPrefix(pathname, prefix)
	if rel == "" {
		return "", &domain.ValidationError{Message: "pathname must name a file or folder"}
	}
	if err := validateRelative(rel); err != nil {
		return "", err
	}
	return rel, nil
}

// NormalizeParentPath validates a client-supplied parent folder path
// (relative, with or without surrounding slashes) and returns it in
// canonical folder form. "" stays "".
func NormalizeParentPath(parent string) (string, error) {
	parent = strings.Trim(strings.TrimSpace(parent), "/")
	if parent == "" {
		return "", nil
	}
	rel := parent + "/"
	if err := validateRelative(rel); err != nil {
		return "", err
	}
	return rel, nil
}

// validateRelative rejects empty segments, unsafe characters, and dot segments.
func validateRelative(rel string) error {
	for _, seg := range strings.Split(strings.TrimSuffix(rel, "/"), "/") {
		if seg == "" || SanitizeSegment(seg) != seg {
			return &domain.ValidationError{Message: fmt.Sprintf("invalid path segment %q", seg)}
		}
	}
	return nil
}

// sanitizeName sanitizes a requested display name and enforces the length limit.
func sanitizeName(name string) (string, error) {
	clean := SanitizeSegment(name)
	if clean == "" {
		return "", &domain.ValidationError{Message: "name is empty or contains no usable characters"}
	}
	if len(clean) > config.MaxNameLength {
		return "", &domain.ValidationError{
			Message: fmt.Sprintf("name exceeds %d characters", config.MaxNameLength),
		}
	}
	return clean, nil
}
