package workspace

import (
	"encoding/base64"
	"strings"
)

// NamespaceRoot is the top-level key segment under which every user's
// objects live: "uploads/{ownerId}/".
const NamespaceRoot = "uploads"

// RelativeTo strips the owner's namespace prefix from pathname. A pathname
// outside the namespace is returned unchanged.
func RelativeTo(ownerID, pathname string) string {
	return strings.TrimPrefix(pathname, NamespaceRoot+"/"+ownerID+"/")
}

// EncodeID turns a pathname into the record key used by the metadata store:
// URL-safe base64 without padding, reversible and collision-free.
func EncodeID(pathname string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(pathname))
}

// DecodeID reverses EncodeID.
func DecodeID(id string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
