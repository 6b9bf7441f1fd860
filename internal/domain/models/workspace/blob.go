package workspace

import (
	"strings"
	"time"
)

// Blob describes an object in the content store. The store has no notion
// of hierarchy: a folder is either a common prefix or a zero-byte marker
// whose key ends with "/".
type Blob struct {
	Pathname    string    `json:"pathname"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	URL         string    `json:"url"`
	DownloadURL string    `json:"downloadUrl"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// IsFolderMarker reports whether the object is a folder marker.
func (b *Blob) IsFolderMarker() bool {
	return strings.HasSuffix(b.Pathname, "/")
}

// BlobPage is one page of a prefix listing. NextCursor is empty on the last page.
type BlobPage struct {
	Blobs      []Blob
	NextCursor string
}
