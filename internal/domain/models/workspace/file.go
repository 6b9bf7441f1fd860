package workspace

import (
	"time"
)

// File is the metadata record of a logical file. Its key in the metadata
// store is the encoded pathname, so the record can be located from the
// pathname alone.
type File struct {
	OwnerID      string    `json:"ownerId"`
	Pathname     string    `json:"pathname"`     // "uploads/{owner}/reports/q1.txt"
	RelativePath string    `json:"relativePath"` // "reports/q1.txt"
	ParentPath   string    `json:"parentPath"`   // "reports/", "" at the namespace root
	Name         string    `json:"name"`         // "q1.txt"
	DocType      *string   `json:"docType,omitempty"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	URL          string    `json:"url"`
	DownloadURL  string    `json:"downloadUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
