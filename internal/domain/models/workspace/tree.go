package workspace

import "time"

// ItemKind distinguishes files from folders in a tree listing
type ItemKind string

const (
	ItemKindFile   ItemKind = "file"
	ItemKindFolder ItemKind = "folder"
)

// TreeItem is one entry of the flat, merged tree view. Derived folders are
// synthesized from object prefixes and have no metadata record behind them.
type TreeItem struct {
	Kind         ItemKind   `json:"kind"`
	Pathname     string     `json:"pathname"`
	RelativePath string     `json:"relativePath"`
	ParentPath   string     `json:"parentPath"`
	Name         string     `json:"name"`
	IsDefault    bool       `json:"isDefault,omitempty"`
	Derived      bool       `json:"derived,omitempty"`
	DocType      *string    `json:"docType,omitempty"`
	ContentType  string     `json:"contentType,omitempty"`
	Size         int64      `json:"size"`
	URL          string     `json:"url,omitempty"`
	DownloadURL  string     `json:"downloadUrl,omitempty"`
	UploadedAt   *time.Time `json:"uploadedAt,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// RepairReport summarizes what a repair pass changed.
type RepairReport struct {
	FileRecordsCreated   []string `json:"fileRecordsCreated"`
	FileRecordsRemoved   []string `json:"fileRecordsRemoved"`
	FolderRecordsCreated []string `json:"folderRecordsCreated"`
}
