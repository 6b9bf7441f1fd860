package workspace

import (
	"time"
)

type Folder struct {
	OwnerID      string    `json:"ownerId"`
	Pathname     string    `json:"pathname"`     // always ends with "/"
	RelativePath string    `json:"relativePath"` // "reports/"
	ParentPath   string    `json:"parentPath"`
	Name         string    `json:"name"`
	IsDefault    bool      `json:"isDefault"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
