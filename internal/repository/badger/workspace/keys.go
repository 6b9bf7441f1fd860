package workspace

import (
	"filespace/internal/domain/models/workspace"
)

// Key namespaces:
//
//	file:<ownerId>:<EncodeID(pathname)>    File record (JSON)
//	folder:<ownerId>:<EncodeID(pathname)>  Folder record (JSON)
//
// Owner ids never contain ':' and encoded ids are URL-safe base64, so a
// per-owner prefix scan never bleeds into another owner.
const (
	prefixFile   = "file:"
	prefixFolder = "folder:"
)

func keyFile(ownerID, pathname string) []byte {
	return []byte(prefixFile + ownerID + ":" + workspace.EncodeID(pathname))
}

func keyFilePrefix(ownerID string) []byte {
	return []byte(prefixFile + ownerID + ":")
}

func keyFolder(ownerID, pathname string) []byte {
	return []byte(prefixFolder + ownerID + ":" + workspace.EncodeID(pathname))
}

func keyFolderPrefix(ownerID string) []byte {
	return []byte(prefixFolder + ownerID + ":")
}
