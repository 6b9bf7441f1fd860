package config

const (
	// MaxNameLength is the maximum length for a single file or folder name
	// after sanitization. Object stores cap full keys at 1024 bytes, so a
	// name is kept well below that to leave room for nesting.
	MaxNameLength = 255

	// MaxPathLength is the maximum length of a full pathname (object key).
	// 1024 bytes is the S3 key limit.
	MaxPathLength = 1024

	// MaxUploadBytes bounds a single upload or document replace.
	MaxUploadBytes = 50 << 20

	// MaxCascadeConcurrency caps the per-operation fan-out regardless of config.
	MaxCascadeConcurrency = 64

	// ListPageSize is the page size requested from the blob store when
	// enumerating a prefix. S3 returns at most 1000 keys per page.
	ListPageSize = 1000
)
