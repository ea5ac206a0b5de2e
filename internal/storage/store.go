// Package storage holds proof documents and downloaded certification files.
// Blobs are content-addressed by a caller-chosen key; attachment services
// treat Put + status update as a unit, so a failed Put must leave no status
// mutation behind.
package storage

import (
	"context"
	"time"
)

// Blob is one stored document.
type Blob struct {
	Key         string
	ContentType string
	Data        []byte
	UploadedAt  time.Time
}

// BlobStore persists proof and certification documents.
type BlobStore interface {
	Put(ctx context.Context, blob Blob) error
	Get(ctx context.Context, key string) (*Blob, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Purge removes a blob. Missing keys are not an error: purge is
	// best-effort cleanup after terminal fax failures.
	Purge(ctx context.Context, key string) error
}
