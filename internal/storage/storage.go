// Package storage persists media bytes. The MinIO store is the production
// backend; FileStore keeps development and tests working without an object
// storage service.
package storage

import "context"

// BlobStore reads and writes media bytes keyed by object key. The bucket is
// fixed per store instance; Media rows record it alongside the key.
type BlobStore interface {
	Write(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Bucket() string
}
