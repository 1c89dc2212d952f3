package domain

import (
	"context"
	"io"
)

// BlobWriter stores archive objects, such as JSONL batches of observations,
// under a slash-separated key.
type BlobWriter interface {
	// Put stores a small object in one request.
	Put(ctx context.Context, key string, data io.Reader, contentType string) error
	// PutMultipart streams a large object in parts of at least partSize bytes.
	PutMultipart(ctx context.Context, key string, data io.Reader, partSize int64) error
}
