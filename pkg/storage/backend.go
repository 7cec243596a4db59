package storage

import "context"

// BlobStore is the durable report sink. One Put per invocation; no retry
// semantics are expected from implementations.
type BlobStore interface {
	// Put writes data under key. contentType may be empty.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	// Location renders the address a reader would use for key, for inclusion
	// in the notification message.
	Location(key string) string
}
