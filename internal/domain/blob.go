package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage. Writes overwrite any existing
// object at the same path.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// BlobDeleter removes objects from storage. Deletes are idempotent.
type BlobDeleter interface {
	Delete(ctx context.Context, path string) error
}

// TradeLogStore persists daily trade logs as whole blobs, overwrite-on-write.
type TradeLogStore interface {
	Save(ctx context.Context, log TradeLog) error
	Load(ctx context.Context, date string) (TradeLog, error)
	ListDates(ctx context.Context) ([]string, error)
}
