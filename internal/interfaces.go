package internal

import (
	"context"
	"io"
	"time"
)

// ObjectInfo is what HeadObject tells us about a stored object.
type ObjectInfo struct {
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

type ObjectStore interface {
	Upload(ctx context.Context, bucket, key string, data io.Reader, contentType string) error
	// Head returns ErrObjectNotFound when the key does not exist. An empty
	// region uses the client's own.
	Head(ctx context.Context, region, bucket, key string) (*ObjectInfo, error)
}

type ReportArchiver interface {
	Archive(ctx context.Context, report *RunReport) (string, error)
}
