package ports

import (
	"context"
	"io"

	"lego-filestore/internal/domain/storage"
)

// ObjectStore is a bucket-bound S3-compatible backend. Implementations return
// storage.ErrObjectNotFound / storage.ErrNoSuchBucket for missing objects and
// buckets and raw errors otherwise.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	StatObject(ctx context.Context, key string) (*storage.ObjectInfo, error)
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, key string) error
	ListObjects(ctx context.Context, prefix string, limit int) (storage.Objects, error)
	CopyObject(ctx context.Context, srcKey, dstKey string) error

	BucketExists(ctx context.Context) (bool, error)
	MakeBucket(ctx context.Context) error
	SetBucketPolicy(ctx context.Context, policy string) error
	Bucket() string
}
