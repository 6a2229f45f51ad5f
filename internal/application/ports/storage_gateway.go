package ports

import (
	"context"

	"lego-filestore/internal/domain/storage"
)

type StorageGateway interface {
	Upload(ctx context.Context, in storage.UploadFile, customName, targetPath string) (string, error)
	Put(ctx context.Context, in storage.UploadFile, customName, targetPath string) (*storage.UploadedObject, error)
	Get(ctx context.Context, path string) (*storage.ObjectInfo, error)
	GetContent(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	List(ctx context.Context, prefix string, limit int) (storage.Objects, error)
	Copy(ctx context.Context, src, dst string) error
	Move(ctx context.Context, src, dst string) error

	BucketExists(ctx context.Context) (bool, error)
	CreateBucket(ctx context.Context) error
	SetBucketPublic(ctx context.Context) error
	EnsureBucket(ctx context.Context) error
	GetStats(ctx context.Context) (*storage.Stats, error)

	PublicURL(key string) string
	KeyFromURL(rawURL string) (string, bool)
}
