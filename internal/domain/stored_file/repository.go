package stored_file

import (
	"context"
	"time"
)

type Repository interface {
	CreateStoredFile(ctx context.Context, req *StoredFile) (*StoredFile, error)
	FetchStoredFile(ctx context.Context, id ID) (*StoredFile, error)
	FetchStoredFiles(ctx context.Context, ids []ID) (map[ID]*StoredFile, error)
	FetchOrphanedStoredFiles(ctx context.Context, olderThan time.Time, limit int) (StoredFiles, error)
	DeleteStoredFile(ctx context.Context, id ID) (bool, error)
}
