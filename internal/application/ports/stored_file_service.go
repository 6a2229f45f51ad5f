package ports

import (
	"context"

	"lego-filestore/internal/domain/storage"
	"lego-filestore/internal/domain/stored_file"
)

type StoredFileService interface {
	Upload(ctx context.Context, in storage.UploadFile, customName, targetPath string) (*stored_file.StoredFile, error)
	FindStoredFile(ctx context.Context, id stored_file.ID) (*stored_file.StoredFile, error)
	DeleteStoredFile(ctx context.Context, id stored_file.ID) error
}
