package ports

import (
	"context"

	domain "lego-filestore/internal/domain/file_association"
	"lego-filestore/internal/domain/storage"
	"lego-filestore/internal/domain/stored_file"
)

type FileAssociationService interface {
	Associate(ctx context.Context, fileID stored_file.ID, owner domain.OwnerRef, order int, opts domain.AssociateOptions) (*domain.FileAssociation, error)
	UploadForEntity(ctx context.Context, owner domain.OwnerRef, in storage.UploadFile, customName, targetPath string) (*domain.Attachment, error)
	ListForEntity(ctx context.Context, owner domain.OwnerRef) (domain.Attachments, error)
	ListAssociations(ctx context.Context, owner domain.OwnerRef) (domain.FileAssociations, error)
	ReplaceAllForEntity(ctx context.Context, owner domain.OwnerRef, fileIDs []stored_file.ID) (domain.FileAssociations, error)
	Reorder(ctx context.Context, owner domain.OwnerRef, associationIDs []domain.ID) (domain.FileAssociations, error)
	SetPrimary(ctx context.Context, associationID domain.ID) error
	DeleteAssociation(ctx context.Context, associationID domain.ID) error
	DeleteAssociationsAndFiles(ctx context.Context, owner domain.OwnerRef) error
}
