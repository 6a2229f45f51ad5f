package file_association

import (
	"context"
)

type Repository interface {
	CreateAssociation(ctx context.Context, req *FileAssociation) (*FileAssociation, error)
	CreateAssociations(ctx context.Context, reqs FileAssociations) (FileAssociations, error)
	FetchAssociation(ctx context.Context, id ID) (*FileAssociation, error)
	FetchAssociations(ctx context.Context, owner OwnerRef) (FileAssociations, error)
	FetchAttachments(ctx context.Context, owner OwnerRef) (Attachments, error)
	FetchDanglingAssociations(ctx context.Context, limit int) (FileAssociations, error)
	UpdateDisplayOrder(ctx context.Context, id ID, order int) error
	SetPrimaryFlag(ctx context.Context, id ID, primary bool) error
	ClearPrimary(ctx context.Context, owner OwnerRef) error
	DeleteAssociation(ctx context.Context, id ID) (bool, error)
	DeleteAssociations(ctx context.Context, owner OwnerRef) (int64, error)

	// WithOwnerLock runs fn inside one transaction that holds an exclusive
	// lock on owner; r is bound to that transaction.
	WithOwnerLock(ctx context.Context, owner OwnerRef, fn func(ctx context.Context, r Repository) error) error
}
