package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"lego-filestore/internal/application/ports"
	domain "lego-filestore/internal/domain/file_association"
	"lego-filestore/internal/domain/storage"
	"lego-filestore/internal/domain/stored_file"
	"lego-filestore/internal/infrastructure/mq"
)

type FileAssociationService struct {
	assocRepo      domain.Repository
	storedFileRepo stored_file.Repository
	storedFiles    ports.StoredFileService
	gateway        ports.StorageGateway
	publisher      ports.EventPublisher
	logger         *zap.Logger
	mCounter       *prometheus.CounterVec
}

func NewFileAssociationService(
	assocRepo domain.Repository,
	storedFileRepo stored_file.Repository,
	storedFiles ports.StoredFileService,
	gateway ports.StorageGateway,
	publisher ports.EventPublisher,
	logger *zap.Logger,
	mCounter *prometheus.CounterVec,
) ports.FileAssociationService {
	return &FileAssociationService{
		assocRepo:      assocRepo,
		storedFileRepo: storedFileRepo,
		storedFiles:    storedFiles,
		gateway:        gateway,
		publisher:      publisher,
		logger:         logger,
		mCounter:       mCounter,
	}
}

// Associate links an existing stored file to owner. The file id is not
// checked against stored files; a dangling link is skipped on read.
func (s *FileAssociationService) Associate(
	ctx context.Context,
	fileID stored_file.ID,
	owner domain.OwnerRef,
	order int,
	opts domain.AssociateOptions,
) (*domain.FileAssociation, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if fileID <= 0 {
		return nil, domain.ErrInvalidFileID
	}

	var out *domain.FileAssociation
	err := s.assocRepo.WithOwnerLock(ctx, owner, func(ctx context.Context, r domain.Repository) error {
		if opts.IsPrimary {
			if err := r.ClearPrimary(ctx, owner); err != nil {
				return err
			}
		}

		var err error
		out, err = r.CreateAssociation(ctx, &domain.FileAssociation{
			Owner:        owner,
			FileID:       fileID,
			DisplayOrder: order,
			IsPrimary:    opts.IsPrimary,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(mq.ActionAssociationCreated, owner, out.ID, out.FileID)
	count(s.mCounter, "associations_created_total")

	return out, nil
}

// UploadForEntity stores the file and appends it to owner's set. The first
// file an owner receives becomes its primary.
func (s *FileAssociationService) UploadForEntity(
	ctx context.Context,
	owner domain.OwnerRef,
	in storage.UploadFile,
	customName, targetPath string,
) (*domain.Attachment, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	sf, err := s.storedFiles.Upload(ctx, in, customName, targetPath)
	if err != nil {
		return nil, err
	}

	var out *domain.FileAssociation
	err = s.assocRepo.WithOwnerLock(ctx, owner, func(ctx context.Context, r domain.Repository) error {
		current, err := r.FetchAssociations(ctx, owner)
		if err != nil {
			return err
		}

		out, err = r.CreateAssociation(ctx, &domain.FileAssociation{
			Owner:        owner,
			FileID:       sf.ID,
			DisplayOrder: current.NextOrder(),
			IsPrimary:    current.Primary() == nil,
		})
		return err
	})
	if err != nil {
		if delErr := s.storedFiles.DeleteStoredFile(context.WithoutCancel(ctx), sf.ID); delErr != nil {
			s.logger.Error("rollback of uploaded file failed",
				zap.Int64("file_id", int64(sf.ID)),
				zap.Error(delErr),
			)
		}
		return nil, err
	}

	s.publish(mq.ActionAssociationCreated, owner, out.ID, out.FileID)
	count(s.mCounter, "associations_created_total")

	return &domain.Attachment{Association: out, File: sf}, nil
}

// ListForEntity returns owner's attachments in display order. Associations
// whose stored file is gone are left out.
func (s *FileAssociationService) ListForEntity(ctx context.Context, owner domain.OwnerRef) (domain.Attachments, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	atts, err := s.assocRepo.FetchAttachments(ctx, owner)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(atts, func(a, b *domain.Attachment) int {
		return domain.Compare(a.Association, b.Association)
	})

	out := make(domain.Attachments, 0, len(atts))
	for _, a := range atts {
		if a.File == nil {
			s.logger.Warn("skipping association with missing file",
				zap.Stringer("owner", owner),
				zap.Int64("association_id", int64(a.Association.ID)),
				zap.Int64("file_id", int64(a.Association.FileID)),
			)
			continue
		}
		out = append(out, a)
	}

	return out, nil
}

func (s *FileAssociationService) ListAssociations(ctx context.Context, owner domain.OwnerRef) (domain.FileAssociations, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	fa, err := s.assocRepo.FetchAssociations(ctx, owner)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(fa, domain.Compare)

	return fa, nil
}

// ReplaceAllForEntity swaps owner's whole set in one transaction. Position in
// fileIDs becomes the display order and position 0 the primary.
func (s *FileAssociationService) ReplaceAllForEntity(
	ctx context.Context,
	owner domain.OwnerRef,
	fileIDs []stored_file.ID,
) (domain.FileAssociations, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	for _, id := range fileIDs {
		if id <= 0 {
			return nil, domain.ErrInvalidFileID
		}
	}

	s.warnUnknownFiles(ctx, owner, fileIDs)

	reqs := make(domain.FileAssociations, 0, len(fileIDs))
	for i, id := range fileIDs {
		reqs = append(reqs, &domain.FileAssociation{
			Owner:        owner,
			FileID:       id,
			DisplayOrder: i,
			IsPrimary:    i == 0,
		})
	}

	var out domain.FileAssociations
	err := s.assocRepo.WithOwnerLock(ctx, owner, func(ctx context.Context, r domain.Repository) error {
		if _, err := r.DeleteAssociations(ctx, owner); err != nil {
			return err
		}
		if len(reqs) == 0 {
			return nil
		}

		var err error
		out, err = r.CreateAssociations(ctx, reqs)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = domain.FileAssociations{}
	}

	s.publish(mq.ActionAssociationsReplaced, owner, 0, 0)

	return out, nil
}

// Reorder assigns display order by position. associationIDs must name every
// association of owner exactly once.
func (s *FileAssociationService) Reorder(
	ctx context.Context,
	owner domain.OwnerRef,
	associationIDs []domain.ID,
) (domain.FileAssociations, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	var out domain.FileAssociations
	err := s.assocRepo.WithOwnerLock(ctx, owner, func(ctx context.Context, r domain.Repository) error {
		current, err := r.FetchAssociations(ctx, owner)
		if err != nil {
			return err
		}
		if err = sameSet(current, associationIDs); err != nil {
			return err
		}

		for i, id := range associationIDs {
			a := current.Find(id)
			if a.DisplayOrder == i {
				continue
			}
			if err = r.UpdateDisplayOrder(ctx, id, i); err != nil {
				return err
			}
			a.DisplayOrder = i
		}

		slices.SortStableFunc(current, domain.Compare)
		out = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(mq.ActionAssociationsReordered, owner, 0, 0)

	return out, nil
}

// warnUnknownFiles logs ids that have no stored file. Such links are still
// created, like Associate does, and are skipped on read until swept.
func (s *FileAssociationService) warnUnknownFiles(ctx context.Context, owner domain.OwnerRef, fileIDs []stored_file.ID) {
	if len(fileIDs) == 0 {
		return
	}

	known, err := s.storedFileRepo.FetchStoredFiles(ctx, fileIDs)
	if err != nil {
		s.logger.Warn("stored file lookup failed", zap.Stringer("owner", owner), zap.Error(err))
		return
	}

	unknown := lo.Uniq(lo.Filter(fileIDs, func(id stored_file.ID, _ int) bool {
		_, ok := known[id]
		return !ok
	}))
	if len(unknown) > 0 {
		s.logger.Warn("linking unknown files",
			zap.Stringer("owner", owner),
			zap.Int64s("file_ids", lo.Map(unknown, func(id stored_file.ID, _ int) int64 { return int64(id) })),
		)
	}
}

func sameSet(current domain.FileAssociations, ids []domain.ID) error {
	if len(current) != len(ids) {
		return fmt.Errorf("%w: expected %d ids, got %d", domain.ErrOrderMismatch, len(current), len(ids))
	}
	seen := make(map[domain.ID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: id %d repeated", domain.ErrOrderMismatch, id)
		}
		if current.Find(id) == nil {
			return fmt.Errorf("%w: id %d does not belong to the owner", domain.ErrOrderMismatch, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// SetPrimary makes associationID the only primary of its owner. Clearing and
// setting happen under the owner lock, so concurrent calls serialize.
func (s *FileAssociationService) SetPrimary(ctx context.Context, associationID domain.ID) error {
	a, err := s.fetchAssociation(ctx, associationID)
	if err != nil {
		return err
	}

	err = s.assocRepo.WithOwnerLock(ctx, a.Owner, func(ctx context.Context, r domain.Repository) error {
		cur, err := r.FetchAssociation(ctx, associationID)
		if err != nil {
			return err
		}
		if cur == nil {
			return domain.ErrAssociationNotFound
		}
		if err = r.ClearPrimary(ctx, a.Owner); err != nil {
			return err
		}
		return r.SetPrimaryFlag(ctx, associationID, true)
	})
	if err != nil {
		return err
	}

	s.publish(mq.ActionPrimaryChanged, a.Owner, associationID, a.FileID)

	return nil
}

// DeleteAssociation unlinks one file without touching it. Deleting the
// primary promotes its successor in display order.
func (s *FileAssociationService) DeleteAssociation(ctx context.Context, associationID domain.ID) error {
	a, err := s.fetchAssociation(ctx, associationID)
	if err != nil {
		return err
	}

	var promoted *domain.FileAssociation
	err = s.assocRepo.WithOwnerLock(ctx, a.Owner, func(ctx context.Context, r domain.Repository) error {
		siblings, err := r.FetchAssociations(ctx, a.Owner)
		if err != nil {
			return err
		}
		target := siblings.Find(associationID)
		if target == nil {
			return domain.ErrAssociationNotFound
		}

		ok, err := r.DeleteAssociation(ctx, associationID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAssociationNotFound
		}

		if !target.IsPrimary {
			return nil
		}
		if promoted = siblings.Successor(target); promoted == nil {
			return nil
		}
		return r.SetPrimaryFlag(ctx, promoted.ID, true)
	})
	if err != nil {
		return err
	}

	s.publish(mq.ActionAssociationDeleted, a.Owner, a.ID, a.FileID)
	if promoted != nil {
		s.publish(mq.ActionPrimaryChanged, a.Owner, promoted.ID, promoted.FileID)
	}
	count(s.mCounter, "associations_deleted_total")

	return nil
}

// DeleteAssociationsAndFiles is the cleanup for a deleted owner. Objects are
// removed before any row so every key stays resolvable until its object is
// gone. A storage failure is logged and keeps that file's row; it never
// blocks removing the associations.
func (s *FileAssociationService) DeleteAssociationsAndFiles(ctx context.Context, owner domain.OwnerRef) error {
	if err := owner.Validate(); err != nil {
		return err
	}

	atts, err := s.assocRepo.FetchAttachments(ctx, owner)
	if err != nil {
		return err
	}

	done := make(map[stored_file.ID]struct{}, len(atts))
	for _, a := range atts {
		if a.File == nil {
			continue
		}
		if _, ok := done[a.File.ID]; ok {
			continue
		}
		done[a.File.ID] = struct{}{}

		s.deleteFile(ctx, owner, a.File)
	}

	var removed int64
	err = s.assocRepo.WithOwnerLock(ctx, owner, func(ctx context.Context, r domain.Repository) error {
		var err error
		removed, err = r.DeleteAssociations(ctx, owner)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("owner files purged",
		zap.Stringer("owner", owner),
		zap.Int64("associations", removed),
		zap.Int("files", len(done)),
	)
	s.publish(mq.ActionOwnerPurged, owner, 0, 0)

	return nil
}

func (s *FileAssociationService) deleteFile(ctx context.Context, owner domain.OwnerRef, sf *stored_file.StoredFile) {
	err := s.gateway.Delete(ctx, sf.StorageKey)
	if err != nil && !errors.Is(err, storage.ErrFileNotFound) {
		s.logger.Error("storage delete failed, keeping file record",
			zap.Stringer("owner", owner),
			zap.String("key", sf.StorageKey),
			zap.Error(err),
		)
		return
	}

	if _, err = s.storedFileRepo.DeleteStoredFile(ctx, sf.ID); err != nil {
		s.logger.Error("file record delete failed",
			zap.Int64("file_id", int64(sf.ID)),
			zap.Error(err),
		)
		return
	}

	e := mq.NewEvent(mq.ActionFileDeleted)
	e.OwnerKind = owner.Kind
	e.OwnerID = owner.ID
	e.FileID = int64(sf.ID)
	e.StorageKey = sf.StorageKey
	s.publisher.Publish(e)
}

func (s *FileAssociationService) fetchAssociation(ctx context.Context, id domain.ID) (*domain.FileAssociation, error) {
	a, err := s.assocRepo.FetchAssociation(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, domain.ErrAssociationNotFound
	}
	return a, nil
}

func (s *FileAssociationService) publish(action string, owner domain.OwnerRef, assocID domain.ID, fileID stored_file.ID) {
	e := mq.NewEvent(action)
	e.OwnerKind = owner.Kind
	e.OwnerID = owner.ID
	e.AssociationID = int64(assocID)
	e.FileID = int64(fileID)
	s.publisher.Publish(e)
}
