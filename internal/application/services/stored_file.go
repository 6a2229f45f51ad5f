package services

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"lego-filestore/internal/application/ports"
	"lego-filestore/internal/domain/storage"
	domain "lego-filestore/internal/domain/stored_file"
	"lego-filestore/internal/infrastructure/mq"
)

type StoredFileService struct {
	gateway        ports.StorageGateway
	storedFileRepo domain.Repository
	publisher      ports.EventPublisher
	logger         *zap.Logger
	mCounter       *prometheus.CounterVec
}

func NewStoredFileService(
	gateway ports.StorageGateway,
	storedFileRepo domain.Repository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
	mCounter *prometheus.CounterVec,
) ports.StoredFileService {
	return &StoredFileService{
		gateway:        gateway,
		storedFileRepo: storedFileRepo,
		publisher:      publisher,
		logger:         logger,
		mCounter:       mCounter,
	}
}

// Upload stores the object and records it. If the record cannot be written
// the object is removed again so neither side outlives the other.
func (s *StoredFileService) Upload(
	ctx context.Context,
	in storage.UploadFile,
	customName, targetPath string,
) (*domain.StoredFile, error) {
	obj, err := s.gateway.Put(ctx, in, customName, targetPath)
	if err != nil {
		return nil, err
	}

	sf, err := s.storedFileRepo.CreateStoredFile(ctx, &domain.StoredFile{
		StorageKey:   obj.Key,
		URL:          obj.URL,
		OriginalName: obj.OriginalName,
		SizeBytes:    obj.Size,
		MimeType:     obj.MimeType,
	})
	if err != nil {
		if delErr := s.gateway.Delete(context.WithoutCancel(ctx), obj.Key); delErr != nil {
			s.logger.Error("rollback of stored object failed",
				zap.String("key", obj.Key),
				zap.Error(delErr),
			)
		}
		return nil, err
	}

	e := mq.NewEvent(mq.ActionFileUploaded)
	e.FileID = int64(sf.ID)
	e.StorageKey = sf.StorageKey
	s.publisher.Publish(e)

	count(s.mCounter, "stored_files_created_total")

	return sf, nil
}

func (s *StoredFileService) FindStoredFile(ctx context.Context, id domain.ID) (*domain.StoredFile, error) {
	sf, err := s.storedFileRepo.FetchStoredFile(ctx, id)
	if err != nil {
		return nil, err
	}
	if sf == nil {
		return nil, domain.ErrStoredFileNotFound
	}

	return sf, nil
}

// DeleteStoredFile removes the object first and the record second. An object
// that is already gone does not block removing the record.
func (s *StoredFileService) DeleteStoredFile(ctx context.Context, id domain.ID) error {
	sf, err := s.FindStoredFile(ctx, id)
	if err != nil {
		return err
	}

	if err = s.gateway.Delete(ctx, sf.StorageKey); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
		return err
	}

	if _, err = s.storedFileRepo.DeleteStoredFile(ctx, id); err != nil {
		return err
	}

	e := mq.NewEvent(mq.ActionFileDeleted)
	e.FileID = int64(sf.ID)
	e.StorageKey = sf.StorageKey
	s.publisher.Publish(e)

	count(s.mCounter, "stored_files_deleted_total")

	return nil
}
