package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"lego-filestore/config"
	"lego-filestore/internal/application/ports"
	"lego-filestore/internal/domain/file_association"
	"lego-filestore/internal/domain/storage"
	"lego-filestore/internal/domain/stored_file"
)

// Sweeper repairs what soft references leave behind: associations whose file
// is gone, and optionally files nothing links to anymore.
type Sweeper struct {
	assocRepo      file_association.Repository
	storedFileRepo stored_file.Repository
	associations   ports.FileAssociationService
	gateway        ports.StorageGateway
	cfg            config.Sweep
	logger         *zap.Logger
	now            func() time.Time
}

func NewSweeper(
	assocRepo file_association.Repository,
	storedFileRepo stored_file.Repository,
	associations ports.FileAssociationService,
	gateway ports.StorageGateway,
	cfg config.Sweep,
	logger *zap.Logger,
) ports.Sweeper {
	return &Sweeper{
		assocRepo:      assocRepo,
		storedFileRepo: storedFileRepo,
		associations:   associations,
		gateway:        gateway,
		cfg:            cfg,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *Sweeper) Sweep(ctx context.Context) (ports.SweepReport, error) {
	var rep ports.SweepReport

	if err := s.sweepDangling(ctx, &rep); err != nil {
		return rep, err
	}
	if s.cfg.OrphanAge > 0 {
		if err := s.sweepOrphans(ctx, &rep); err != nil {
			return rep, err
		}
	}

	s.logger.Info("sweep finished",
		zap.Int("dangling_associations", rep.DanglingAssociations),
		zap.Int("orphaned_files", rep.OrphanedFiles),
		zap.Int("failed", rep.Failed),
	)

	return rep, nil
}

// sweepDangling goes through DeleteAssociation so a dangling primary hands its
// flag to a sibling. A row that fails is tried once per sweep.
func (s *Sweeper) sweepDangling(ctx context.Context, rep *ports.SweepReport) error {
	batch := s.batchSize()
	failed := map[file_association.ID]struct{}{}
	defer func() { rep.Failed += len(failed) }()

	for {
		dangling, err := s.assocRepo.FetchDanglingAssociations(ctx, batch)
		if err != nil {
			return err
		}

		progressed := false
		for _, a := range dangling {
			if _, ok := failed[a.ID]; ok {
				continue
			}
			err = s.associations.DeleteAssociation(ctx, a.ID)
			switch {
			case err == nil:
				rep.DanglingAssociations++
				progressed = true
			case errors.Is(err, file_association.ErrAssociationNotFound):
				progressed = true
			default:
				failed[a.ID] = struct{}{}
				s.logger.Error("dangling association delete failed",
					zap.Int64("association_id", int64(a.ID)),
					zap.Error(err),
				)
			}
		}

		if len(dangling) < batch || !progressed {
			return nil
		}
	}
}

func (s *Sweeper) sweepOrphans(ctx context.Context, rep *ports.SweepReport) error {
	batch := s.batchSize()
	olderThan := s.now().Add(-s.cfg.OrphanAge)
	failed := map[stored_file.ID]struct{}{}
	defer func() { rep.Failed += len(failed) }()

	for {
		orphans, err := s.storedFileRepo.FetchOrphanedStoredFiles(ctx, olderThan, batch)
		if err != nil {
			return err
		}

		progressed := false
		for _, sf := range orphans {
			if _, ok := failed[sf.ID]; ok {
				continue
			}
			if err = s.gateway.Delete(ctx, sf.StorageKey); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
				failed[sf.ID] = struct{}{}
				s.logger.Error("orphaned object delete failed", zap.String("key", sf.StorageKey), zap.Error(err))
				continue
			}
			if _, err = s.storedFileRepo.DeleteStoredFile(ctx, sf.ID); err != nil {
				failed[sf.ID] = struct{}{}
				s.logger.Error("orphaned file record delete failed", zap.Int64("file_id", int64(sf.ID)), zap.Error(err))
				continue
			}
			rep.OrphanedFiles++
			progressed = true
		}

		if len(orphans) < batch || !progressed {
			return nil
		}
	}
}

func (s *Sweeper) batchSize() int {
	if s.cfg.BatchSize <= 0 {
		return 500
	}
	return s.cfg.BatchSize
}
