package stored_file

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	domain "lego-filestore/internal/domain/stored_file"
	"lego-filestore/internal/infrastructure/db/postgres"
)

var ErrStorageKeyExists = errors.New("storage key already recorded")

type Repository struct {
	db postgres.DB
}

func NewRepository(db postgres.DB) domain.Repository {
	return &Repository{db: db}
}

func scan(row pgx.Row) (*StoredFile, error) {
	f := new(StoredFile)
	if err := row.Scan(
		&f.ID,
		&f.StorageKey,
		&f.URL,
		&f.OriginalName,
		&f.SizeBytes,
		&f.MimeType,

		&f.CreatedAt,
	); err != nil {
		return nil, err
	}
	return f, nil
}

func scanAll(rows pgx.Rows) (StoredFiles, error) {
	defer rows.Close()

	var fs StoredFiles
	for rows.Next() {
		f, err := scan(rows)
		if err != nil {
			return nil, err
		}
		fs = append(fs, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return fs, nil
}

func (r *Repository) CreateStoredFile(ctx context.Context, req *domain.StoredFile) (*domain.StoredFile, error) {
	f, err := scan(r.db.QueryRow(
		ctx,
		InsertStoredFile,
		req.StorageKey, req.URL, req.OriginalName, req.SizeBytes, req.MimeType,
	))
	if err != nil {
		if postgres.IsPgUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrStorageKeyExists, req.StorageKey)
		}
		return nil, err
	}

	return fromDBModel(f), nil
}

func (r *Repository) FetchStoredFile(ctx context.Context, id domain.ID) (*domain.StoredFile, error) {
	f, err := scan(r.db.QueryRow(ctx, SelectStoredFileByID, int64(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return fromDBModel(f), nil
}

// FetchStoredFiles returns the files that exist among ids, keyed by id.
func (r *Repository) FetchStoredFiles(ctx context.Context, ids []domain.ID) (map[domain.ID]*domain.StoredFile, error) {
	out := make(map[domain.ID]*domain.StoredFile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}

	rows, err := r.db.Query(ctx, SelectStoredFilesByIDs, raw)
	if err != nil {
		return nil, err
	}
	fs, err := scanAll(rows)
	if err != nil {
		return nil, err
	}

	for _, f := range fromDBModels(fs) {
		out[f.ID] = f
	}

	return out, nil
}

func (r *Repository) FetchOrphanedStoredFiles(ctx context.Context, olderThan time.Time, limit int) (domain.StoredFiles, error) {
	rows, err := r.db.Query(ctx, SelectOrphanedStoredFiles, olderThan, limit)
	if err != nil {
		return nil, err
	}
	fs, err := scanAll(rows)
	if err != nil {
		return nil, err
	}

	return fromDBModels(fs), nil
}

func (r *Repository) DeleteStoredFile(ctx context.Context, id domain.ID) (bool, error) {
	tag, err := r.db.Exec(ctx, DeleteStoredFileByID, int64(id))
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}
