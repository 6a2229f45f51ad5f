package stored_file

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "lego-filestore/internal/domain/stored_file"
)

var columns = []string{"id", "storage_key", "url", "original_name", "size_bytes", "mime_type", "created_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestRepository_CreateStoredFile(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(InsertStoredFile)).
		WithArgs("items/a.png", "http://cdn/media/items/a.png", "a.png", int64(12), "image/png").
		WillReturnRows(mock.NewRows(columns).
			AddRow(int64(7), "items/a.png", "http://cdn/media/items/a.png", "a.png", int64(12), "image/png", now))

	got, err := repo.CreateStoredFile(context.Background(), &domain.StoredFile{
		StorageKey:   "items/a.png",
		URL:          "http://cdn/media/items/a.png",
		OriginalName: "a.png",
		SizeBytes:    12,
		MimeType:     "image/png",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ID(7), got.ID)
	assert.Equal(t, now, got.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateStoredFileDuplicateKey(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(InsertStoredFile)).
		WithArgs("a.png", "u", "a.png", int64(1), "image/png").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.CreateStoredFile(context.Background(), &domain.StoredFile{
		StorageKey: "a.png", URL: "u", OriginalName: "a.png", SizeBytes: 1, MimeType: "image/png",
	})
	assert.ErrorIs(t, err, ErrStorageKeyExists)
}

func TestRepository_FetchStoredFileMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(SelectStoredFileByID)).
		WithArgs(int64(404)).
		WillReturnRows(mock.NewRows(columns))

	got, err := repo.FetchStoredFile(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FetchStoredFiles(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(SelectStoredFilesByIDs)).
		WithArgs([]int64{1, 2, 3}).
		WillReturnRows(mock.NewRows(columns).
			AddRow(int64(1), "a.png", "u/a.png", "a.png", int64(3), "image/png", now).
			AddRow(int64(3), "c.png", "u/c.png", "c.png", int64(4), "image/png", now))

	got, err := repo.FetchStoredFiles(context.Background(), []domain.ID{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "c.png", got[3].StorageKey)
	assert.NotContains(t, got, domain.ID(2))

	empty, err := repo.FetchStoredFiles(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FetchOrphanedStoredFiles(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock)
	cutoff := time.Now().Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(SelectOrphanedStoredFiles)).
		WithArgs(cutoff, 50).
		WillReturnRows(mock.NewRows(columns).
			AddRow(int64(9), "old.png", "u/old.png", "old.png", int64(3), "image/png", cutoff.Add(-time.Hour)))

	got, err := repo.FetchOrphanedStoredFiles(context.Background(), cutoff, 50)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.ID(9), got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteStoredFile(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(DeleteStoredFileByID)).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta(DeleteStoredFileByID)).
		WithArgs(int64(8)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	ok, err := repo.DeleteStoredFile(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DeleteStoredFile(context.Background(), 8)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
