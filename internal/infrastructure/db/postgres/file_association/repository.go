package file_association

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	domain "lego-filestore/internal/domain/file_association"
	"lego-filestore/internal/infrastructure/db/postgres"
)

type Repository struct {
	db postgres.DB
}

func NewRepository(db postgres.DB) domain.Repository {
	return &Repository{db: db}
}

func scan(row pgx.Row) (*FileAssociation, error) {
	a := new(FileAssociation)
	if err := row.Scan(
		&a.ID,
		&a.EntityType,
		&a.EntityID,
		&a.FileID,
		&a.DisplayOrder,
		&a.IsPrimary,

		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return a, nil
}

func scanAll(rows pgx.Rows) (FileAssociations, error) {
	defer rows.Close()

	var fa FileAssociations
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, err
		}
		fa = append(fa, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return fa, nil
}

func (r *Repository) CreateAssociation(ctx context.Context, req *domain.FileAssociation) (*domain.FileAssociation, error) {
	a, err := scan(r.db.QueryRow(
		ctx,
		InsertAssociation,
		req.Owner.Kind, req.Owner.ID, int64(req.FileID), req.DisplayOrder, req.IsPrimary,
	))
	if err != nil {
		return nil, err
	}

	return fromDBModel(a), nil
}

// CreateAssociations inserts reqs with one statement; rows come back in
// insertion order.
func (r *Repository) CreateAssociations(ctx context.Context, reqs domain.FileAssociations) (domain.FileAssociations, error) {
	if len(reqs) == 0 {
		return domain.FileAssociations{}, nil
	}

	b := sq.Insert(tableName).
		Columns("entity_type", "entity_id", "file_id", "display_order", "is_primary").
		Suffix(returningColumns).
		PlaceholderFormat(sq.Dollar)
	for _, req := range reqs {
		b = b.Values(req.Owner.Kind, req.Owner.ID, int64(req.FileID), req.DisplayOrder, req.IsPrimary)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	fa, err := scanAll(rows)
	if err != nil {
		return nil, err
	}

	return fromDBModels(fa), nil
}

func (r *Repository) FetchAssociation(ctx context.Context, id domain.ID) (*domain.FileAssociation, error) {
	a, err := scan(r.db.QueryRow(ctx, SelectAssociationByID, int64(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return fromDBModel(a), nil
}

func (r *Repository) FetchAssociations(ctx context.Context, owner domain.OwnerRef) (domain.FileAssociations, error) {
	rows, err := r.db.Query(ctx, SelectAssociationsByOwner, owner.Kind, owner.ID)
	if err != nil {
		return nil, err
	}
	fa, err := scanAll(rows)
	if err != nil {
		return nil, err
	}

	return fromDBModels(fa), nil
}

func (r *Repository) FetchAttachments(ctx context.Context, owner domain.OwnerRef) (domain.Attachments, error) {
	rows, err := r.db.Query(ctx, SelectAttachmentsByOwner, owner.Kind, owner.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out domain.Attachments
	for rows.Next() {
		m := new(Attachment)
		if err = rows.Scan(
			&m.Association.ID,
			&m.Association.EntityType,
			&m.Association.EntityID,
			&m.Association.FileID,
			&m.Association.DisplayOrder,
			&m.Association.IsPrimary,
			&m.Association.CreatedAt,

			&m.File.ID,
			&m.File.StorageKey,
			&m.File.URL,
			&m.File.OriginalName,
			&m.File.SizeBytes,
			&m.File.MimeType,
			&m.File.CreatedAt,
		); err != nil {
			return nil, err
		}

		out = append(out, fromAttachment(m))
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *Repository) FetchDanglingAssociations(ctx context.Context, limit int) (domain.FileAssociations, error) {
	rows, err := r.db.Query(ctx, SelectDanglingAssociations, limit)
	if err != nil {
		return nil, err
	}
	fa, err := scanAll(rows)
	if err != nil {
		return nil, err
	}

	return fromDBModels(fa), nil
}

func (r *Repository) UpdateDisplayOrder(ctx context.Context, id domain.ID, order int) error {
	_, err := r.db.Exec(ctx, UpdateDisplayOrderByID, int64(id), order)
	return err
}

func (r *Repository) SetPrimaryFlag(ctx context.Context, id domain.ID, primary bool) error {
	_, err := r.db.Exec(ctx, UpdatePrimaryByID, int64(id), primary)
	return err
}

func (r *Repository) ClearPrimary(ctx context.Context, owner domain.OwnerRef) error {
	_, err := r.db.Exec(ctx, ClearPrimaryByOwner, owner.Kind, owner.ID)
	return err
}

func (r *Repository) DeleteAssociation(ctx context.Context, id domain.ID) (bool, error) {
	tag, err := r.db.Exec(ctx, DeleteAssociationByID, int64(id))
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

func (r *Repository) DeleteAssociations(ctx context.Context, owner domain.OwnerRef) (int64, error) {
	tag, err := r.db.Exec(ctx, DeleteAssociationsByOwner, owner.Kind, owner.ID)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

// WithOwnerLock takes a transaction-scoped advisory lock keyed by owner, so
// read-then-write sequences on one owner's set never interleave.
func (r *Repository) WithOwnerLock(
	ctx context.Context,
	owner domain.OwnerRef,
	fn func(ctx context.Context, r domain.Repository) error,
) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, LockOwner, lockArgs(owner)...); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err = fn(ctx, &Repository{db: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

// lockArgs binds LockOwner. The parameter is typed text by the server, so
// the key is rendered here rather than cast in SQL.
func lockArgs(owner domain.OwnerRef) []any {
	return []any{owner.String()}
}
