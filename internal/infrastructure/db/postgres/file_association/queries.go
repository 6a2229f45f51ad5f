package file_association

const (
	tableName = "file_associations"

	InsertAssociation = `
		INSERT INTO file_associations (entity_type, entity_id, file_id, display_order, is_primary)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, entity_type, entity_id, file_id, display_order, is_primary, created_at
	`
	returningColumns = "RETURNING id, entity_type, entity_id, file_id, display_order, is_primary, created_at"

	SelectAssociationByID = `
		SELECT id, entity_type, entity_id, file_id, display_order, is_primary, created_at
		FROM file_associations
		WHERE id = $1
	`
	SelectAssociationsByOwner = `
		SELECT id, entity_type, entity_id, file_id, display_order, is_primary, created_at
		FROM file_associations
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY display_order, id
	`
	SelectAttachmentsByOwner = `
		SELECT fa.id, fa.entity_type, fa.entity_id, fa.file_id, fa.display_order, fa.is_primary, fa.created_at,
		       sf.id, sf.storage_key, sf.url, sf.original_name, sf.size_bytes, sf.mime_type, sf.created_at
		FROM file_associations fa
		LEFT JOIN stored_files sf ON sf.id = fa.file_id
		WHERE fa.entity_type = $1 AND fa.entity_id = $2
		ORDER BY fa.display_order, fa.id
	`
	SelectDanglingAssociations = `
		SELECT fa.id, fa.entity_type, fa.entity_id, fa.file_id, fa.display_order, fa.is_primary, fa.created_at
		FROM file_associations fa
		LEFT JOIN stored_files sf ON sf.id = fa.file_id
		WHERE sf.id IS NULL
		ORDER BY fa.id
		LIMIT $1
	`
	UpdateDisplayOrderByID = `UPDATE file_associations SET display_order = $2 WHERE id = $1`
	UpdatePrimaryByID      = `UPDATE file_associations SET is_primary = $2 WHERE id = $1`
	ClearPrimaryByOwner    = `
		UPDATE file_associations
		SET is_primary = FALSE
		WHERE entity_type = $1 AND entity_id = $2 AND is_primary
	`
	DeleteAssociationByID     = `DELETE FROM file_associations WHERE id = $1`
	DeleteAssociationsByOwner = `DELETE FROM file_associations WHERE entity_type = $1 AND entity_id = $2`

	// LockOwner serializes writers of one owner until the transaction ends.
	// $1 is the owner's text key, see lockArgs.
	LockOwner = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
)
