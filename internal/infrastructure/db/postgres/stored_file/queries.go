package stored_file

const (
	InsertStoredFile = `
		INSERT INTO stored_files (storage_key, url, original_name, size_bytes, mime_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, storage_key, url, original_name, size_bytes, mime_type, created_at
	`
	SelectStoredFileByID = `
		SELECT id, storage_key, url, original_name, size_bytes, mime_type, created_at
		FROM stored_files
		WHERE id = $1
	`
	SelectStoredFilesByIDs = `
		SELECT id, storage_key, url, original_name, size_bytes, mime_type, created_at
		FROM stored_files
		WHERE id = ANY($1)
	`
	SelectOrphanedStoredFiles = `
		SELECT sf.id, sf.storage_key, sf.url, sf.original_name, sf.size_bytes, sf.mime_type, sf.created_at
		FROM stored_files sf
		WHERE sf.created_at < $1
		  AND NOT EXISTS (SELECT 1 FROM file_associations fa WHERE fa.file_id = sf.id)
		ORDER BY sf.id
		LIMIT $2
	`
	DeleteStoredFileByID = `DELETE FROM stored_files WHERE id = $1`
)
