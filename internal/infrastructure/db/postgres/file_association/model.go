package file_association

import "time"

type (
	FileAssociation struct {
		ID           int64
		EntityType   string
		EntityID     int64
		FileID       int64
		DisplayOrder int
		IsPrimary    bool

		CreatedAt time.Time
	}
	FileAssociations []*FileAssociation

	// joinedFile holds the stored_files side of a LEFT JOIN; every column is
	// NULL when the file is gone.
	joinedFile struct {
		ID           *int64
		StorageKey   *string
		URL          *string
		OriginalName *string
		SizeBytes    *int64
		MimeType     *string
		CreatedAt    *time.Time
	}

	Attachment struct {
		Association FileAssociation
		File        joinedFile
	}
)
