package stored_file

import "time"

type (
	StoredFile struct {
		ID           int64
		StorageKey   string
		URL          string
		OriginalName string
		SizeBytes    int64
		MimeType     string

		CreatedAt time.Time
	}
	StoredFiles []*StoredFile
)
