package stored_file

import (
	"errors"
	"time"
)

var ErrStoredFileNotFound = errors.New("stored file not found")

type (
	ID         int64
	StoredFile struct {
		ID           ID
		StorageKey   string
		URL          string
		OriginalName string
		SizeBytes    int64
		MimeType     string

		CreatedAt time.Time
	}
	StoredFiles []*StoredFile
)

// IDs returns the ids in slice order.
func (sf StoredFiles) IDs() []ID {
	ids := make([]ID, 0, len(sf))
	for _, f := range sf {
		ids = append(ids, f.ID)
	}
	return ids
}
