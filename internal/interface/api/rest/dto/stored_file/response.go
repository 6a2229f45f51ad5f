package stored_file

import "time"

type (
	StoredFile struct {
		ID           int64     `json:"id"`
		StorageKey   string    `json:"storage_key"`
		URL          string    `json:"url"`
		OriginalName string    `json:"original_name"`
		SizeBytes    int64     `json:"size_bytes"`
		MimeType     string    `json:"mime_type"`
		CreatedAt    time.Time `json:"created_at"`
	}
	StoredFiles []StoredFile
)
