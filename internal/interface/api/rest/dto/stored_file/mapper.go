package stored_file

import (
	"lego-filestore/internal/domain/stored_file"
)

func ToResponseStoredFile(sf stored_file.StoredFile) StoredFile {
	return StoredFile{
		ID:           int64(sf.ID),
		StorageKey:   sf.StorageKey,
		URL:          sf.URL,
		OriginalName: sf.OriginalName,
		SizeBytes:    sf.SizeBytes,
		MimeType:     sf.MimeType,
		CreatedAt:    sf.CreatedAt,
	}
}
