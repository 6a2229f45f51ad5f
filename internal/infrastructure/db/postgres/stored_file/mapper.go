package stored_file

import (
	domain "lego-filestore/internal/domain/stored_file"
)

func fromDBModel(model *StoredFile) *domain.StoredFile {
	return &domain.StoredFile{
		ID:           domain.ID(model.ID),
		StorageKey:   model.StorageKey,
		URL:          model.URL,
		OriginalName: model.OriginalName,
		SizeBytes:    model.SizeBytes,
		MimeType:     model.MimeType,

		CreatedAt: model.CreatedAt,
	}
}

func fromDBModels(models StoredFiles) domain.StoredFiles {
	fs := make(domain.StoredFiles, len(models))
	for idx, f := range models {
		fs[idx] = fromDBModel(f)
	}

	return fs
}
