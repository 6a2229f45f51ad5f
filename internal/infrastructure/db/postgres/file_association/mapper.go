package file_association

import (
	domain "lego-filestore/internal/domain/file_association"
	"lego-filestore/internal/domain/stored_file"
)

func fromDBModel(model *FileAssociation) *domain.FileAssociation {
	return &domain.FileAssociation{
		ID:           domain.ID(model.ID),
		Owner:        domain.OwnerRef{Kind: model.EntityType, ID: model.EntityID},
		FileID:       stored_file.ID(model.FileID),
		DisplayOrder: model.DisplayOrder,
		IsPrimary:    model.IsPrimary,

		CreatedAt: model.CreatedAt,
	}
}

func fromDBModels(models FileAssociations) domain.FileAssociations {
	fa := make(domain.FileAssociations, len(models))
	for idx, a := range models {
		fa[idx] = fromDBModel(a)
	}

	return fa
}

func fromJoinedFile(f joinedFile) *stored_file.StoredFile {
	if f.ID == nil {
		return nil
	}

	sf := &stored_file.StoredFile{ID: stored_file.ID(*f.ID)}
	if f.StorageKey != nil {
		sf.StorageKey = *f.StorageKey
	}
	if f.URL != nil {
		sf.URL = *f.URL
	}
	if f.OriginalName != nil {
		sf.OriginalName = *f.OriginalName
	}
	if f.SizeBytes != nil {
		sf.SizeBytes = *f.SizeBytes
	}
	if f.MimeType != nil {
		sf.MimeType = *f.MimeType
	}
	if f.CreatedAt != nil {
		sf.CreatedAt = *f.CreatedAt
	}

	return sf
}

func fromAttachment(model *Attachment) *domain.Attachment {
	return &domain.Attachment{
		Association: fromDBModel(&model.Association),
		File:        fromJoinedFile(model.File),
	}
}
