package file_association

import (
	"github.com/samber/lo"

	domain "lego-filestore/internal/domain/file_association"
	"lego-filestore/internal/interface/api/rest/dto/stored_file"
)

func ToResponseAssociation(a domain.FileAssociation) Association {
	return Association{
		ID:           int64(a.ID),
		EntityType:   a.Owner.Kind,
		EntityID:     a.Owner.ID,
		FileID:       int64(a.FileID),
		DisplayOrder: a.DisplayOrder,
		IsPrimary:    a.IsPrimary,
		CreatedAt:    a.CreatedAt,
	}
}

func ToResponseAssociations(in domain.FileAssociations) Associations {
	return lo.Map(in, func(a *domain.FileAssociation, _ int) Association {
		return ToResponseAssociation(*a)
	})
}

// ToResponseAttachments expects every File to be resolved; the service drops
// dangling rows before they get here.
func ToResponseAttachments(in domain.Attachments) Attachments {
	return lo.Map(in, func(a *domain.Attachment, _ int) Attachment {
		return ToResponseAttachment(*a)
	})
}

func ToResponseAttachment(a domain.Attachment) Attachment {
	out := Attachment{Association: ToResponseAssociation(*a.Association)}
	if a.File != nil {
		out.File = stored_file.ToResponseStoredFile(*a.File)
	}
	return out
}
