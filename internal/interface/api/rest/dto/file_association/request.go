package file_association

type (
	AssociateRequest struct {
		FileID       int64 `json:"file_id"`
		DisplayOrder int   `json:"display_order"`
		IsPrimary    bool  `json:"is_primary"`
	}
	ReplaceRequest struct {
		FileIDs []int64 `json:"file_ids"`
	}
	ReorderRequest struct {
		AssociationIDs []int64 `json:"association_ids"`
	}
)
