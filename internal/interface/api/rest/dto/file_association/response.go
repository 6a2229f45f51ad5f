package file_association

import (
	"time"

	"lego-filestore/internal/interface/api/rest/dto/stored_file"
)

type (
	Association struct {
		ID           int64     `json:"id"`
		EntityType   string    `json:"entity_type"`
		EntityID     int64     `json:"entity_id"`
		FileID       int64     `json:"file_id"`
		DisplayOrder int       `json:"display_order"`
		IsPrimary    bool      `json:"is_primary"`
		CreatedAt    time.Time `json:"created_at"`
	}
	Associations []Association

	Attachment struct {
		Association
		File stored_file.StoredFile `json:"file"`
	}
	Attachments []Attachment

	ResponseData struct {
		Data any `json:"data"`
	}
)
