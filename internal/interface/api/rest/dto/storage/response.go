package storage

import "time"

type (
	Object struct {
		Key          string    `json:"key"`
		Size         int64     `json:"size"`
		ContentType  string    `json:"content_type,omitempty"`
		LastModified time.Time `json:"last_modified"`
		ETag         string    `json:"etag,omitempty"`
		URL          string    `json:"url"`
	}
	Objects []Object

	TypeStats struct {
		Count int64 `json:"count"`
		Size  int64 `json:"size"`
	}
	Stats struct {
		Objects        int64                `json:"objects"`
		TotalSize      int64                `json:"total_size"`
		TotalSizeHuman string               `json:"total_size_human"`
		ByType         map[string]TypeStats `json:"by_type"`
		Truncated      bool                 `json:"truncated"`
	}

	CopyRequest struct {
		Src string `json:"src"`
		Dst string `json:"dst"`
	}
)
