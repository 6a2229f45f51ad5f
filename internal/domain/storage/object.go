package storage

import (
	"io"
	"time"
)

type (
	// UploadFile is the raw upload as received from a client.
	UploadFile struct {
		Filename string
		Size     int64
		Content  io.Reader
		// UploadErr is set when the transport reported a broken upload.
		UploadErr error
	}

	UploadedObject struct {
		Key          string
		URL          string
		Name         string
		OriginalName string
		Size         int64
		MimeType     string
	}

	ObjectInfo struct {
		Exists       bool
		Key          string
		Size         int64
		ContentType  string
		LastModified time.Time
		ETag         string
		URL          string
	}
	Objects []ObjectInfo

	TypeStats struct {
		Count int64
		Size  int64
	}
	Stats struct {
		Objects        int64
		TotalSize      int64
		TotalSizeHuman string
		ByType         map[string]TypeStats
		// Truncated is set when the listing hit the configured ceiling.
		Truncated bool
	}
)
