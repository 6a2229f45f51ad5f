package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"lego-filestore/internal/domain/storage"
)

const (
	formFile = "file"
	formName = "name"
	formPath = "path"
)

// readUpload opens the multipart "file" part. A part that cannot be opened
// is still handed to the gateway with UploadErr set so it is rejected as an
// invalid file. The returned func closes the part.
func readUpload(c *gin.Context) (storage.UploadFile, func(), bool) {
	fh, err := c.FormFile(formFile)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(errorResponse(storage.NewError(storage.CodeFileTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), nil)))
		return storage.UploadFile{}, nil, false
	}
	if err != nil {
		badRequest(c, "file is required")
		return storage.UploadFile{}, nil, false
	}

	f, err := fh.Open()
	if err != nil {
		return storage.UploadFile{
			Filename:  fh.Filename,
			Size:      fh.Size,
			Content:   http.NoBody,
			UploadErr: err,
		}, func() {}, true
	}

	return storage.UploadFile{
		Filename: fh.Filename,
		Size:     fh.Size,
		Content:  f,
	}, func() { _ = f.Close() }, true
}
