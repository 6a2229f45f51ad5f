package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lego-filestore/internal/domain/file_association"
	"lego-filestore/internal/domain/storage"
	"lego-filestore/internal/domain/stored_file"
)

// respondError writes {"error","code"} with the status err maps to. Only
// unexpected failures are logged; their text never reaches the client.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.Error(op+" error", zap.Error(err), zap.String("url", c.FullPath()))
	}
	c.JSON(status, body)
}

func errorResponse(err error) (int, gin.H) {
	var se *storage.Error
	if errors.As(err, &se) {
		return storageStatus(se.Code), gin.H{"error": se.Error(), "code": int(se.Code)}
	}

	switch {
	case errors.Is(err, file_association.ErrInvalidOwner),
		errors.Is(err, file_association.ErrOrderMismatch),
		errors.Is(err, file_association.ErrInvalidFileID):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	case errors.Is(err, file_association.ErrAssociationNotFound),
		errors.Is(err, stored_file.ErrStoredFileNotFound):
		return http.StatusNotFound, gin.H{"error": err.Error()}
	}

	return http.StatusInternalServerError, gin.H{"error": "internal error"}
}

func storageStatus(code storage.Code) int {
	switch {
	case code == storage.CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case code.IsValidation():
		return http.StatusBadRequest
	case code == storage.CodeFileNotFound, code == storage.CodeBucketNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
