package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lego-filestore/internal/domain/storage"
)

// LimitMultipart caps multipart request bodies at limit bytes so gin never
// spools more than that to disk. Requests that declare a larger body are
// refused before reading.
func LimitMultipart(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 || !strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/form-data") {
			c.Next()
			return
		}

		if c.Request.ContentLength > limit {
			se := storage.NewError(storage.CodeFileTooLarge, "request body exceeds the upload limit", nil)
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": se.Error(), "code": int(se.Code)})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
