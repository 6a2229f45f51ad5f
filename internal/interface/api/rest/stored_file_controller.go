package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lego-filestore/internal/application/ports"
	"lego-filestore/internal/domain/stored_file"
	dto "lego-filestore/internal/interface/api/rest/dto/stored_file"
	"lego-filestore/internal/interface/api/rest/validator"
)

type StoredFileController struct {
	storedFileService ports.StoredFileService
	logger            *zap.Logger
}

func NewStoredFileController(
	r *gin.Engine,
	storedFileService ports.StoredFileService,
	logger *zap.Logger,
) *StoredFileController {
	sfc := &StoredFileController{
		storedFileService: storedFileService,
		logger:            logger,
	}

	r.POST(RouteFiles, sfc.UploadHandler)
	r.GET(RouteFile, sfc.GetHandler)
	r.DELETE(RouteFile, sfc.DeleteHandler)

	return sfc
}

func (sfc *StoredFileController) UploadHandler(c *gin.Context) {
	in, closeFn, ok := readUpload(c)
	if !ok {
		return
	}
	defer closeFn()

	sf, err := sfc.storedFileService.Upload(c.Request.Context(), in, c.PostForm(formName), c.PostForm(formPath))
	if err != nil {
		respondError(c, sfc.logger, "Upload()", err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToResponseStoredFile(*sf))
}

func (sfc *StoredFileController) GetHandler(c *gin.Context) {
	id, err := validator.ParseID(c.Param("file_id"))
	if err != nil {
		badRequest(c, "file_id: "+err.Error())
		return
	}

	sf, err := sfc.storedFileService.FindStoredFile(c.Request.Context(), stored_file.ID(id))
	if err != nil {
		respondError(c, sfc.logger, "FindStoredFile()", err)
		return
	}

	c.JSON(http.StatusOK, dto.ToResponseStoredFile(*sf))
}

func (sfc *StoredFileController) DeleteHandler(c *gin.Context) {
	id, err := validator.ParseID(c.Param("file_id"))
	if err != nil {
		badRequest(c, "file_id: "+err.Error())
		return
	}

	if err = sfc.storedFileService.DeleteStoredFile(c.Request.Context(), stored_file.ID(id)); err != nil {
		respondError(c, sfc.logger, "DeleteStoredFile()", err)
		return
	}

	c.Status(http.StatusNoContent)
}
