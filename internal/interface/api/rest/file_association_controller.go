package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lego-filestore/internal/application/ports"
	domain "lego-filestore/internal/domain/file_association"
	"lego-filestore/internal/domain/stored_file"
	dto "lego-filestore/internal/interface/api/rest/dto/file_association"
	"lego-filestore/internal/interface/api/rest/validator"
)

type FileAssociationController struct {
	associationService ports.FileAssociationService
	logger             *zap.Logger
}

func NewFileAssociationController(
	r *gin.Engine,
	associationService ports.FileAssociationService,
	logger *zap.Logger,
) *FileAssociationController {
	fac := &FileAssociationController{
		associationService: associationService,
		logger:             logger,
	}

	r.GET(RouteEntityFiles, fac.ListHandler)
	r.GET(RouteEntityAssociations, fac.ListAssociationsHandler)
	r.POST(RouteEntityFiles, fac.AssociateHandler)
	r.POST(RouteEntityFilesUpload, fac.UploadHandler)
	r.PUT(RouteEntityFiles, fac.ReplaceHandler)
	r.PUT(RouteEntityFilesOrder, fac.ReorderHandler)
	r.DELETE(RouteEntityFiles, fac.PurgeHandler)
	r.PUT(RouteAssociationPrimary, fac.SetPrimaryHandler)
	r.DELETE(RouteAssociation, fac.DeleteHandler)

	return fac
}

func (fac *FileAssociationController) ListHandler(c *gin.Context) {
	owner, ok := fac.owner(c)
	if !ok {
		return
	}

	attachments, err := fac.associationService.ListForEntity(c.Request.Context(), owner)
	if err != nil {
		respondError(c, fac.logger, "ListForEntity()", err)
		return
	}

	c.JSON(http.StatusOK, dto.ResponseData{Data: dto.ToResponseAttachments(attachments)})
}

// ListAssociationsHandler returns the raw links, including those whose
// stored file no longer exists.
func (fac *FileAssociationController) ListAssociationsHandler(c *gin.Context) {
	owner, ok := fac.owner(c)
	if !ok {
		return
	}

	associations, err := fac.associationService.ListAssociations(c.Request.Context(), owner)
	if err != nil {
		respondError(c, fac.logger, "ListAssociations()", err)
		return
	}

	c.JSON(http.StatusOK, dto.ResponseData{Data: dto.ToResponseAssociations(associations)})
}

func (fac *FileAssociationController) AssociateHandler(c *gin.Context) {
	owner, ok := fac.owner(c)
	if !ok {
		return
	}
	var req dto.AssociateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON")
		return
	}

	a, err := fac.associationService.Associate(
		c.Request.Context(),
		stored_file.ID(req.FileID),
		owner,
		req.DisplayOrder,
		domain.AssociateOptions{IsPrimary: req.IsPrimary},
	)
	if err != nil {
		respondError(c, fac.logger, "Associate()", err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToResponseAssociation(*a))
}

func (fac *FileAssociationController) UploadHandler(c *gin.Context) {
	owner, ok := fac.owner(c)
	if !ok {
		return
	}
	in, closeFn, ok := readUpload(c)
	if !ok {
		return
	}
	defer closeFn()

	att, err := fac.associationService.UploadForEntity(
		c.Request.Context(), owner, in, c.PostForm(formName), c.PostForm(formPath),
	)
	if err != nil {
		respondError(c, fac.logger, "UploadForEntity()", err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToResponseAttachment(*att))
}

func (fac *FileAssociationController) ReplaceHandler(c *gin.Context) {
	owner, ok := fac.owner(c)
	if !ok {
		return
	}
	var req dto.ReplaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON")
		return
	}
	ids, err := validator.IDs[stored_file.ID](req.FileIDs)
	if err != nil {
		badRequest(c, "file_ids: "+err.Error())
		return
	}

	out, err := fac.associationService.ReplaceAllForEntity(c.Request.Context(), owner, ids)
	if err != nil {
		respondError(c, fac.logger, "ReplaceAllForEntity()", err)
		return
	}

	c.JSON(http.StatusOK, dto.ResponseData{Data: dto.ToResponseAssociations(out)})
}

func (fac *FileAssociationController) ReorderHandler(c *gin.Context) {
	owner, ok := fac.owner(c)
	if !ok {
		return
	}
	var req dto.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON")
		return
	}
	ids, err := validator.IDs[domain.ID](req.AssociationIDs)
	if err != nil {
		badRequest(c, "association_ids: "+err.Error())
		return
	}

	out, err := fac.associationService.Reorder(c.Request.Context(), owner, ids)
	if err != nil {
		respondError(c, fac.logger, "Reorder()", err)
		return
	}

	c.JSON(http.StatusOK, dto.ResponseData{Data: dto.ToResponseAssociations(out)})
}

func (fac *FileAssociationController) PurgeHandler(c *gin.Context) {
	owner, ok := fac.owner(c)
	if !ok {
		return
	}

	if err := fac.associationService.DeleteAssociationsAndFiles(c.Request.Context(), owner); err != nil {
		respondError(c, fac.logger, "DeleteAssociationsAndFiles()", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (fac *FileAssociationController) SetPrimaryHandler(c *gin.Context) {
	id, err := validator.ParseID(c.Param("association_id"))
	if err != nil {
		badRequest(c, "association_id: "+err.Error())
		return
	}

	if err = fac.associationService.SetPrimary(c.Request.Context(), domain.ID(id)); err != nil {
		respondError(c, fac.logger, "SetPrimary()", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (fac *FileAssociationController) DeleteHandler(c *gin.Context) {
	id, err := validator.ParseID(c.Param("association_id"))
	if err != nil {
		badRequest(c, "association_id: "+err.Error())
		return
	}

	if err = fac.associationService.DeleteAssociation(c.Request.Context(), domain.ID(id)); err != nil {
		respondError(c, fac.logger, "DeleteAssociation()", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (fac *FileAssociationController) owner(c *gin.Context) (domain.OwnerRef, bool) {
	owner, err := validator.ParseOwner(c.Param("entity_type"), c.Param("entity_id"))
	if err != nil {
		badRequest(c, err.Error())
		return domain.OwnerRef{}, false
	}
	return owner, true
}
