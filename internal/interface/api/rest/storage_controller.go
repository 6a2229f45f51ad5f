package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lego-filestore/internal/application/ports"
	dto "lego-filestore/internal/interface/api/rest/dto/storage"
	"lego-filestore/internal/interface/api/rest/validator"
)

// StorageController exposes the gateway's raw object operations.
type StorageController struct {
	gateway ports.StorageGateway
	logger  *zap.Logger
}

func NewStorageController(r *gin.Engine, gateway ports.StorageGateway, logger *zap.Logger) *StorageController {
	sc := &StorageController{
		gateway: gateway,
		logger:  logger,
	}

	r.GET(RouteStorageObjects, sc.ListHandler)
	r.GET(RouteStorageObject, sc.GetHandler)
	r.GET(RouteStorageContent, sc.ContentHandler)
	r.GET(RouteStorageExists, sc.ExistsHandler)
	r.DELETE(RouteStorageObject, sc.DeleteHandler)
	r.POST(RouteStorageCopy, sc.CopyHandler)
	r.POST(RouteStorageMove, sc.MoveHandler)
	r.GET(RouteStorageStats, sc.StatsHandler)

	return sc
}

func (sc *StorageController) ListHandler(c *gin.Context) {
	limit, err := validator.ParseLimit(c.Query("limit"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	objs, err := sc.gateway.List(c.Request.Context(), c.Query("prefix"), limit)
	if err != nil {
		respondError(c, sc.logger, "List()", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dto.ToResponseObjects(objs)})
}

func (sc *StorageController) GetHandler(c *gin.Context) {
	p, ok := sc.path(c)
	if !ok {
		return
	}

	info, err := sc.gateway.Get(c.Request.Context(), p)
	if err != nil {
		respondError(c, sc.logger, "Get()", err)
		return
	}

	c.JSON(http.StatusOK, dto.ToResponseObject(*info))
}

func (sc *StorageController) ContentHandler(c *gin.Context) {
	p, ok := sc.path(c)
	if !ok {
		return
	}

	info, err := sc.gateway.Get(c.Request.Context(), p)
	if err != nil {
		respondError(c, sc.logger, "Get()", err)
		return
	}
	content, err := sc.gateway.GetContent(c.Request.Context(), p)
	if err != nil {
		respondError(c, sc.logger, "GetContent()", err)
		return
	}

	ct := info.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	c.Data(http.StatusOK, ct, content)
}

func (sc *StorageController) ExistsHandler(c *gin.Context) {
	p, ok := sc.path(c)
	if !ok {
		return
	}

	exists, err := sc.gateway.Exists(c.Request.Context(), p)
	if err != nil {
		respondError(c, sc.logger, "Exists()", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

func (sc *StorageController) DeleteHandler(c *gin.Context) {
	p, ok := sc.path(c)
	if !ok {
		return
	}

	if err := sc.gateway.Delete(c.Request.Context(), p); err != nil {
		respondError(c, sc.logger, "Delete()", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (sc *StorageController) CopyHandler(c *gin.Context) {
	req, ok := sc.pair(c)
	if !ok {
		return
	}

	if err := sc.gateway.Copy(c.Request.Context(), req.Src, req.Dst); err != nil {
		respondError(c, sc.logger, "Copy()", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": sc.gateway.PublicURL(req.Dst)})
}

func (sc *StorageController) MoveHandler(c *gin.Context) {
	req, ok := sc.pair(c)
	if !ok {
		return
	}

	if err := sc.gateway.Move(c.Request.Context(), req.Src, req.Dst); err != nil {
		respondError(c, sc.logger, "Move()", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": sc.gateway.PublicURL(req.Dst)})
}

func (sc *StorageController) StatsHandler(c *gin.Context) {
	stats, err := sc.gateway.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, sc.logger, "GetStats()", err)
		return
	}

	c.JSON(http.StatusOK, dto.ToResponseStats(*stats))
}

// path reads the object key from ?path, or from ?url when the caller only
// holds a public URL handed out earlier.
func (sc *StorageController) path(c *gin.Context) (string, bool) {
	raw := c.Query("path")
	if u := c.Query("url"); raw == "" && u != "" {
		key, ok := sc.gateway.KeyFromURL(u)
		if !ok {
			badRequest(c, "url does not point into this bucket")
			return "", false
		}
		raw = key
	}

	p, err := validator.RequirePath(raw)
	if err != nil {
		badRequest(c, err.Error())
		return "", false
	}
	return p, true
}

func (sc *StorageController) pair(c *gin.Context) (dto.CopyRequest, bool) {
	var req dto.CopyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON")
		return req, false
	}
	if req.Src == "" || req.Dst == "" {
		badRequest(c, "src and dst are required")
		return req, false
	}
	return req, true
}
