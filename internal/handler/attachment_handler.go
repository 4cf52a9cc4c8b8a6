package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docstash/internal/domain/attachment"
	"docstash/internal/services"
	"docstash/internal/storage"
	"docstash/internal/transport/httpdto"
	docstash_errors "docstash/pkg/errors"
)

type AttachmentHandler struct {
	service *services.AttachmentService
}

func NewAttachmentHandler(service *services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{service: service}
}

func (h *AttachmentHandler) Upload(c *gin.Context) {
	creatorID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("file field is required", "INVALID_REQUEST"))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("cannot open uploaded file", "INVALID_REQUEST"))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("cannot read uploaded file", "INVALID_REQUEST"))
		return
	}

	input := services.UploadInput{
		FileName:  fileHeader.Filename,
		Type:      c.PostForm("type"),
		Data:      data,
		CreatorID: creatorID,
	}
	if pageID, err := parseOptionalUUID(c.PostForm("page_id")); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid page_id", "INVALID_REQUEST"))
		return
	} else {
		input.PageID = pageID
	}
	if spaceID, err := parseOptionalUUID(c.PostForm("space_id")); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid space_id", "INVALID_REQUEST"))
		return
	} else {
		input.SpaceID = spaceID
	}
	if workspaceID, ok := services.WorkspaceIDFromContext(c.Request.Context()); ok {
		input.WorkspaceID = &workspaceID
	}

	created, err := h.service.Upload(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(created))
}

func (h *AttachmentHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid attachment id", "INVALID_REQUEST"))
		return
	}
	item, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(item))
}

func (h *AttachmentHandler) Download(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid attachment id", "INVALID_REQUEST"))
		return
	}

	mode := services.FetchMode(c.DefaultQuery("mode", string(services.FetchDirect)))
	expiresInSec, err := strconv.ParseInt(c.DefaultQuery("expires_in", "3600"), 10, 64)
	if err != nil || expiresInSec <= 0 {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("expires_in must be a positive integer", "INVALID_REQUEST"))
		return
	}

	result, err := h.service.Fetch(c.Request.Context(), id, mode, time.Duration(expiresInSec)*time.Second)
	if err != nil {
		respondError(c, err)
		return
	}

	if mode == services.FetchSigned {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.SignedURLResponse{
			URL:       result.SignedURL,
			ExpiresIn: expiresInSec,
		}))
		return
	}

	contentType := "application/octet-stream"
	if result.Attachment.MimeType != nil {
		contentType = *result.Attachment.MimeType
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Attachment.FileName))
	c.Data(http.StatusOK, contentType, result.Data)
}

func (h *AttachmentHandler) UpdateAssociations(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid attachment id", "INVALID_REQUEST"))
		return
	}
	var req httpdto.UpdateAssociationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	var assoc attachment.Associations
	for _, field := range []struct {
		raw  *string
		dest **uuid.UUID
		name string
	}{
		{req.PageID, &assoc.PageID, "pageId"},
		{req.SpaceID, &assoc.SpaceID, "spaceId"},
		{req.WorkspaceID, &assoc.WorkspaceID, "workspaceId"},
	} {
		if field.raw == nil {
			continue
		}
		parsed, err := uuid.Parse(*field.raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid "+field.name, "INVALID_REQUEST"))
			return
		}
		*field.dest = &parsed
	}

	item, err := h.service.UpdateAssociations(c.Request.Context(), id, assoc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(item))
}

func (h *AttachmentHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid attachment id", "INVALID_REQUEST"))
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *AttachmentHandler) List(c *gin.Context) {
	if raw := c.Query("page_id"); raw != "" {
		pageID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid page_id", "INVALID_REQUEST"))
			return
		}
		items, err := h.service.GetByPage(c.Request.Context(), pageID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"attachments": items}))
		return
	}

	creatorID, err := uuid.Parse(c.Query("creator_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("page_id or creator_id is required", "INVALID_REQUEST"))
		return
	}
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, total, err := h.service.GetByCreator(c.Request.Context(), creatorID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"attachments": items, "total": total}))
}

func (h *AttachmentHandler) Purge(c *gin.Context) {
	olderThanSec, _ := strconv.Atoi(c.DefaultQuery("older_than_sec", "86400"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	purged, err := h.service.Purge(c.Request.Context(), time.Duration(olderThanSec)*time.Second, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"purged": purged}))
}

func (h *AttachmentHandler) StorageInfo(c *gin.Context) {
	name, cfg := h.service.StorageInfo()
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.StorageInfoResponse{
		Driver: name,
		Config: cfg,
	}))
}

func parseOptionalUUID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// respondError maps service and storage error kinds onto HTTP statuses so
// clients can branch without parsing messages.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, docstash_errors.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("not found", "NOT_FOUND"))
	case errors.Is(err, docstash_errors.ErrConflict):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse("conflict", "CONFLICT"))
	case errors.Is(err, docstash_errors.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, httpdto.NewErrorResponse("file too large", "TOO_LARGE"))
	case errors.Is(err, docstash_errors.ErrUnsupported), errors.Is(err, storage.ErrUnsupported):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("not supported by the active storage backend", "UNSUPPORTED"))
	case errors.Is(err, docstash_errors.ErrInvalidInput), errors.Is(err, storage.ErrInvalidExpiry):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid input", "INVALID_REQUEST"))
	case errors.Is(err, docstash_errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "INTERNAL_ERROR"))
	}
}
