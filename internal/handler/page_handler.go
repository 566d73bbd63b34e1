package handler

import (
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/quizsmith/quizsmith-backend/internal/response"
	"github.com/quizsmith/quizsmith-backend/internal/service"
	"github.com/quizsmith/quizsmith-backend/internal/validator"
)

// PageHandler handles page management endpoints.
type PageHandler struct {
	pageService *service.PageService
}

func NewPageHandler(pageService *service.PageService) *PageHandler {
	return &PageHandler{pageService: pageService}
}

// ListPages godoc
// GET /api/v1/pages
// Lists pages with pagination. Superadmins see all; authors see only their own.
func (h *PageHandler) ListPages(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	page, perPage := listQuery(c, 10)

	pages, pagination, err := h.pageService.ListByAuthor(c.Request.Context(), authorFilterFor(claims), page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"pages": pages}, pagination)
}

// CreatePage godoc
// POST /api/v1/pages
// Creates a new draft page owned by the caller.
func (h *PageHandler) CreatePage(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req model.CreatePageRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	page := &model.Page{
		AuthorID:     claims.AuthorID,
		CollectionID: req.CollectionID,
		Title:        req.Title,
	}

	if err := h.pageService.Create(c.Request.Context(), page); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"page": page})
}

// GetPage godoc
// GET /api/v1/pages/:page_id
// Returns a single page. Authors can only read their own unless superadmin.
func (h *PageHandler) GetPage(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	pageID, ok := pageParam(c)
	if !ok {
		return
	}

	page, err := h.pageService.GetByID(c.Request.Context(), pageID)
	if err != nil {
		h.failPageAction(c, err)
		return
	}

	if !canAccessPage(claims, page.AuthorID) {
		response.Fail(c, http.StatusForbidden, response.ErrNotPageAuthor)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"page": page})
}

// UpdatePage godoc
// PATCH /api/v1/pages/:page_id
// Updates page metadata. Content fields are owned by the editor stream.
func (h *PageHandler) UpdatePage(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	pageID, ok := pageParam(c)
	if !ok {
		return
	}

	var req model.UpdatePageRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.pageService.UpdateMeta(c.Request.Context(), pageID, authorFilterFor(claims), req.Title, req.CollectionID)
	if err != nil {
		h.failPageAction(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "page updated successfully"})
}

// PublishPage godoc
// POST /api/v1/pages/:page_id/publish
// Publishes a page: caches the reader payload to Redis, changes status.
func (h *PageHandler) PublishPage(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	pageID, ok := pageParam(c)
	if !ok {
		return
	}

	if err := h.pageService.Publish(c.Request.Context(), pageID, authorFilterFor(claims)); err != nil {
		h.failPageAction(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "page published successfully"})
}

// ArchivePage godoc
// POST /api/v1/pages/:page_id/archive
// Archives a published page and evicts its reader payload from Redis.
func (h *PageHandler) ArchivePage(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	pageID, ok := pageParam(c)
	if !ok {
		return
	}

	if err := h.pageService.Archive(c.Request.Context(), pageID, authorFilterFor(claims)); err != nil {
		h.failPageAction(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "page archived successfully"})
}

// DeletePage godoc
// DELETE /api/v1/pages/:page_id
// Deletes a draft page. Published and archived pages must stay for readers.
func (h *PageHandler) DeletePage(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	pageID, ok := pageParam(c)
	if !ok {
		return
	}

	if err := h.pageService.Delete(c.Request.Context(), pageID, authorFilterFor(claims)); err != nil {
		h.failPageAction(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "page deleted successfully"})
}

// RefreshPageCache godoc
// POST /api/v1/pages/:page_id/refresh-cache
// Re-caches the reader payload to Redis after out-of-band content changes.
func (h *PageHandler) RefreshPageCache(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	pageID, ok := pageParam(c)
	if !ok {
		return
	}

	if err := h.pageService.RefreshCache(c.Request.Context(), pageID, authorFilterFor(claims)); err != nil {
		h.failPageAction(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "page cache refreshed successfully"})
}

// ListRevisions godoc
// GET /api/v1/pages/:page_id/revisions
// Returns the page's snapshot history, newest first.
func (h *PageHandler) ListRevisions(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	pageID, ok := pageParam(c)
	if !ok {
		return
	}
	page, perPage := listQuery(c, 20)

	revisions, pagination, err := h.pageService.ListRevisions(c.Request.Context(), pageID, authorFilterFor(claims), page, perPage)
	if err != nil {
		h.failPageAction(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"revisions": revisions}, pagination)
}

// ListPublishedPages godoc
// GET /api/v1/public/pages
// Public index of published pages. No auth required.
func (h *PageHandler) ListPublishedPages(c *gin.Context) {
	pages, err := h.pageService.ListPublished(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"pages": pages})
}

// GetPublishedPage godoc
// GET /api/v1/public/pages/:page_id
// Serves the cached reader payload for a published page. No auth required.
func (h *PageHandler) GetPublishedPage(c *gin.Context) {
	pageID, ok := pageParam(c)
	if !ok {
		return
	}

	payload, err := h.pageService.GetPagePayload(c.Request.Context(), pageID)
	if err != nil {
		// A cold cache means the page is not published; the warm path
		// is maintained by Publish, RefreshCache and the startup prewarm.
		if errors.Is(err, service.ErrPageNotCached) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"page": payload})
}

// failPageAction maps page service errors onto API error codes.
func (h *PageHandler) failPageAction(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotPageAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotPageAuthor)
	case errors.Is(err, service.ErrPageNotDraft):
		response.Fail(c, http.StatusBadRequest, response.ErrPageNotDraft)
	case errors.Is(err, service.ErrPageNotPublished):
		response.Fail(c, http.StatusBadRequest, response.ErrPageNotPublished)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusBadRequest, response.ErrNoQuestions)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// authorFilterFor returns the author ID used for ownership checks, or 0
// when the claims carry the write_all permission.
func authorFilterFor(claims *service.Claims) int {
	if slices.Contains(claims.Permissions, string(model.PermissionPagesWriteAll)) {
		return 0
	}
	return claims.AuthorID
}

// canAccessPage reports whether the claims may operate on a page owned
// by ownerID.
func canAccessPage(claims *service.Claims, ownerID int) bool {
	return authorFilterFor(claims) == 0 || claims.AuthorID == ownerID
}
