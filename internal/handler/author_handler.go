package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/quizsmith/quizsmith-backend/internal/middleware"
	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/quizsmith/quizsmith-backend/internal/repository"
	"github.com/quizsmith/quizsmith-backend/internal/response"
	"github.com/quizsmith/quizsmith-backend/internal/service"
	"github.com/quizsmith/quizsmith-backend/internal/validator"
)

// AuthorHandler handles author account management endpoints.
type AuthorHandler struct {
	authorService *service.AuthorService
	roleService   *service.RoleService
}

// NewAuthorHandler creates a new AuthorHandler.
func NewAuthorHandler(authorService *service.AuthorService, roleService *service.RoleService) *AuthorHandler {
	return &AuthorHandler{
		authorService: authorService,
		roleService:   roleService,
	}
}

// ListAuthors godoc
// GET /api/v1/authors
// Lists author accounts with pagination, optionally filtered by role.
func (h *AuthorHandler) ListAuthors(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	roleID, _ := strconv.Atoi(c.Query("role_id"))

	authors, pagination, err := h.authorService.List(c.Request.Context(), roleID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"authors": authors}, pagination)
}

// CreateAuthor godoc
// POST /api/v1/authors
// Creates a new author account.
func (h *AuthorHandler) CreateAuthor(c *gin.Context) {
	var req model.CreateAuthorRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	author, err := h.authorService.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"author": author})
}

// UpdateAuthor godoc
// PATCH /api/v1/authors/:id
// Updates an author account. Empty fields are left unchanged.
func (h *AuthorHandler) UpdateAuthor(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req model.UpdateAuthorRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	author, err := h.authorService.Update(c.Request.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAuthorNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrEmailTaken):
			response.Fail(c, http.StatusConflict, response.ErrConflict)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"author": author})
}

// DeleteAuthor godoc
// DELETE /api/v1/authors/:id
// Deletes an author account. Authors who still own pages block deletion.
func (h *AuthorHandler) DeleteAuthor(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	// Prevent self-deletion.
	claims := middleware.GetClaims(c)
	if claims != nil && claims.AuthorID == id {
		response.Fail(c, http.StatusConflict, response.ErrActionForbidden)
		return
	}

	if err := h.authorService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrAuthorNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		if errors.Is(err, repository.ErrAuthorHasPages) {
			response.Fail(c, http.StatusConflict, response.ErrDependencyExists)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "author deleted successfully"})
}
