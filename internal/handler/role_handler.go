package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizsmith/quizsmith-backend/internal/repository"
	"github.com/quizsmith/quizsmith-backend/internal/response"
	"github.com/quizsmith/quizsmith-backend/internal/service"
	"github.com/quizsmith/quizsmith-backend/internal/validator"
)

type RoleHandler struct {
	service *service.RoleService
}

func NewRoleHandler(service *service.RoleService) *RoleHandler {
	return &RoleHandler{service: service}
}

// RoleRequest carries the name and permission set for both create and
// update.
type RoleRequest struct {
	Name        string   `json:"name" binding:"required,min=2"`
	Permissions []string `json:"permissions"`
}

// ListRoles godoc
// GET /api/v1/roles
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.service.ListRoles(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"roles": roles})
}

// GetRole godoc
// GET /api/v1/roles/:id
func (h *RoleHandler) GetRole(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	role, err := h.service.GetRoleByID(c.Request.Context(), id)
	if err != nil {
		failRole(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"role": role})
}

// CreateRole godoc
// POST /api/v1/roles
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req RoleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	role, err := h.service.CreateRole(c.Request.Context(), req.Name, req.Permissions)
	if err != nil {
		failRole(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"role": role})
}

// UpdateRole godoc
// PUT /api/v1/roles/:id
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req RoleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	role, err := h.service.UpdateRole(c.Request.Context(), id, req.Name, req.Permissions)
	if err != nil {
		failRole(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"role": role})
}

// DeleteRole godoc
// DELETE /api/v1/roles/:id
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteRole(c.Request.Context(), id); err != nil {
		failRole(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "role deleted successfully"})
}

// GetPermissions godoc
// GET /api/v1/roles/permissions
func (h *RoleHandler) GetPermissions(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"permissions": h.service.PermissionCatalog()})
}

// failRole translates role errors into API responses.
func failRole(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRoleImmutable):
		response.Fail(c, http.StatusForbidden, response.ErrActionForbidden)
	case errors.Is(err, service.ErrRoleNameEmpty):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"name": "required"})
	case errors.Is(err, repository.ErrRoleNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, repository.ErrRoleNameTaken):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	case errors.Is(err, repository.ErrRoleInUse):
		response.Fail(c, http.StatusConflict, response.ErrDependencyExists)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
