package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/quizsmith/quizsmith-backend/internal/response"
	"github.com/quizsmith/quizsmith-backend/internal/service"
	"github.com/quizsmith/quizsmith-backend/internal/validator"
)

// AuthHandler serves login, logout, and the signed-in profile routes.
type AuthHandler struct {
	authService   *service.AuthService
	authorService *service.AuthorService
}

func NewAuthHandler(authService *service.AuthService, authorService *service.AuthorService) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		authorService: authorService,
	}
}

func authorPayload(author *model.Author) gin.H {
	return gin.H{
		"id":        author.ID,
		"email":     author.Email,
		"name":      author.Name,
		"role_id":   author.RoleID,
		"role_name": author.RoleName,
	}
}

// Login godoc
// POST /api/v1/auth/login
// Exchanges email and password for a JWT. A login while another
// session is still live returns 409.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.AuthorLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	author, err := h.authorService.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if err := h.authService.CheckPassword(author.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	permissions, err := h.authorService.GetPermissions(c.Request.Context(), author.RoleID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	token, err := h.authService.GenerateAuthorToken(c.Request.Context(), author.ID, author.RoleID, permissions)
	if err != nil {
		if errors.Is(err, service.ErrSessionAlreadyActive) {
			response.Fail(c, http.StatusConflict, response.ErrSessionActive)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":       token,
		"author":      authorPayload(author),
		"permissions": permissions,
	})
}

// Logout godoc
// POST /api/v1/auth/logout
// Releases the author's session slot so the next login succeeds.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	err := h.authService.ResetAuthorSession(c.Request.Context(), claims.AuthorID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetProfile godoc
// GET /api/v1/auth/me
// Returns the signed-in author and their permission codes.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	author, err := h.authorService.GetByID(c.Request.Context(), claims.AuthorID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	permissions, err := h.authorService.GetPermissions(c.Request.Context(), author.RoleID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"author":      authorPayload(author),
		"permissions": permissions,
	})
}

// ChangePassword godoc
// POST /api/v1/auth/password
// Verifies the current password before setting the new one.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	var req model.ChangePasswordRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err := h.authorService.ChangePassword(c.Request.Context(), claims.AuthorID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
