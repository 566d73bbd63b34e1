package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/quizsmith/quizsmith-backend/internal/response"
	"github.com/quizsmith/quizsmith-backend/internal/service"
	"github.com/quizsmith/quizsmith-backend/internal/validator"
)

type SettingHandler struct {
	settings *service.SettingService
}

func NewSettingHandler(settings *service.SettingService) *SettingHandler {
	return &SettingHandler{settings: settings}
}

// GetAllSettings godoc
// GET /api/v1/settings
func (h *SettingHandler) GetAllSettings(c *gin.Context) {
	values, err := h.settings.GetAllSettings(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settings": values})
}

// UpdateSettings godoc
// PUT /api/v1/settings
func (h *SettingHandler) UpdateSettings(c *gin.Context) {
	var req model.UpdateSettingsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.settings.UpdateSettings(c.Request.Context(), req.Settings); err != nil {
		if errors.Is(err, service.ErrSettingNotNumeric) {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"detail": err.Error()})
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "settings updated successfully"})
}

// GetPublicSettings godoc
// GET /api/v1/public/settings
// Exposes only branding keys; autosave tuning stays internal.
func (h *SettingHandler) GetPublicSettings(c *gin.Context) {
	values, err := h.settings.GetAllSettings(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	public := make(map[string]string)
	for key, value := range values {
		if strings.HasPrefix(key, "branding.") {
			public[key] = value
		}
	}
	response.Success(c, http.StatusOK, gin.H{"settings": public})
}
