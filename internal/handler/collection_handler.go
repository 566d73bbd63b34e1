package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/quizsmith/quizsmith-backend/internal/repository"
	"github.com/quizsmith/quizsmith-backend/internal/response"
	"github.com/quizsmith/quizsmith-backend/internal/service"
	"github.com/quizsmith/quizsmith-backend/internal/validator"
)

type CollectionHandler struct {
	collectionService *service.CollectionService
}

func NewCollectionHandler(collectionService *service.CollectionService) *CollectionHandler {
	return &CollectionHandler{collectionService: collectionService}
}

// GetAll godoc
// GET /api/v1/collections
func (h *CollectionHandler) GetAll(c *gin.Context) {
	collections, err := h.collectionService.GetAll(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if collections == nil {
		collections = []model.Collection{}
	}

	response.Success(c, http.StatusOK, gin.H{"collections": collections})
}

// Create godoc
// POST /api/v1/collections
func (h *CollectionHandler) Create(c *gin.Context) {
	var req model.CreateCollectionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	col := &model.Collection{Name: req.Name, Description: req.Description}
	if err := h.collectionService.Create(c.Request.Context(), col); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"collection": col})
}

// Update godoc
// PUT /api/v1/collections/:id
func (h *CollectionHandler) Update(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	var req model.UpdateCollectionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	col := &model.Collection{ID: id, Name: req.Name, Description: req.Description}
	if err := h.collectionService.Update(c.Request.Context(), col); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "collection updated successfully"})
}

// Delete godoc
// DELETE /api/v1/collections/:id
func (h *CollectionHandler) Delete(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}

	if err := h.collectionService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrCollectionInUse) {
			response.Fail(c, http.StatusConflict, response.ErrDependencyExists)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "collection deleted successfully"})
}
