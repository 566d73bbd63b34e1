package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizsmith/quizsmith-backend/internal/response"
	"github.com/quizsmith/quizsmith-backend/internal/service"
)

type MediaHandler struct {
	media *service.MediaService
}

func NewMediaHandler(media *service.MediaService) *MediaHandler {
	return &MediaHandler{media: media}
}

// UploadMedia godoc
// POST /api/v1/media/upload
// Stores a cover image and returns its URL plus content-derived image
// ID. The pair comes back through the editor's set_cover action.
func (h *MediaHandler) UploadMedia(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	url, imageID, err := h.media.SaveUpload(c.Request.Context(), claims.AuthorID, file, header)
	if err != nil {
		failUpload(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"url": url, "image_id": imageID})
}

func failUpload(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnsupportedFileType):
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
	case errors.Is(err, service.ErrFileTooLarge):
		response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
