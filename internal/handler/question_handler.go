package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/quizsmith/quizsmith-backend/internal/response"
	"github.com/quizsmith/quizsmith-backend/internal/service"
	"github.com/quizsmith/quizsmith-backend/internal/validator"
)

// QuestionHandler handles REST question management. The editor stream
// has its own question path through the snapshot worker.
type QuestionHandler struct {
	questionService *service.QuestionService
}

func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// ListQuestions godoc
// GET /api/v1/pages/:page_id/questions
// Returns a page's questions in display order, correct answers included.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	pageID, ok := pageParam(c)
	if !ok {
		return
	}

	questions, err := h.questionService.ListByPage(c.Request.Context(), pageID, authorFilterFor(claims))
	if err != nil {
		h.failQuestionAction(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// ReplaceQuestions godoc
// PUT /api/v1/pages/:page_id/questions
// Replaces the page's full question list in one transaction.
func (h *QuestionHandler) ReplaceQuestions(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}

	pageID, ok := pageParam(c)
	if !ok {
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.questionService.ReplaceAll(c.Request.Context(), pageID, authorFilterFor(claims), req.Questions)
	if err != nil {
		h.failQuestionAction(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// failQuestionAction maps question service errors onto API error codes.
func (h *QuestionHandler) failQuestionAction(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotPageAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotPageAuthor)
	case errors.Is(err, service.ErrPageArchived):
		response.Fail(c, http.StatusBadRequest, response.ErrActionForbidden)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
