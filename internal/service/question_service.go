package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/quizsmith/quizsmith-backend/internal/autosave"
	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/quizsmith/quizsmith-backend/internal/repository"
)

// QuestionService handles question business logic for the REST surface.
// WebSocket editor sessions bypass it; their question writes land through
// the snapshot persistence worker instead.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	pageService  *PageService
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository, pageService *PageService) *QuestionService {
	return &QuestionService{questionRepo: questionRepo, pageService: pageService}
}

// ListByPage retrieves all questions for a page the author owns.
func (s *QuestionService) ListByPage(ctx context.Context, pageID uuid.UUID, authorID int) ([]model.Question, error) {
	page, err := s.pageService.GetByID(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if authorID != 0 && page.AuthorID != authorID {
		return nil, ErrNotPageAuthor
	}
	return s.questionRepo.ListByPage(ctx, pageID)
}

// ReplaceAll replaces the whole question list of a page. Inputs pass
// through the same normalization the editor applies, so a correct
// answer dangling after an option edit never reaches storage.
func (s *QuestionService) ReplaceAll(ctx context.Context, pageID uuid.UUID, authorID int, inputs []model.QuestionInput) ([]model.Question, error) {
	page, err := s.pageService.GetByID(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if authorID != 0 && page.AuthorID != authorID {
		return nil, ErrNotPageAuthor
	}
	if page.Status == model.PageStatusArchived {
		return nil, ErrPageArchived
	}

	drafts := make([]autosave.Question, 0, len(inputs))
	for _, in := range inputs {
		drafts = append(drafts, autosave.Question{
			Prompt:        in.Prompt,
			Kind:          autosave.AnswerKind(in.Kind),
			Options:       in.Options,
			CorrectAnswer: in.CorrectAnswer,
		})
	}
	normalized := autosave.NormalizeQuestions(drafts)

	questions := make([]model.Question, 0, len(normalized))
	for _, q := range normalized {
		questions = append(questions, model.Question{
			PageID:        pageID,
			Prompt:        q.Prompt,
			Kind:          model.AnswerKind(q.Kind),
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
		})
	}

	if err := s.questionRepo.ReplaceForPage(ctx, pageID, questions); err != nil {
		return nil, fmt.Errorf("replace questions: %w", err)
	}

	// A published page serves its payload from cache; rebuild it.
	if page.Status == model.PageStatusPublished {
		if err := s.pageService.WarmPageCache(ctx, page); err != nil {
			return nil, err
		}
	}

	return s.questionRepo.ListByPage(ctx, pageID)
}
