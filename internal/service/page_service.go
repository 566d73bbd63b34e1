package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/quizsmith/quizsmith-backend/internal/autosave"
	"github.com/quizsmith/quizsmith-backend/internal/config"
	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/quizsmith/quizsmith-backend/internal/repository"
	"github.com/quizsmith/quizsmith-backend/internal/response"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	ErrNotPageAuthor    = errors.New("not the author of this page")
	ErrNoQuestions      = errors.New("page has no questions, cannot publish")
	ErrPageNotDraft     = errors.New("page status is not DRAFT")
	ErrPageNotPublished = errors.New("page status is not PUBLISHED")
	ErrPageNotCached    = errors.New("no cached payload for page")
)

// PageService owns the page lifecycle (draft, published, archived) and
// the Redis payload cache the reader endpoints serve from.
type PageService struct {
	pageRepo     *repository.PageRepository
	questionRepo *repository.QuestionRepository
	revisionRepo *repository.RevisionRepository
	activity     *ActivityService
	rdb          *redis.Client
	log          zerolog.Logger
}

func NewPageService(
	pageRepo *repository.PageRepository,
	questionRepo *repository.QuestionRepository,
	revisionRepo *repository.RevisionRepository,
	activity *ActivityService,
	rdb *redis.Client,
	log zerolog.Logger,
) *PageService {
	return &PageService{
		pageRepo:     pageRepo,
		questionRepo: questionRepo,
		revisionRepo: revisionRepo,
		activity:     activity,
		rdb:          rdb,
		log:          log.With().Str("component", "page_service").Logger(),
	}
}

func (s *PageService) GetByID(ctx context.Context, id uuid.UUID) (*model.Page, error) {
	return s.pageRepo.GetByID(ctx, id)
}

// loadOwned fetches a page and checks it belongs to authorID. Callers
// holding pages:write_all pass 0 and skip the ownership check.
func (s *PageService) loadOwned(ctx context.Context, pageID uuid.UUID, authorID int) (*model.Page, error) {
	page, err := s.pageRepo.GetByID(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if authorID != 0 && page.AuthorID != authorID {
		return nil, ErrNotPageAuthor
	}
	return page, nil
}

// ListByAuthor lists pages for the dashboard. authorID 0 lists every
// author's pages.
func (s *PageService) ListByAuthor(ctx context.Context, authorID, page, perPage int) ([]model.Page, *response.Pagination, error) {
	window := response.Window(page, perPage, 10)

	pages, total, err := s.pageRepo.ListByAuthorPaginated(ctx, authorID, window.PerPage, window.Offset())
	if err != nil {
		return nil, nil, err
	}
	if pages == nil {
		pages = []model.Page{}
	}
	return pages, window.Result(total), nil
}

// Create inserts a new page as DRAFT.
func (s *PageService) Create(ctx context.Context, page *model.Page) error {
	page.Status = model.PageStatusDraft
	if err := s.pageRepo.Create(ctx, page); err != nil {
		return err
	}

	s.activity.Emit(ctx, model.ActivityPageCreated, &page.ID, &page.AuthorID, map[string]interface{}{
		"title": page.Title,
	})
	return nil
}

// UpdateMeta updates REST-editable metadata on a page owned by the
// author. Empty values keep what the page already has.
func (s *PageService) UpdateMeta(ctx context.Context, pageID uuid.UUID, authorID int, title string, collectionID *int) error {
	existing, err := s.loadOwned(ctx, pageID, authorID)
	if err != nil {
		return err
	}

	if title == "" {
		title = existing.Title
	}
	if collectionID == nil {
		collectionID = existing.CollectionID
	}
	return s.pageRepo.UpdateMeta(ctx, pageID, title, collectionID)
}

// Publish flips a draft to PUBLISHED. The payload cache is written
// first, so the page is never visible to readers before it is servable.
func (s *PageService) Publish(ctx context.Context, pageID uuid.UUID, authorID int) error {
	page, err := s.loadOwned(ctx, pageID, authorID)
	if err != nil {
		return err
	}
	if page.Status != model.PageStatusDraft {
		return ErrPageNotDraft
	}

	if err := s.WarmPageCache(ctx, page); err != nil {
		return err
	}
	if err := s.pageRepo.UpdateStatus(ctx, pageID, model.PageStatusPublished); err != nil {
		return fmt.Errorf("set status: %w", err)
	}

	s.activity.Emit(ctx, model.ActivityPagePublished, &pageID, &authorID, map[string]interface{}{
		"title": page.Title,
	})
	s.log.Info().Str("page_id", pageID.String()).Msg("Page published")
	return nil
}

// Archive moves a published page out of the reader surface and drops
// its cached payload.
func (s *PageService) Archive(ctx context.Context, pageID uuid.UUID, authorID int) error {
	page, err := s.loadOwned(ctx, pageID, authorID)
	if err != nil {
		return err
	}
	if page.Status != model.PageStatusPublished {
		return ErrPageNotPublished
	}

	if err := s.pageRepo.UpdateStatus(ctx, pageID, model.PageStatusArchived); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if err := s.rdb.Del(ctx, config.CacheKey.PagePayloadKey(pageID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("page_id", pageID.String()).Msg("Failed to drop cached payload")
	}

	s.activity.Emit(ctx, model.ActivityPageArchived, &pageID, &authorID, map[string]interface{}{
		"title": page.Title,
	})
	s.log.Info().Str("page_id", pageID.String()).Msg("Page archived")
	return nil
}

// Delete removes a draft page.
func (s *PageService) Delete(ctx context.Context, id uuid.UUID, authorID int) error {
	existing, err := s.loadOwned(ctx, id, authorID)
	if err != nil {
		return err
	}
	if existing.Status != model.PageStatusDraft {
		return ErrPageNotDraft
	}
	return s.pageRepo.Delete(ctx, id)
}

// RefreshCache rebuilds the cached payload of a published page. Called
// when content changes after publish.
func (s *PageService) RefreshCache(ctx context.Context, pageID uuid.UUID, authorID int) error {
	page, err := s.loadOwned(ctx, pageID, authorID)
	if err != nil {
		return err
	}
	if page.Status != model.PageStatusPublished {
		return ErrPageNotPublished
	}

	if err := s.WarmPageCache(ctx, page); err != nil {
		return err
	}
	s.log.Info().Str("page_id", pageID.String()).Msg("Payload cache rebuilt")
	return nil
}

// WarmPageCache builds the reader payload for one page and writes it to
// Redis. Correct answers never enter the payload, and stored option
// strings are split into lists.
func (s *PageService) WarmPageCache(ctx context.Context, page *model.Page) error {
	questions, err := s.questionRepo.ListByPage(ctx, page.ID)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	readerQuestions := make([]model.QuestionForReader, len(questions))
	for i, q := range questions {
		readerQuestions[i] = model.QuestionForReader{
			ID:       q.ID,
			Prompt:   q.Prompt,
			Kind:     q.Kind,
			Options:  autosave.ParseOptions(q.Options),
			OrderNum: q.OrderNum,
		}
	}

	payload := model.PagePayload{
		PageID:        page.ID,
		Title:         page.Title,
		Summary:       page.Summary,
		Body:          page.Body,
		CoverImageURL: page.CoverImageURL,
		Questions:     readerQuestions,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.PagePayloadKey(page.ID.String()), payloadJSON, 0).Err(); err != nil {
		return fmt.Errorf("write payload cache: %w", err)
	}

	s.log.Debug().
		Str("page_id", page.ID.String()).
		Int("questions", len(questions)).
		Msg("Reader payload cached")
	return nil
}

// PrewarmAllCaches caches the reader payload of every published page.
// The reader endpoints only ever read Redis, so boot must fill the
// cache before traffic arrives.
func (s *PageService) PrewarmAllCaches(ctx context.Context) error {
	pages, err := s.pageRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published pages: %w", err)
	}
	if len(pages) == 0 {
		s.log.Info().Msg("No published pages, nothing to warm")
		return nil
	}

	warmed := 0
	for i := range pages {
		if err := s.WarmPageCache(ctx, &pages[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("page_id", pages[i].ID.String()).
				Msg("Skipping page that failed to warm")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("skipped", len(pages)-warmed).
		Msg("Prewarm finished")
	return nil
}

// GetPagePayload reads the cached reader payload.
func (s *PageService) GetPagePayload(ctx context.Context, pageID uuid.UUID) (*model.PagePayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.PagePayloadKey(pageID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPageNotCached
		}
		return nil, fmt.Errorf("read payload cache: %w", err)
	}

	var payload model.PagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &payload, nil
}

// ListPublished returns all published pages for the public index.
func (s *PageService) ListPublished(ctx context.Context) ([]model.Page, error) {
	return s.pageRepo.ListPublished(ctx)
}

// ListRevisions returns a page's saved snapshot history, newest first.
func (s *PageService) ListRevisions(ctx context.Context, pageID uuid.UUID, authorID, page, perPage int) ([]model.PageRevision, *response.Pagination, error) {
	if _, err := s.loadOwned(ctx, pageID, authorID); err != nil {
		return nil, nil, err
	}

	window := response.Window(page, perPage, 20)
	revisions, total, err := s.revisionRepo.ListByPagePaginated(ctx, pageID, window.PerPage, window.Offset())
	if err != nil {
		return nil, nil, err
	}
	if revisions == nil {
		revisions = []model.PageRevision{}
	}
	return revisions, window.Result(total), nil
}
