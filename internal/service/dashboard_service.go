package service

import (
	"context"
	"time"

	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/quizsmith/quizsmith-backend/internal/repository"
)

// DashboardData is everything the authoring dashboard renders.
type DashboardData struct {
	TotalAuthors     int                              `json:"total_authors"`
	TotalPages       int                              `json:"total_pages"`
	TotalCollections int                              `json:"total_collections"`
	TotalQuestions   int                              `json:"total_questions"`
	PageStatusCounts map[model.PageStatus]int         `json:"page_status_counts"`
	RecentlySaved    []repository.DashboardRecentPage `json:"recently_saved"`
	SavesToday       int                              `json:"saves_today"`
}

type DashboardService struct {
	repo         *repository.DashboardRepository
	activityRepo *repository.ActivityRepository
}

func NewDashboardService(repo *repository.DashboardRepository, activityRepo *repository.ActivityRepository) *DashboardService {
	return &DashboardService{repo: repo, activityRepo: activityRepo}
}

// GetDashboardData gathers the dashboard metrics. SavesToday counts
// snapshot commits since local midnight.
func (s *DashboardService) GetDashboardData(ctx context.Context) (*DashboardData, error) {
	authors, pages, collections, questions, err := s.repo.GetSummaryCounts(ctx)
	if err != nil {
		return nil, err
	}

	statusCounts, err := s.repo.GetPageStatusCounts(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.repo.GetRecentlySavedPages(ctx, 5)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	savesToday, err := s.activityRepo.CountSince(ctx, model.ActivityPageSaved, midnight)
	if err != nil {
		return nil, err
	}

	return &DashboardData{
		TotalAuthors:     authors,
		TotalPages:       pages,
		TotalCollections: collections,
		TotalQuestions:   questions,
		PageStatusCounts: statusCounts,
		RecentlySaved:    recent,
		SavesToday:       savesToday,
	}, nil
}
