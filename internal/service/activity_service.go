package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/quizsmith/quizsmith-backend/internal/config"
	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/quizsmith/quizsmith-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ActivityService fans activity events out to the live feed channel and
// the persistence queue. Emission is fire-and-forget; the log is the
// source of truth only after the activity worker lands the batch.
type ActivityService struct {
	activityRepo *repository.ActivityRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewActivityService creates a new ActivityService.
func NewActivityService(activityRepo *repository.ActivityRepository, rdb *redis.Client, log zerolog.Logger) *ActivityService {
	return &ActivityService{
		activityRepo: activityRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "activity_service").Logger(),
	}
}

// Emit queues one event for persistence and broadcasts it to feed
// subscribers. Errors are logged, never returned; activity must not
// fail the operation that caused it.
func (s *ActivityService) Emit(ctx context.Context, action string, pageID *uuid.UUID, authorID *int, detail interface{}) {
	event := map[string]interface{}{
		"action":     action,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	if pageID != nil {
		event["page_id"] = pageID.String()
	}
	if authorID != nil && *authorID != 0 {
		event["author_id"] = *authorID
	}
	if detail != nil {
		event["detail"] = detail
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Error().Err(err).Str("action", action).Msg("Marshal activity event failed")
		return
	}

	pipe := s.rdb.Pipeline()
	pipe.RPush(ctx, config.WorkerKey.ActivityEventsQueue, payload)
	pipe.Publish(ctx, config.CacheKey.ActivityChannel(), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("action", action).Msg("Activity emit failed")
	}
}

// Recent returns the newest persisted events for feed bootstrap.
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]model.ActivityEvent, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.activityRepo.ListRecent(ctx, limit)
}
