package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizsmith/quizsmith-backend/internal/config"
	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/quizsmith/quizsmith-backend/internal/response"
	"github.com/quizsmith/quizsmith-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	keepAliveInterval = 30 * time.Second
	snapshotLimit     = 50
)

// ActivityHandler serves the activity log and its live SSE feed.
type ActivityHandler struct {
	rdb             *redis.Client
	activityService *service.ActivityService
	log             zerolog.Logger
}

func NewActivityHandler(rdb *redis.Client, activityService *service.ActivityService, log zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		rdb:             rdb,
		activityService: activityService,
		log:             log.With().Str("component", "activity_handler").Logger(),
	}
}

// ListActivity godoc
// GET /api/v1/activity
// Returns the most recent activity log entries, newest first.
func (h *ActivityHandler) ListActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	events, err := h.activityService.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if events == nil {
		events = []model.ActivityEvent{}
	}

	response.Success(c, http.StatusOK, gin.H{"events": events})
}

// StreamActivity godoc
// GET /api/v1/activity/stream
// Live activity feed over SSE: an initial snapshot of recent entries,
// then every event the workers publish, with periodic keepalive pings.
func (h *ActivityHandler) StreamActivity(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	if !slices.Contains(claims.Permissions, string(model.PermissionActivityRead)) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	ctx := c.Request.Context()
	sseHeaders(c)
	h.sendSnapshot(c)

	pubsub := h.rdb.Subscribe(ctx, config.CacheKey.ActivityChannel())
	defer pubsub.Close()

	keepalive := time.NewTicker(keepAliveInterval)
	defer keepalive.Stop()

	h.log.Info().Int("author_id", claims.AuthorID).Msg("Activity feed attached")
	defer h.log.Info().Int("author_id", claims.AuthorID).Msg("Activity feed closed")

	ping, _ := json.Marshal(map[string]string{"type": "ping"})
	events := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-events:
			// The payload is already JSON, write it through untouched.
			fmt.Fprintf(c.Writer, "data: %s\n\n", msg.Payload)
			c.Writer.Flush()

		case <-keepalive.C:
			fmt.Fprintf(c.Writer, "data: %s\n\n", ping)
			c.Writer.Flush()
		}
	}
}

// sendSnapshot opens the stream with the most recent log entries, so a
// fresh dashboard paints without waiting for the first live event.
func (h *ActivityHandler) sendSnapshot(c *gin.Context) {
	events, err := h.activityService.Recent(c.Request.Context(), snapshotLimit)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to build activity snapshot")
	}
	if events == nil {
		events = []model.ActivityEvent{}
	}

	c.SSEvent("message", map[string]interface{}{
		"type":   "snapshot",
		"events": events,
	})
	c.Writer.Flush()
}
