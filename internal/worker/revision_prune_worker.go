package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizsmith/quizsmith-backend/internal/config"
	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	pruneBatchMax  = 50
	pruneBatchWait = 5 * time.Second
)

// RevisionPruneWorker consumes revision_prune_queue and trims each
// page's revision history down to the keep limit. Page IDs are
// collected into a set, so a burst of saves costs one DELETE.
type RevisionPruneWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	cfg  *config.Config
	log  zerolog.Logger
}

func NewRevisionPruneWorker(pool *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *RevisionPruneWorker {
	return &RevisionPruneWorker{
		pool: pool,
		rdb:  rdb,
		cfg:  cfg,
		log:  log.With().Str("component", "revision_prune_worker").Logger(),
	}
}

type prunePayload struct {
	PageID string `json:"page_id"`
}

func (w *RevisionPruneWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Revision prune worker started")

	pending := make(map[uuid.UUID]struct{}, pruneBatchMax)
	var oldest time.Time

	for {
		id, ok := w.nextPageID(ctx)
		if ctx.Err() != nil {
			w.flush(context.Background(), pending)
			return
		}
		if ok {
			if len(pending) == 0 {
				oldest = time.Now()
			}
			pending[id] = struct{}{}
		}

		if len(pending) == 0 {
			continue
		}
		if len(pending) >= pruneBatchMax || time.Since(oldest) >= pruneBatchWait {
			w.flush(ctx, pending)
			clear(pending)
		}
	}
}

func (w *RevisionPruneWorker) nextPageID(ctx context.Context) (uuid.UUID, bool) {
	entry, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.RevisionPruneQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Queue read failed")
		}
		return uuid.Nil, false
	}
	if len(entry) < 2 {
		return uuid.Nil, false
	}

	var p prunePayload
	if err := json.Unmarshal([]byte(entry[1]), &p); err != nil {
		w.log.Error().Err(err).Msg("Dropping unreadable prune request")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(p.PageID)
	if err != nil {
		w.log.Error().Str("page_id", p.PageID).Msg("Dropping prune request with bad page id")
		return uuid.Nil, false
	}
	return id, true
}

func (w *RevisionPruneWorker) flush(ctx context.Context, pending map[uuid.UUID]struct{}) {
	if len(pending) == 0 {
		return
	}
	ids := make([]uuid.UUID, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}

	if err := w.prune(ctx, ids); err != nil {
		w.log.Error().Err(err).Int("pages", len(ids)).Msg("Batch prune failed, retrying pages one by one")
		for _, id := range ids {
			if err := w.prune(ctx, []uuid.UUID{id}); err != nil {
				// The next save of this page re-enqueues it, so a lost
				// prune only delays trimming.
				w.log.Error().Err(err).Str("page_id", id.String()).Msg("Revision prune failed")
			}
		}
	}
}

func (w *RevisionPruneWorker) prune(ctx context.Context, pageIDs []uuid.UUID) error {
	query := `
		DELETE FROM page_revisions
		WHERE id IN (
			SELECT id FROM (
				SELECT id,
				       ROW_NUMBER() OVER (PARTITION BY page_id ORDER BY seq DESC) AS rn
				FROM page_revisions
				WHERE page_id = ANY($1::uuid[])
			) ranked
			WHERE ranked.rn > $2
		)
	`

	res, err := w.pool.Exec(ctx, query, pageIDs, w.keepLimit(ctx))
	if err != nil {
		return err
	}

	if pruned := res.RowsAffected(); pruned > 0 {
		w.log.Debug().
			Int64("pruned", pruned).
			Int("pages", len(pageIDs)).
			Msg("Old revisions pruned")
	}
	return nil
}

// keepLimit resolves the per-page revision cap, preferring the app
// setting over the environment default.
func (w *RevisionPruneWorker) keepLimit(ctx context.Context) int {
	var value string
	err := w.pool.QueryRow(ctx,
		`SELECT value FROM app_settings WHERE key = $1`,
		model.SettingKeyRevisionKeepLimit,
	).Scan(&value)
	if err == nil {
		if n, convErr := strconv.Atoi(value); convErr == nil && n > 0 {
			return n
		}
	}
	return w.cfg.RevisionKeepLimit
}
