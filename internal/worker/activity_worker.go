package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizsmith/quizsmith-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	activityBatchMax   = 50
	activityFlushEvery = 2 * time.Second
)

// ActivityWorker consumes activity_events_queue and batch-inserts events
// into the activity log. The live feed already saw each event via
// pub/sub; this worker only owns the durable copy.
type ActivityWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewActivityWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ActivityWorker {
	return &ActivityWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "activity_worker").Logger(),
	}
}

type activityJob struct {
	Action    string          `json:"action"`
	PageID    string          `json:"page_id,omitempty"`
	AuthorID  int             `json:"author_id,omitempty"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt string          `json:"created_at"`
}

func (w *ActivityWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Activity worker started")

	pending := make([]activityJob, 0, activityBatchMax)
	var oldest time.Time

	for {
		job, ok := w.nextJob(ctx)
		if ctx.Err() != nil {
			w.finalFlush(pending)
			return
		}
		if ok {
			if len(pending) == 0 {
				oldest = time.Now()
			}
			pending = append(pending, job)
		}

		if len(pending) == 0 {
			continue
		}
		if len(pending) >= activityBatchMax || time.Since(oldest) >= activityFlushEvery {
			w.store(ctx, pending)
			pending = pending[:0]
		}
	}
}

// nextJob waits up to one second for a queue entry, so the flush timer
// above is rechecked at least that often.
func (w *ActivityWorker) nextJob(ctx context.Context) (activityJob, bool) {
	entry, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.ActivityEventsQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Queue read failed, backing off")
			time.Sleep(3 * time.Second)
		}
		return activityJob{}, false
	}
	if len(entry) < 2 {
		return activityJob{}, false
	}

	var job activityJob
	if err := json.Unmarshal([]byte(entry[1]), &job); err != nil {
		// Bad JSON cannot succeed on retry.
		w.log.Error().Err(err).Str("data", entry[1]).Msg("Dropping unreadable activity event")
		return activityJob{}, false
	}
	return job, true
}

// store lands the batch with COPY. When that fails, rows go in one at a
// time so a single bad event cannot sink its batchmates.
func (w *ActivityWorker) store(ctx context.Context, batch []activityJob) {
	if err := w.copyBatch(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Batch copy failed, inserting rows individually")
		w.insertEach(ctx, batch)
	}
}

func (w *ActivityWorker) copyBatch(ctx context.Context, batch []activityJob) error {
	_, err := w.pool.CopyFrom(ctx,
		pgx.Identifier{"activity_log"},
		[]string{"page_id", "author_id", "action", "detail", "created_at"},
		pgx.CopyFromSlice(len(batch), func(i int) ([]interface{}, error) {
			r, err := batch[i].row()
			if err != nil {
				return nil, err
			}
			return []interface{}{r.pageID, r.authorID, batch[i].Action, r.detail, r.createdAt}, nil
		}),
	)
	return err
}

func (w *ActivityWorker) insertEach(ctx context.Context, batch []activityJob) {
	var stuck []activityJob
	for _, j := range batch {
		r, err := j.row()
		if err != nil {
			w.log.Error().Str("page_id", j.PageID).Msg("Dropping activity event with bad page id")
			continue
		}
		_, err = w.pool.Exec(ctx,
			`INSERT INTO activity_log (page_id, author_id, action, detail, created_at)
			 VALUES ($1, $2, $3, $4::jsonb, $5)`,
			r.pageID, r.authorID, j.Action, r.detail, r.createdAt,
		)
		if err != nil {
			w.log.Error().Err(err).Str("action", j.Action).Msg("Activity insert failed")
			stuck = append(stuck, j)
		}
	}
	if len(stuck) == 0 {
		return
	}

	// Rows that still failed go back on the queue. The pause keeps a
	// down database from being hammered in a tight loop.
	pipe := w.rdb.Pipeline()
	for _, j := range stuck {
		data, _ := json.Marshal(j)
		pipe.RPush(ctx, config.WorkerKey.ActivityEventsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(stuck)).Msg("Requeue failed, events lost")
		return
	}
	w.log.Info().Int("count", len(stuck)).Msg("Requeued events after insert failure")
	time.Sleep(2 * time.Second)
}

func (w *ActivityWorker) finalFlush(pending []activityJob) {
	if len(pending) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w.log.Info().Int("count", len(pending)).Msg("Flushing buffered events before exit")
	w.store(ctx, pending)
}

// row holds the nullable insert values for one event.
type activityRow struct {
	pageID    interface{}
	authorID  interface{}
	detail    interface{}
	createdAt time.Time
}

func (j *activityJob) row() (activityRow, error) {
	var r activityRow
	if j.PageID != "" {
		id, err := uuid.Parse(j.PageID)
		if err != nil {
			return r, err
		}
		r.pageID = id
	}
	if j.AuthorID != 0 {
		r.authorID = j.AuthorID
	}
	if len(j.Detail) > 0 {
		r.detail = string(j.Detail)
	}
	r.createdAt = time.Now()
	if t, err := time.Parse(time.RFC3339, j.CreatedAt); err == nil {
		r.createdAt = t
	}
	return r, nil
}
