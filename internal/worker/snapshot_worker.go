package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizsmith/quizsmith-backend/internal/autosave"
	"github.com/quizsmith/quizsmith-backend/internal/config"
	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SnapshotWorker consumes persist_snapshots_queue and writes each
// consolidated snapshot to PostgreSQL in one transaction: page fields,
// the replaced question list, and a new revision row. Jobs are handled
// one at a time, so a page's revisions land in queue order.
type SnapshotWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewSnapshotWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SnapshotWorker {
	return &SnapshotWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "snapshot_worker").Logger(),
	}
}

type snapshotJob struct {
	PageID   string             `json:"page_id"`
	AuthorID int                `json:"author_id"`
	Trigger  string             `json:"trigger"`
	Snapshot *autosave.Snapshot `json:"snapshot"`
	QueuedAt string             `json:"queued_at"`
}

// Start runs the consume loop until ctx is cancelled, then empties
// whatever the queue still holds so shutdown loses no snapshots.
func (w *SnapshotWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Snapshot worker started")

	for ctx.Err() == nil {
		w.consumeOne(ctx)
	}

	w.log.Info().Msg("Snapshot worker draining")
	w.drainQueue(context.Background())
	w.log.Info().Msg("Snapshot worker stopped")
}

func (w *SnapshotWorker) consumeOne(ctx context.Context) {
	entry, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistSnapshotsQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Queue read failed")
		}
		return
	}
	if len(entry) < 2 {
		return
	}

	var job snapshotJob
	if err := json.Unmarshal([]byte(entry[1]), &job); err != nil {
		w.log.Error().Err(err).Msg("Dropping unreadable snapshot job")
		return
	}

	if err := w.persistSnapshot(ctx, &job); err != nil {
		// Push the entry back and pause. Almost every failure here is
		// the database being unreachable, not a bad job.
		w.log.Error().Err(err).
			Str("page_id", job.PageID).
			Msg("Snapshot persist failed, requeueing")
		w.rdb.RPush(ctx, config.WorkerKey.PersistSnapshotsQueue, entry[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *SnapshotWorker) persistSnapshot(ctx context.Context, job *snapshotJob) error {
	pageID, err := uuid.Parse(job.PageID)
	if err != nil {
		w.log.Error().Str("page_id", job.PageID).Msg("Dropping job with invalid page UUID")
		return nil
	}
	if job.Snapshot == nil {
		w.log.Error().Str("page_id", job.PageID).Msg("Dropping job without snapshot")
		return nil
	}
	snap := job.Snapshot

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var status model.PageStatus
	err = tx.QueryRow(ctx,
		`UPDATE pages
		 SET title = $1, summary = $2, body = $3,
		     cover_image_url = $4, cover_image_id = $5,
		     question_count = $6, last_saved_at = NOW(), updated_at = NOW()
		 WHERE id = $7
		 RETURNING status`,
		snap.Fields["title"], snap.Fields["summary"], snap.Fields["body"],
		snap.ImageURL, snap.ImageID, len(snap.Questions), pageID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Page deleted while the snapshot sat in the queue.
			w.log.Warn().Str("page_id", job.PageID).Msg("Dropping snapshot for missing page")
			return nil
		}
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE page_id = $1`, pageID); err != nil {
		return err
	}

	questionIDs := make([]uuid.UUID, 0, len(snap.Questions))
	if len(snap.Questions) > 0 {
		n := len(snap.Questions)
		prompts := make([]string, 0, n)
		kinds := make([]string, 0, n)
		options := make([]string, 0, n)
		answers := make([]string, 0, n)
		orders := make([]int, 0, n)
		for i, q := range snap.Questions {
			questionIDs = append(questionIDs, uuid.New())
			prompts = append(prompts, q.Prompt)
			kinds = append(kinds, string(q.Kind))
			options = append(options, q.Options)
			answers = append(answers, q.CorrectAnswer)
			orders = append(orders, i+1)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO questions (id, page_id, prompt, kind, options, correct_answer, order_num)
			 SELECT u.id, $1, u.prompt, u.kind, u.options, u.correct_answer, u.order_num
			 FROM UNNEST($2::uuid[], $3::text[], $4::text[], $5::text[], $6::text[], $7::int[])
			      AS u(id, prompt, kind, options, correct_answer, order_num)`,
			pageID, questionIDs, prompts, kinds, options, answers, orders,
		)
		if err != nil {
			return err
		}
	}

	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	var seq int
	err = tx.QueryRow(ctx,
		`INSERT INTO page_revisions (id, page_id, seq, snapshot, trigger)
		 VALUES ($1, $2, (SELECT COALESCE(MAX(seq), 0) + 1 FROM page_revisions WHERE page_id = $2), $3::jsonb, $4)
		 RETURNING seq`,
		uuid.New(), pageID, snapJSON, job.Trigger,
	).Scan(&seq)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	// A published page serves readers from cache; rebuild it from the
	// snapshot just persisted.
	if status == model.PageStatusPublished {
		w.refreshPayloadCache(ctx, pageID, snap, questionIDs)
	}

	w.emitSaved(ctx, job, seq)
	w.enqueuePrune(ctx, job.PageID)

	w.log.Debug().
		Str("page_id", job.PageID).
		Int("seq", seq).
		Str("trigger", job.Trigger).
		Msg("Snapshot persisted")
	return nil
}

// refreshPayloadCache overwrites the cached reader payload. Correct
// answers never enter the payload.
func (w *SnapshotWorker) refreshPayloadCache(ctx context.Context, pageID uuid.UUID, snap *autosave.Snapshot, questionIDs []uuid.UUID) {
	questions := make([]model.QuestionForReader, 0, len(snap.Questions))
	for i, q := range snap.Questions {
		questions = append(questions, model.QuestionForReader{
			ID:       questionIDs[i],
			Prompt:   q.Prompt,
			Kind:     model.AnswerKind(q.Kind),
			Options:  autosave.ParseOptions(q.Options),
			OrderNum: i + 1,
		})
	}

	payload := model.PagePayload{
		PageID:        pageID,
		Title:         snap.Fields["title"],
		Summary:       snap.Fields["summary"],
		Body:          snap.Fields["body"],
		CoverImageURL: snap.ImageURL,
		Questions:     questions,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		w.log.Error().Err(err).Str("page_id", pageID.String()).Msg("Marshal payload failed")
		return
	}
	if err := w.rdb.Set(ctx, config.CacheKey.PagePayloadKey(pageID.String()), data, 0).Err(); err != nil {
		w.log.Warn().Err(err).Str("page_id", pageID.String()).Msg("Payload cache refresh failed")
	}
}

// emitSaved announces the authoritative save on the activity surfaces.
func (w *SnapshotWorker) emitSaved(ctx context.Context, job *snapshotJob, seq int) {
	event := map[string]interface{}{
		"action":     model.ActivityPageSaved,
		"page_id":    job.PageID,
		"created_at": time.Now().UTC().Format(time.RFC3339),
		"detail": map[string]interface{}{
			"trigger":      job.Trigger,
			"revision_seq": seq,
		},
	}
	if job.AuthorID != 0 {
		event["author_id"] = job.AuthorID
	}

	payload, err := json.Marshal(event)
	if err != nil {
		w.log.Error().Err(err).Msg("Marshal save event failed")
		return
	}

	pipe := w.rdb.Pipeline()
	pipe.RPush(ctx, config.WorkerKey.ActivityEventsQueue, payload)
	pipe.Publish(ctx, config.CacheKey.ActivityChannel(), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Warn().Err(err).Msg("Save event emit failed")
	}
}

func (w *SnapshotWorker) enqueuePrune(ctx context.Context, pageID string) {
	payload, _ := json.Marshal(map[string]interface{}{"page_id": pageID})
	if err := w.rdb.RPush(ctx, config.WorkerKey.RevisionPruneQueue, payload).Err(); err != nil {
		w.log.Warn().Err(err).Str("page_id", pageID).Msg("Prune enqueue failed")
	}
}

// drainQueue runs after the consume loop stops. The first persist
// failure ends the drain; the entry goes back so the next boot picks
// it up.
func (w *SnapshotWorker) drainQueue(ctx context.Context) {
	drained := 0
	for {
		raw, err := w.rdb.LPop(ctx, config.WorkerKey.PersistSnapshotsQueue).Result()
		if err != nil {
			break
		}

		var job snapshotJob
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			w.log.Error().Err(err).Msg("Dropping unreadable snapshot job")
			continue
		}

		if err := w.persistSnapshot(ctx, &job); err != nil {
			w.log.Error().Err(err).Str("page_id", job.PageID).Msg("Persist failed during drain, stopping")
			w.rdb.RPush(ctx, config.WorkerKey.PersistSnapshotsQueue, raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Persisted queued snapshots before exit")
	}
}
