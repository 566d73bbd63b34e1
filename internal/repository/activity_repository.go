package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizsmith/quizsmith-backend/internal/model"
)

// ActivityRepository provides read access to the activity log. Writes go
// through the activity worker's batch path.
type ActivityRepository struct {
	pool *pgxpool.Pool
}

func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

// ListRecent returns the newest events, most recent first.
func (r *ActivityRepository) ListRecent(ctx context.Context, limit int) ([]model.ActivityEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, page_id, author_id, action, detail, created_at
		 FROM activity_log
		 ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.ActivityEvent
	for rows.Next() {
		var e model.ActivityEvent
		if err := rows.Scan(&e.ID, &e.PageID, &e.AuthorID, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if events == nil {
		events = []model.ActivityEvent{}
	}
	return events, rows.Err()
}

// CountSince returns how many events of one action happened after the
// given time.
func (r *ActivityRepository) CountSince(ctx context.Context, action string, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM activity_log WHERE action = $1 AND created_at >= $2`,
		action, since).Scan(&count)
	return count, err
}
