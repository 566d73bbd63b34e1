package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizsmith/quizsmith-backend/internal/model"
)

// RevisionRepository reads the snapshot history the save worker writes.
// Rows are append-only from the API's point of view; only the prune
// worker deletes them.
type RevisionRepository struct {
	pool *pgxpool.Pool
}

func NewRevisionRepository(pool *pgxpool.Pool) *RevisionRepository {
	return &RevisionRepository{pool: pool}
}

// ListByPagePaginated returns one window of a page's revisions, newest
// first, plus the total count.
func (r *RevisionRepository) ListByPagePaginated(ctx context.Context, pageID uuid.UUID, limit, offset int) ([]model.PageRevision, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM page_revisions WHERE page_id = $1`, pageID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, page_id, seq, snapshot, trigger, created_at
		 FROM page_revisions WHERE page_id = $1
		 ORDER BY seq DESC LIMIT $2 OFFSET $3`,
		pageID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var revisions []model.PageRevision
	for rows.Next() {
		var rev model.PageRevision
		if err := rows.Scan(&rev.ID, &rev.PageID, &rev.Seq, &rev.Snapshot, &rev.Trigger, &rev.CreatedAt); err != nil {
			return nil, 0, err
		}
		revisions = append(revisions, rev)
	}
	return revisions, total, rows.Err()
}

// GetByID retrieves a single revision.
func (r *RevisionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PageRevision, error) {
	rev := &model.PageRevision{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, page_id, seq, snapshot, trigger, created_at
		 FROM page_revisions WHERE id = $1`, id,
	).Scan(&rev.ID, &rev.PageID, &rev.Seq, &rev.Snapshot, &rev.Trigger, &rev.CreatedAt)
	if err != nil {
		return nil, err
	}
	return rev, nil
}

// PruneKeepLatest deletes all but the newest keep revisions of a page.
// Returns the number of rows removed.
func (r *RevisionRepository) PruneKeepLatest(ctx context.Context, pageID uuid.UUID, keep int) (int64, error) {
	res, err := r.pool.Exec(ctx, `
		DELETE FROM page_revisions
		WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (ORDER BY seq DESC) AS rn
				FROM page_revisions
				WHERE page_id = $1
			) ranked
			WHERE ranked.rn > $2
		)
	`, pageID, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}
