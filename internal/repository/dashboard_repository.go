package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizsmith/quizsmith-backend/internal/model"
)

// DashboardRepository runs the aggregate queries behind the author
// dashboard.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// GetSummaryCounts returns the headline totals in one round trip.
func (r *DashboardRepository) GetSummaryCounts(ctx context.Context) (totalAuthors, totalPages, totalCollections, totalQuestions int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM authors),
			(SELECT COUNT(*) FROM pages),
			(SELECT COUNT(*) FROM collections),
			(SELECT COUNT(*) FROM questions)`,
	).Scan(&totalAuthors, &totalPages, &totalCollections, &totalQuestions)
	return
}

// GetPageStatusCounts returns how many pages sit in each status.
func (r *DashboardRepository) GetPageStatusCounts(ctx context.Context) (map[model.PageStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM pages GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.PageStatus]int)
	for rows.Next() {
		var status model.PageStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// DashboardRecentPage is one row of the recently-saved list.
type DashboardRecentPage struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	AuthorName  string     `json:"author_name"`
	LastSavedAt *time.Time `json:"last_saved_at"`
	Revisions   int        `json:"revisions"`
}

// GetRecentlySavedPages lists the pages the snapshot worker touched
// most recently, with their revision counts.
func (r *DashboardRepository) GetRecentlySavedPages(ctx context.Context, limit int) ([]DashboardRecentPage, error) {
	query := `
		SELECT
			p.id,
			p.title,
			a.name,
			p.last_saved_at,
			COUNT(rev.id) as revisions
		FROM pages p
		JOIN authors a ON p.author_id = a.id
		LEFT JOIN page_revisions rev ON rev.page_id = p.id
		WHERE p.last_saved_at IS NOT NULL
		GROUP BY p.id, p.title, a.name, p.last_saved_at
		ORDER BY p.last_saved_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []DashboardRecentPage
	for rows.Next() {
		var p DashboardRecentPage
		if err := rows.Scan(&p.ID, &p.Title, &p.AuthorName, &p.LastSavedAt, &p.Revisions); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	if pages == nil {
		pages = []DashboardRecentPage{}
	}
	return pages, rows.Err()
}
