package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizsmith/quizsmith-backend/internal/model"
)

// pageColumns is the select list for queries returning whole pages. The
// author name rides along from a join so list endpoints never fan out
// with a second lookup per row.
const pageColumns = `p.id, p.author_id, a.name, p.collection_id, p.title, p.summary, p.body,
	p.cover_image_url, p.cover_image_id, p.status, p.question_count,
	p.last_saved_at, p.created_at, p.updated_at`

// PageRepository reads and writes the pages table.
type PageRepository struct {
	pool *pgxpool.Pool
}

func NewPageRepository(pool *pgxpool.Pool) *PageRepository {
	return &PageRepository{pool: pool}
}

func scanPage(row pgx.Row) (model.Page, error) {
	var p model.Page
	err := row.Scan(&p.ID, &p.AuthorID, &p.AuthorName, &p.CollectionID, &p.Title, &p.Summary, &p.Body,
		&p.CoverImageURL, &p.CoverImageID, &p.Status, &p.QuestionCount,
		&p.LastSavedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetByID loads a single page together with its author's display name.
func (r *PageRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Page, error) {
	p, err := scanPage(r.pool.QueryRow(ctx,
		`SELECT `+pageColumns+`
		 FROM pages p JOIN authors a ON p.author_id = a.id
		 WHERE p.id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByAuthorPaginated returns one window of pages, most recently
// touched first, plus the unwindowed total. authorID 0 disables the
// ownership filter for accounts that may edit every page.
func (r *PageRepository) ListByAuthorPaginated(ctx context.Context, authorID, limit, offset int) ([]model.Page, int, error) {
	total, err := r.countPages(ctx, authorID)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + pageColumns + `
		 FROM pages p JOIN authors a ON p.author_id = a.id`
	args := []interface{}{limit, offset}
	if authorID > 0 {
		query += ` WHERE p.author_id = $3`
		args = append(args, authorID)
	}
	query += ` ORDER BY p.updated_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var pages []model.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, 0, err
		}
		pages = append(pages, p)
	}
	return pages, total, rows.Err()
}

func (r *PageRepository) countPages(ctx context.Context, authorID int) (int, error) {
	var total int
	var err error
	if authorID > 0 {
		err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pages WHERE author_id = $1`, authorID).Scan(&total)
	} else {
		err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pages`).Scan(&total)
	}
	return total, err
}

// Create inserts a page and fills in its generated id and timestamps.
func (r *PageRepository) Create(ctx context.Context, p *model.Page) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO pages (author_id, collection_id, title, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		p.AuthorID, p.CollectionID, p.Title, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// UpdateMeta changes the fields editable outside an editor session. A
// blank title keeps the stored one instead of overwriting it.
func (r *PageRepository) UpdateMeta(ctx context.Context, id uuid.UUID, title string, collectionID *int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE pages
		 SET title = COALESCE(NULLIF($1, ''), title), collection_id = $2, updated_at = NOW()
		 WHERE id = $3`,
		title, collectionID, id)
	return err
}

// UpdateStatus moves a page between draft and published.
func (r *PageRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PageStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE pages SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// Delete removes a page. Its questions and revisions cascade at the
// schema level.
func (r *PageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM pages WHERE id = $1`, id)
	return err
}

// ListPublished returns every published page, newest first. The startup
// prewarm walks this list to rebuild the reader payload cache.
func (r *PageRepository) ListPublished(ctx context.Context) ([]model.Page, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+pageColumns+`
		 FROM pages p JOIN authors a ON p.author_id = a.id
		 WHERE p.status = $1
		 ORDER BY p.created_at DESC`, model.PageStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []model.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}
