package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizsmith/quizsmith-backend/internal/model"
)

var ErrCollectionInUse = errors.New("collection still has pages attached")

type CollectionRepository struct {
	pool *pgxpool.Pool
}

func NewCollectionRepository(pool *pgxpool.Pool) *CollectionRepository {
	return &CollectionRepository{pool: pool}
}

func (r *CollectionRepository) Create(ctx context.Context, c *model.Collection) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO collections (name, description) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		c.Name, c.Description).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CollectionRepository) GetAll(ctx context.Context) ([]model.Collection, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.name, c.description, COUNT(p.id), c.created_at, c.updated_at
		 FROM collections c LEFT JOIN pages p ON p.collection_id = c.id
		 GROUP BY c.id
		 ORDER BY c.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collections []model.Collection
	for rows.Next() {
		var c model.Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.PageCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

func (r *CollectionRepository) Update(ctx context.Context, c *model.Collection) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE collections SET name = $1, description = $2, updated_at = NOW() WHERE id = $3`,
		c.Name, c.Description, c.ID)
	return err
}

// Delete removes a collection. The restricting FK from pages maps to
// ErrCollectionInUse so a collection cannot vanish under its pages.
func (r *CollectionRepository) Delete(ctx context.Context, id int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if pgErrCode(err) == "23503" {
		return ErrCollectionInUse
	}
	return err
}
