package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizsmith/quizsmith-backend/internal/model"
)

// ErrAuthorHasPages is returned when deleting an author who still owns
// pages. The FK on pages restricts the delete.
var ErrAuthorHasPages = errors.New("author still owns pages")

// AuthorRepository reads and writes author accounts.
type AuthorRepository struct {
	pool *pgxpool.Pool
}

func NewAuthorRepository(pool *pgxpool.Pool) *AuthorRepository {
	return &AuthorRepository{pool: pool}
}

func (r *AuthorRepository) getBy(ctx context.Context, where string, arg interface{}) (*model.Author, error) {
	a := &model.Author{}
	err := r.pool.QueryRow(ctx,
		`SELECT a.id, a.email, a.name, a.password_hash, a.role_id, r.name, a.created_at, a.updated_at
		 FROM authors a JOIN roles r ON a.role_id = r.id
		 WHERE `+where, arg,
	).Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.RoleID, &a.RoleName, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByID loads one author with the password hash and role name included.
func (r *AuthorRepository) GetByID(ctx context.Context, id int) (*model.Author, error) {
	return r.getBy(ctx, `a.id = $1`, id)
}

// GetByEmail loads one author by their unique email.
func (r *AuthorRepository) GetByEmail(ctx context.Context, email string) (*model.Author, error) {
	return r.getBy(ctx, `a.email = $1`, email)
}

// EmailExists reports whether an email is already registered to someone
// other than excludeID. Pass 0 when creating a fresh account.
func (r *AuthorRepository) EmailExists(ctx context.Context, email string, excludeID int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM authors WHERE email = $1 AND id != $2)`,
		email, excludeID).Scan(&exists)
	return exists, err
}

// ListPaginated returns one window of authors plus the unwindowed total.
// roleID 0 disables the role filter. Password hashes stay out of the
// list shape on purpose.
func (r *AuthorRepository) ListPaginated(ctx context.Context, roleID, limit, offset int) ([]model.Author, int, error) {
	total, err := r.countAuthors(ctx, roleID)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT a.id, a.email, a.name, a.role_id, r.name, a.created_at, a.updated_at
		 FROM authors a JOIN roles r ON a.role_id = r.id`
	args := []interface{}{limit, offset}
	if roleID > 0 {
		query += ` WHERE a.role_id = $3`
		args = append(args, roleID)
	}
	query += ` ORDER BY a.created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var authors []model.Author
	for rows.Next() {
		var a model.Author
		if err := rows.Scan(&a.ID, &a.Email, &a.Name, &a.RoleID, &a.RoleName, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, err
		}
		authors = append(authors, a)
	}
	return authors, total, rows.Err()
}

func (r *AuthorRepository) countAuthors(ctx context.Context, roleID int) (int, error) {
	var total int
	var err error
	if roleID > 0 {
		err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM authors WHERE role_id = $1`, roleID).Scan(&total)
	} else {
		err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM authors`).Scan(&total)
	}
	return total, err
}

// Create inserts an author and fills in the generated id and timestamps.
func (r *AuthorRepository) Create(ctx context.Context, a *model.Author) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO authors (email, name, password_hash, role_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		a.Email, a.Name, a.PasswordHash, a.RoleID,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// Update writes the author's profile fields. An empty PasswordHash keeps
// the stored hash untouched.
func (r *AuthorRepository) Update(ctx context.Context, a *model.Author) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE authors
		 SET email = $1, name = $2, role_id = $3,
		     password_hash = COALESCE(NULLIF($4, ''), password_hash),
		     updated_at = NOW()
		 WHERE id = $5`,
		a.Email, a.Name, a.RoleID, a.PasswordHash, a.ID)
	return err
}

// UpdatePassword replaces an author's password hash.
func (r *AuthorRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE authors SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, id)
	return err
}

// Delete removes an author and reports how many rows went away, so the
// caller can tell a missing id apart from a successful delete.
func (r *AuthorRepository) Delete(ctx context.Context, id int) (int64, error) {
	res, err := r.pool.Exec(ctx, `DELETE FROM authors WHERE id = $1`, id)
	if err != nil {
		if pgErrCode(err) == "23503" {
			return 0, ErrAuthorHasPages
		}
		return 0, err
	}
	return res.RowsAffected(), nil
}
