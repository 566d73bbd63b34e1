package service

import (
	"context"
	"errors"

	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/quizsmith/quizsmith-backend/internal/repository"
	"github.com/quizsmith/quizsmith-backend/internal/response"
)

var (
	ErrEmailTaken     = errors.New("email already registered")
	ErrAuthorNotFound = errors.New("author not found")
)

// AuthorService handles author account business logic.
type AuthorService struct {
	authorRepo  *repository.AuthorRepository
	roleRepo    *repository.RoleRepository
	authService *AuthService
}

// NewAuthorService creates a new AuthorService.
func NewAuthorService(authorRepo *repository.AuthorRepository, roleRepo *repository.RoleRepository, authService *AuthService) *AuthorService {
	return &AuthorService{authorRepo: authorRepo, roleRepo: roleRepo, authService: authService}
}

// GetByEmail retrieves an author by email.
func (s *AuthorService) GetByEmail(ctx context.Context, email string) (*model.Author, error) {
	return s.authorRepo.GetByEmail(ctx, email)
}

// GetByID retrieves an author by ID.
func (s *AuthorService) GetByID(ctx context.Context, id int) (*model.Author, error) {
	return s.authorRepo.GetByID(ctx, id)
}

// GetPermissions retrieves permission codes for an author's role.
func (s *AuthorService) GetPermissions(ctx context.Context, roleID int) ([]string, error) {
	return s.roleRepo.GetPermissionsByRoleID(ctx, roleID)
}

// List retrieves a paginated list of authors, optionally filtered by role.
func (s *AuthorService) List(ctx context.Context, roleID, page, perPage int) ([]model.Author, *response.Pagination, error) {
	window := response.Window(page, perPage, 10)

	authors, total, err := s.authorRepo.ListPaginated(ctx, roleID, window.PerPage, window.Offset())
	if err != nil {
		return nil, nil, err
	}
	return authors, window.Result(total), nil
}

// Create creates a new author account.
func (s *AuthorService) Create(ctx context.Context, req *model.CreateAuthorRequest) (*model.Author, error) {
	taken, err := s.authorRepo.EmailExists(ctx, req.Email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := s.authService.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	author := &model.Author{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		RoleID:       req.RoleID,
	}
	if err := s.authorRepo.Create(ctx, author); err != nil {
		return nil, err
	}

	return s.authorRepo.GetByID(ctx, author.ID)
}

// Update updates an existing author account. An empty password leaves
// the current one in place.
func (s *AuthorService) Update(ctx context.Context, id int, req *model.UpdateAuthorRequest) (*model.Author, error) {
	existing, err := s.authorRepo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrAuthorNotFound
	}

	email := existing.Email
	if req.Email != "" {
		email = req.Email
	}
	name := existing.Name
	if req.Name != "" {
		name = req.Name
	}
	roleID := existing.RoleID
	if req.RoleID > 0 {
		roleID = req.RoleID
	}

	taken, err := s.authorRepo.EmailExists(ctx, email, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	var hash string
	if req.Password != "" {
		hash, err = s.authService.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
	}

	author := &model.Author{
		ID:           id,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		RoleID:       roleID,
	}
	if err := s.authorRepo.Update(ctx, author); err != nil {
		return nil, err
	}

	return s.authorRepo.GetByID(ctx, id)
}

// ChangePassword verifies the current password before setting a new one.
func (s *AuthorService) ChangePassword(ctx context.Context, id int, current, next string) error {
	author, err := s.authorRepo.GetByID(ctx, id)
	if err != nil {
		return ErrAuthorNotFound
	}

	if err := s.authService.CheckPassword(author.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := s.authService.HashPassword(next)
	if err != nil {
		return err
	}
	return s.authorRepo.UpdatePassword(ctx, id, hash)
}

// Delete removes an author account.
func (s *AuthorService) Delete(ctx context.Context, id int) error {
	affected, err := s.authorRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAuthorNotFound
	}
	return nil
}
