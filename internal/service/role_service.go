package service

import (
	"context"
	"errors"
	"strings"

	"github.com/quizsmith/quizsmith-backend/internal/model"
	"github.com/quizsmith/quizsmith-backend/internal/repository"
)

// Role 1 is seeded by the first migration and always holds every
// permission code.
const superadminRoleID = 1

var (
	ErrRoleImmutable = errors.New("the built-in Superadmin role cannot be changed")
	ErrRoleNameEmpty = errors.New("role name is required")
)

// RoleService manages custom author roles and their permission grants.
type RoleService struct {
	roles *repository.RoleRepository
}

func NewRoleService(roles *repository.RoleRepository) *RoleService {
	return &RoleService{roles: roles}
}

func (s *RoleService) ListRoles(ctx context.Context) ([]model.RoleWithPermissions, error) {
	return s.roles.ListRolesWithPermissions(ctx)
}

func (s *RoleService) GetRoleByID(ctx context.Context, id int) (*model.RoleWithPermissions, error) {
	return s.roles.GetRoleByID(ctx, id)
}

// CreateRole inserts the role, then grants its permission codes. A
// failed grant removes the role again so no half-configured role is
// left behind.
func (s *RoleService) CreateRole(ctx context.Context, name string, permissions []string) (*model.RoleWithPermissions, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrRoleNameEmpty
	}

	id, err := s.roles.CreateRole(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.roles.AssignPermissionsToRole(ctx, id, permissions); err != nil {
		_ = s.roles.DeleteRole(ctx, id)
		return nil, err
	}
	return s.roles.GetRoleByID(ctx, id)
}

// UpdateRole renames the role and swaps its grants for the given set.
// Logged-in authors keep their old codes until their next login, since
// permissions ride in the JWT.
func (s *RoleService) UpdateRole(ctx context.Context, id int, name string, permissions []string) (*model.RoleWithPermissions, error) {
	if id == superadminRoleID {
		return nil, ErrRoleImmutable
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrRoleNameEmpty
	}

	if err := s.roles.UpdateRole(ctx, id, name); err != nil {
		return nil, err
	}
	if err := s.roles.DeleteAllPermissionsFromRole(ctx, id); err != nil {
		return nil, err
	}
	if err := s.roles.AssignPermissionsToRole(ctx, id, permissions); err != nil {
		return nil, err
	}
	return s.roles.GetRoleByID(ctx, id)
}

func (s *RoleService) DeleteRole(ctx context.Context, id int) error {
	if id == superadminRoleID {
		return ErrRoleImmutable
	}
	return s.roles.DeleteRole(ctx, id)
}

// PermissionCatalog returns every grantable permission code.
func (s *RoleService) PermissionCatalog() []string {
	codes := make([]string, 0, len(model.AllPermissions))
	for _, p := range model.AllPermissions {
		codes = append(codes, string(p))
	}
	return codes
}
