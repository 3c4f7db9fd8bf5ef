package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/docuflow/docuflow/internal/application/port"
	"github.com/docuflow/docuflow/internal/domain/entity"
	"go.uber.org/zap"
)

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a user with role and permissions eagerly loaded
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `
		SELECT u.id, u.name, u.role_id, r.name
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.id = ?
	`

	var user entity.User
	var role entity.Role

	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.RoleID,
		&role.Name,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	role.ID = user.RoleID

	if role.Permissions, err = r.loadPermissions(ctx, role.ID); err != nil {
		return nil, err
	}
	user.Role = &role
	return &user, nil
}

// ListByRoleID retrieves all users holding a role. Roles and
// permissions are not attached; callers use the ids for fan-out.
func (r *UserRepository) ListByRoleID(ctx context.Context, roleID int64) ([]*entity.User, error) {
	query := `SELECT id, name, role_id FROM users WHERE role_id = ? ORDER BY id`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, roleID)
	if err != nil {
		r.logger.Error("Failed to list users by role", zap.Int64("role_id", roleID), zap.Error(err))
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		var user entity.User
		if err := rows.Scan(&user.ID, &user.Name, &user.RoleID); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}
	return users, rows.Err()
}

// GetRoleByID retrieves a role with its permissions
func (r *UserRepository) GetRoleByID(ctx context.Context, roleID int64) (*entity.Role, error) {
	query := `SELECT id, name FROM roles WHERE id = ?`

	var role entity.Role
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, roleID).Scan(&role.ID, &role.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get role", zap.Int64("id", roleID), zap.Error(err))
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	if role.Permissions, err = r.loadPermissions(ctx, role.ID); err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *UserRepository) loadPermissions(ctx context.Context, roleID int64) ([]entity.Permission, error) {
	query := `
		SELECT p.id, p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = ?
		ORDER BY p.id
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}
	defer rows.Close()

	var perms []entity.Permission
	for rows.Next() {
		var p entity.Permission
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
