package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/packing-audit/internal/models"
	"github.com/packing-audit/internal/types"
)

// RoleRepository handles role data persistence
type RoleRepository struct {
	db *PostgresDB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *PostgresDB) *RoleRepository {
	return &RoleRepository{db: db}
}

func scanRole(row pgx.Row) (*models.Role, error) {
	var role models.Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return nil, err
	}
	return &role, nil
}

// Ensure inserts the role if no role with that name exists and returns it
func (r *RoleRepository) Ensure(ctx context.Context, name types.RoleName, description string) (*models.Role, error) {
	query := `
		INSERT INTO roles (name, description)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, description, created_at, updated_at
	`

	role, err := scanRole(r.db.Pool().QueryRow(ctx, query, name, description))
	if err != nil {
		return nil, fmt.Errorf("failed to ensure role %s: %w", name, err)
	}
	return role, nil
}

// GetByID retrieves a role by ID
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*models.Role, error) {
	query := `SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1`

	role, err := scanRole(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// GetByName retrieves a role by name
func (r *RoleRepository) GetByName(ctx context.Context, name types.RoleName) (*models.Role, error) {
	query := `SELECT id, name, description, created_at, updated_at FROM roles WHERE name = $1`

	role, err := scanRole(r.db.Pool().QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get role by name: %w", err)
	}
	return role, nil
}

// List returns every role ordered by name
func (r *RoleRepository) List(ctx context.Context) ([]*models.Role, error) {
	rows, err := r.db.Pool().Query(ctx, `SELECT id, name, description, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	roles := make([]*models.Role, 0)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roles: %w", err)
	}
	return roles, nil
}
