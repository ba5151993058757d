package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/packing-audit/internal/models"
)

// UserRepository handles user data persistence
type UserRepository struct {
	db *PostgresDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *PostgresDB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `u.id, u.name, u.email, u.password, u.role_id, COALESCE(r.name, ''), u.created_at, u.updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password,
		&user.RoleID,
		&user.RoleName,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, name, email, password, role_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Password,
		user.RoleID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1`

	user, err := scanUser(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		WHERE u.email = $1`

	user, err := scanUser(r.db.Pool().QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// ExistsByNameOrEmail checks for another user holding the name or email
func (r *UserRepository) ExistsByNameOrEmail(ctx context.Context, name, email, excludeID string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM users
			WHERE (name = $1 OR email = $2)
			  AND ($3 = '' OR id::text <> $3)
		)`

	if err := r.db.Pool().QueryRow(ctx, query, name, email, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// Update persists name, email, password and role changes
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users
		SET name = $2, email = $3, password = $4, role_id = $5, updated_at = $6
		WHERE id = $1
	`

	tag, err := r.db.Pool().Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Password,
		user.RoleID,
		user.UpdatedAt,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if foreignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns a page of users and the total count
func (r *UserRepository) List(ctx context.Context, opts ListOptions) ([]*models.User, int, error) {
	var w whereBuilder
	w.search(opts.Search, "u.name", "u.email")

	var total int
	countQuery := `SELECT COUNT(*) FROM users u ` + w.sql()
	if err := r.db.Pool().QueryRow(ctx, countQuery, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	pageClause, args := w.page(opts)
	query := `SELECT ` + userColumns + `
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		` + w.sql() + `
		` + UserSortColumns.orderBy(opts.SortBy, opts.SortDir, "u.id") + `
		` + pageClause

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating users: %w", err)
	}

	return users, total, nil
}
