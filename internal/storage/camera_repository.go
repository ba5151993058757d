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

// CameraRepository handles camera data persistence
type CameraRepository struct {
	db *PostgresDB
}

// NewCameraRepository creates a new camera repository
func NewCameraRepository(db *PostgresDB) *CameraRepository {
	return &CameraRepository{db: db}
}

const cameraColumns = `c.id, c.name, c.base_url, c.cam_username, c.cam_password, c.created_at, c.updated_at`

func scanCamera(row pgx.Row) (*models.Camera, error) {
	var cam models.Camera
	err := row.Scan(
		&cam.ID,
		&cam.Name,
		&cam.BaseURL,
		&cam.CamUsername,
		&cam.CamPassword,
		&cam.CreatedAt,
		&cam.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cam, nil
}

// Create creates a new camera. CamPassword must already be encrypted.
func (r *CameraRepository) Create(ctx context.Context, cam *models.Camera) error {
	if cam.ID == "" {
		cam.ID = uuid.New().String()
	}
	now := time.Now()
	cam.CreatedAt = now
	cam.UpdatedAt = now

	query := `
		INSERT INTO cameras (id, name, base_url, cam_username, cam_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Pool().Exec(ctx, query,
		cam.ID, cam.Name, cam.BaseURL, cam.CamUsername, cam.CamPassword, cam.CreatedAt, cam.UpdatedAt,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create camera: %w", err)
	}
	return nil
}

// GetByID retrieves a camera by ID
func (r *CameraRepository) GetByID(ctx context.Context, id string) (*models.Camera, error) {
	query := `SELECT ` + cameraColumns + ` FROM cameras c WHERE c.id = $1`

	cam, err := scanCamera(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get camera: %w", err)
	}
	return cam, nil
}

// ExistsByNameAndURL checks whether another camera uses the name and base URL
func (r *CameraRepository) ExistsByNameAndURL(ctx context.Context, name, baseURL, excludeID string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM cameras
			WHERE name = $1 AND base_url = $2
			  AND ($3 = '' OR id::text <> $3)
		)`
	if err := r.db.Pool().QueryRow(ctx, query, name, baseURL, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check camera existence: %w", err)
	}
	return exists, nil
}

// Update persists camera changes
func (r *CameraRepository) Update(ctx context.Context, cam *models.Camera) error {
	cam.UpdatedAt = time.Now()

	query := `
		UPDATE cameras
		SET name = $2, base_url = $3, cam_username = $4, cam_password = $5, updated_at = $6
		WHERE id = $1
	`
	tag, err := r.db.Pool().Exec(ctx, query,
		cam.ID, cam.Name, cam.BaseURL, cam.CamUsername, cam.CamPassword, cam.UpdatedAt,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update camera: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a camera
func (r *CameraRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM cameras WHERE id = $1`, id)
	if err != nil {
		if foreignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("failed to delete camera: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns a page of cameras and the total count
func (r *CameraRepository) List(ctx context.Context, opts ListOptions) ([]*models.Camera, int, error) {
	var w whereBuilder
	w.search(opts.Search, "c.name", "c.base_url")

	var total int
	if err := r.db.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM cameras c `+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cameras: %w", err)
	}

	pageClause, args := w.page(opts)
	query := `SELECT ` + cameraColumns + ` FROM cameras c
		` + w.sql() + `
		` + CameraSortColumns.orderBy(opts.SortBy, opts.SortDir, "c.id") + `
		` + pageClause

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cameras: %w", err)
	}
	defer rows.Close()

	cameras := make([]*models.Camera, 0)
	for rows.Next() {
		cam, err := scanCamera(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan camera: %w", err)
		}
		cameras = append(cameras, cam)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating cameras: %w", err)
	}
	return cameras, total, nil
}
