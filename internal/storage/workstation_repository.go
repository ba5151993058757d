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

// WorkstationRepository handles workstation data persistence
type WorkstationRepository struct {
	db *PostgresDB
}

// NewWorkstationRepository creates a new workstation repository
func NewWorkstationRepository(db *PostgresDB) *WorkstationRepository {
	return &WorkstationRepository{db: db}
}

const workstationSelect = `
	SELECT w.id, w.name, w.camera_id, COALESCE(c.name, ''), w.created_at, w.updated_at
	FROM workstations w
	LEFT JOIN cameras c ON c.id = w.camera_id`

func scanWorkstation(row pgx.Row) (*models.Workstation, error) {
	var ws models.Workstation
	if err := row.Scan(&ws.ID, &ws.Name, &ws.CameraID, &ws.CameraName, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
		return nil, err
	}
	return &ws, nil
}

// Create creates a new workstation
func (r *WorkstationRepository) Create(ctx context.Context, ws *models.Workstation) error {
	if ws.ID == "" {
		ws.ID = uuid.New().String()
	}
	now := time.Now()
	ws.CreatedAt = now
	ws.UpdatedAt = now

	query := `
		INSERT INTO workstations (id, name, camera_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.Pool().Exec(ctx, query, ws.ID, ws.Name, ws.CameraID, ws.CreatedAt, ws.UpdatedAt); err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create workstation: %w", err)
	}
	return nil
}

// GetByID retrieves a workstation by ID
func (r *WorkstationRepository) GetByID(ctx context.Context, id string) (*models.Workstation, error) {
	ws, err := scanWorkstation(r.db.Pool().QueryRow(ctx, workstationSelect+` WHERE w.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get workstation: %w", err)
	}
	return ws, nil
}

// ExistsByCamera checks whether another workstation is bound to the camera
func (r *WorkstationRepository) ExistsByCamera(ctx context.Context, cameraID, excludeID string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM workstations
			WHERE camera_id = $1
			  AND ($2 = '' OR id::text <> $2)
		)`
	if err := r.db.Pool().QueryRow(ctx, query, cameraID, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check workstation existence: %w", err)
	}
	return exists, nil
}

// Update persists workstation changes
func (r *WorkstationRepository) Update(ctx context.Context, ws *models.Workstation) error {
	ws.UpdatedAt = time.Now()

	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE workstations SET name = $2, camera_id = $3, updated_at = $4 WHERE id = $1`,
		ws.ID, ws.Name, ws.CameraID, ws.UpdatedAt,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update workstation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a workstation
func (r *WorkstationRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM workstations WHERE id = $1`, id)
	if err != nil {
		if foreignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("failed to delete workstation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns a page of workstations and the total count
func (r *WorkstationRepository) List(ctx context.Context, opts ListOptions) ([]*models.Workstation, int, error) {
	var w whereBuilder
	w.search(opts.Search, "w.name", "c.name")

	var total int
	countQuery := `SELECT COUNT(*) FROM workstations w LEFT JOIN cameras c ON c.id = w.camera_id ` + w.sql()
	if err := r.db.Pool().QueryRow(ctx, countQuery, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count workstations: %w", err)
	}

	pageClause, args := w.page(opts)
	query := workstationSelect + `
		` + w.sql() + `
		` + WorkstationSortColumns.orderBy(opts.SortBy, opts.SortDir, "w.id") + `
		` + pageClause

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list workstations: %w", err)
	}
	defer rows.Close()

	stations := make([]*models.Workstation, 0)
	for rows.Next() {
		ws, err := scanWorkstation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan workstation: %w", err)
		}
		stations = append(stations, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating workstations: %w", err)
	}
	return stations, total, nil
}
