package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/packing-audit/internal/models"
)

// ClipRepository handles mini clip reads
type ClipRepository struct {
	db *PostgresDB
}

// NewClipRepository creates a new clip repository
func NewClipRepository(db *PostgresDB) *ClipRepository {
	return &ClipRepository{db: db}
}

const clipSelect = `
	SELECT mc.id, mc.packing_item_id, COALESCE(pi.barcode, ''), mc.camera_id, COALESCE(c.name, ''),
	       mc.storage_path, mc.duration_sec, mc.filesize_bytes, mc.generated_at, mc.status
	FROM mini_clips mc
	LEFT JOIN packing_items pi ON pi.id = mc.packing_item_id
	LEFT JOIN cameras c ON c.id = mc.camera_id`

func scanClip(row pgx.Row) (*models.MiniClip, error) {
	var clip models.MiniClip
	err := row.Scan(
		&clip.ID,
		&clip.PackingItemID,
		&clip.Barcode,
		&clip.CameraID,
		&clip.CameraName,
		&clip.StoragePath,
		&clip.DurationSec,
		&clip.FilesizeBytes,
		&clip.GeneratedAt,
		&clip.Status,
	)
	if err != nil {
		return nil, err
	}
	return &clip, nil
}

// GetByID retrieves a clip
func (r *ClipRepository) GetByID(ctx context.Context, id string) (*models.MiniClip, error) {
	clip, err := scanClip(r.db.Pool().QueryRow(ctx, clipSelect+` WHERE mc.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get clip: %w", err)
	}
	return clip, nil
}

// List returns a page of clips and the total count
func (r *ClipRepository) List(ctx context.Context, opts ListOptions) ([]*models.MiniClip, int, error) {
	var w whereBuilder
	w.search(opts.Search, "pi.barcode", "c.name", "mc.storage_path")

	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM mini_clips mc
		LEFT JOIN packing_items pi ON pi.id = mc.packing_item_id
		LEFT JOIN cameras c ON c.id = mc.camera_id
		` + w.sql()
	if err := r.db.Pool().QueryRow(ctx, countQuery, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count clips: %w", err)
	}

	pageClause, args := w.page(opts)
	query := clipSelect + `
		` + w.sql() + `
		` + ClipSortColumns.orderBy(opts.SortBy, opts.SortDir, "mc.id") + `
		` + pageClause

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list clips: %w", err)
	}
	defer rows.Close()

	clips := make([]*models.MiniClip, 0)
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan clip: %w", err)
		}
		clips = append(clips, clip)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating clips: %w", err)
	}
	return clips, total, nil
}
