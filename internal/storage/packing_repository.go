package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/packing-audit/internal/models"
	"github.com/packing-audit/internal/types"
)

// openScanIndex is the partial unique index guarding one open scan per barcode and workstation
const openScanIndex = "packing_items_open_scan"

// PackingFilter narrows packing item listings
type PackingFilter struct {
	Status        types.PackingStatus
	WorkstationID string
	OperatorID    string
}

// PackingRepository handles packing item persistence
type PackingRepository struct {
	db *PostgresDB
}

// NewPackingRepository creates a new packing repository
func NewPackingRepository(db *PostgresDB) *PackingRepository {
	return &PackingRepository{db: db}
}

const packingSelect = `
	SELECT pi.id, pi.barcode, pi.operator_id, COALESCE(u.name, ''), pi.workstation_id, COALESCE(w.name, ''),
	       pi.start_time, pi.end_time, pi.status, pi.created_at, pi.updated_at
	FROM packing_items pi
	LEFT JOIN users u ON u.id = pi.operator_id
	LEFT JOIN workstations w ON w.id = pi.workstation_id`

func scanPackingItem(row pgx.Row) (*models.PackingItem, error) {
	var item models.PackingItem
	err := row.Scan(
		&item.ID,
		&item.Barcode,
		&item.OperatorID,
		&item.OperatorName,
		&item.WorkstationID,
		&item.WorkstationName,
		&item.StartTime,
		&item.EndTime,
		&item.Status,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts an open scan. A concurrent open scan for the same barcode
// and workstation yields ErrOpenScanExists.
func (r *PackingRepository) Create(ctx context.Context, item *models.PackingItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now()
	if item.StartTime.IsZero() {
		item.StartTime = now
	}
	if item.Status == "" {
		item.Status = types.PackingStatusPending
	}
	item.CreatedAt = now
	item.UpdatedAt = now

	query := `
		INSERT INTO packing_items (id, barcode, operator_id, workstation_id, start_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Pool().Exec(ctx, query,
		item.ID,
		item.Barcode,
		item.OperatorID,
		item.WorkstationID,
		item.StartTime,
		item.Status,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == openScanIndex {
			return ErrOpenScanExists
		}
		return fmt.Errorf("failed to create packing item: %w", err)
	}
	return nil
}

// GetByID retrieves a packing item with operator and workstation names
func (r *PackingRepository) GetByID(ctx context.Context, id string) (*models.PackingItem, error) {
	item, err := scanPackingItem(r.db.Pool().QueryRow(ctx, packingSelect+` WHERE pi.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get packing item: %w", err)
	}
	return item, nil
}

// FindOpen returns the open scan for a barcode at a workstation
func (r *PackingRepository) FindOpen(ctx context.Context, barcode, workstationID string) (*models.PackingItem, error) {
	query := packingSelect + `
		WHERE pi.barcode = $1 AND pi.workstation_id = $2 AND pi.status = $3`

	item, err := scanPackingItem(r.db.Pool().QueryRow(ctx, query, barcode, workstationID, types.PackingStatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find open packing item: %w", err)
	}
	return item, nil
}

// FindOpenByOperator returns the oldest open scan of a barcode started by an operator
func (r *PackingRepository) FindOpenByOperator(ctx context.Context, barcode, operatorID string) (*models.PackingItem, error) {
	query := packingSelect + `
		WHERE pi.barcode = $1 AND pi.operator_id = $2 AND pi.status = $3
		ORDER BY pi.start_time ASC
		LIMIT 1`

	item, err := scanPackingItem(r.db.Pool().QueryRow(ctx, query, barcode, operatorID, types.PackingStatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find open packing item: %w", err)
	}
	return item, nil
}

// EndScan closes an open scan, stamping end_time no earlier than start_time.
// ErrStaleState means the scan was closed concurrently.
func (r *PackingRepository) EndScan(ctx context.Context, id string, endTime time.Time) error {
	query := `
		UPDATE packing_items
		SET end_time = GREATEST($2::timestamptz, start_time), status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`
	tag, err := r.db.Pool().Exec(ctx, query, id, endTime, types.PackingStatusReadyForBatch, types.PackingStatusPending)
	if err != nil {
		return fmt.Errorf("failed to end packing scan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

// TransitionStatus moves an item to next only while it is in one of from.
// ErrStaleState means the item was not in an allowed state.
func (r *PackingRepository) TransitionStatus(ctx context.Context, id string, from []types.PackingStatus, next types.PackingStatus) error {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	query := `
		UPDATE packing_items
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`
	tag, err := r.db.Pool().Exec(ctx, query, id, next, allowed)
	if err != nil {
		return fmt.Errorf("failed to update packing status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}

// List returns a page of packing items and the total count
func (r *PackingRepository) List(ctx context.Context, filter PackingFilter, opts ListOptions) ([]*models.PackingItem, int, error) {
	var w whereBuilder
	if filter.Status != "" {
		w.add("pi.status = ?", filter.Status)
	}
	if filter.WorkstationID != "" {
		w.add("pi.workstation_id = ?", filter.WorkstationID)
	}
	if filter.OperatorID != "" {
		w.add("pi.operator_id = ?", filter.OperatorID)
	}
	w.search(opts.Search, "pi.barcode", "u.name", "w.name")

	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM packing_items pi
		LEFT JOIN users u ON u.id = pi.operator_id
		LEFT JOIN workstations w ON w.id = pi.workstation_id
		` + w.sql()
	if err := r.db.Pool().QueryRow(ctx, countQuery, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count packing items: %w", err)
	}

	pageClause, args := w.page(opts)
	query := packingSelect + `
		` + w.sql() + `
		` + PackingSortColumns.orderBy(opts.SortBy, opts.SortDir, "pi.id") + `
		` + pageClause

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list packing items: %w", err)
	}
	defer rows.Close()

	items := make([]*models.PackingItem, 0)
	for rows.Next() {
		item, err := scanPackingItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan packing item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating packing items: %w", err)
	}
	return items, total, nil
}

// RecordOutcome stores a worker outcome for an item dispatched on its own
// rather than through a batch job.
func (r *PackingRepository) RecordOutcome(ctx context.Context, id string, success bool, clip *ClipOutcome) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var status types.PackingStatus
		err := tx.QueryRow(ctx, `SELECT status FROM packing_items WHERE id = $1 FOR UPDATE`, id).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock packing item: %w", err)
		}
		if status != types.PackingStatusReadyForBatch {
			return ErrStaleState
		}
		return applyPackingOutcome(ctx, tx, id, success, clip)
	})
}
