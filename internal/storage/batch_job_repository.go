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

// singleRunningIndex is the partial unique index allowing one RUNNING batch job
const singleRunningIndex = "batch_jobs_single_running"

// BatchJobFilter narrows batch job listings
type BatchJobFilter struct {
	Status    types.BatchJobStatus
	StartDate *time.Time
	EndDate   *time.Time
}

// ClipOutcome describes the clip a worker produced for a packing item
type ClipOutcome struct {
	StoragePath   string
	DurationSec   *int
	FilesizeBytes *int64
	Status        types.ClipStatus
}

// ItemResult is a worker report for one batch job item
type ItemResult struct {
	ItemID       string
	Success      bool
	ErrorMessage *string
	Clip         *ClipOutcome
}

// BatchJobRepository handles batch job persistence
type BatchJobRepository struct {
	db *PostgresDB
}

// NewBatchJobRepository creates a new batch job repository
func NewBatchJobRepository(db *PostgresDB) *BatchJobRepository {
	return &BatchJobRepository{db: db}
}

const batchJobColumns = `bj.id, bj.started_at, bj.finished_at, bj.status, bj.total_items, bj.success_items, bj.failed_items, bj.error_message`

func scanBatchJob(row pgx.Row) (*models.BatchJob, error) {
	var job models.BatchJob
	err := row.Scan(
		&job.ID,
		&job.StartedAt,
		&job.FinishedAt,
		&job.Status,
		&job.TotalItems,
		&job.SuccessItems,
		&job.FailedItems,
		&job.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func scanBatchJobItem(row pgx.Row) (*models.BatchJobItem, error) {
	var item models.BatchJobItem
	err := row.Scan(
		&item.ID,
		&item.BatchJobID,
		&item.PackingItemID,
		&item.Barcode,
		&item.Status,
		&item.ErrorMessage,
		&item.StartedAt,
		&item.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindRunning returns the RUNNING batch job, or ErrNotFound when none runs
func (r *BatchJobRepository) FindRunning(ctx context.Context) (*models.BatchJob, error) {
	query := `SELECT ` + batchJobColumns + ` FROM batch_jobs bj WHERE bj.status = $1 LIMIT 1`

	job, err := scanBatchJob(r.db.Pool().QueryRow(ctx, query, types.BatchJobStatusRunning))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find running batch job: %w", err)
	}
	return job, nil
}

// CreateFromReady creates a RUNNING job holding up to limit READY_FOR_BATCH
// items, oldest first, with one PENDING job item each.
//
// The job row is inserted before items are selected so a concurrent trigger
// blocks on the single-running index and then fails with ErrBatchAlreadyRunning
// instead of racing for the same items. ErrNoReadyItems rolls the job back.
func (r *BatchJobRepository) CreateFromReady(ctx context.Context, limit int) (*models.BatchJob, error) {
	job := &models.BatchJob{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		Status:    types.BatchJobStatusRunning,
	}

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO batch_jobs (id, started_at, status, total_items, success_items, failed_items)
			VALUES ($1, $2, $3, 0, 0, 0)`,
			job.ID, job.StartedAt, job.Status,
		)
		if err != nil {
			if constraint, ok := uniqueViolation(err); ok && constraint == singleRunningIndex {
				return ErrBatchAlreadyRunning
			}
			return fmt.Errorf("failed to create batch job: %w", err)
		}

		rows, err := tx.Query(ctx, `
			SELECT id FROM packing_items
			WHERE status = $1
			ORDER BY created_at ASC, id ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED`,
			types.PackingStatusReadyForBatch, limit,
		)
		if err != nil {
			return fmt.Errorf("failed to select ready packing items: %w", err)
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("failed to read ready packing items: %w", err)
		}
		if len(ids) == 0 {
			return ErrNoReadyItems
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO batch_job_items (batch_job_id, packing_item_id, status)
			SELECT $1, item_id, $3
			FROM unnest($2::uuid[]) AS item_id`,
			job.ID, ids, types.BatchItemStatusPending,
		)
		if err != nil {
			return fmt.Errorf("failed to create batch job items: %w", err)
		}

		job.TotalItems = len(ids)
		if _, err := tx.Exec(ctx, `UPDATE batch_jobs SET total_items = $2 WHERE id = $1`, job.ID, job.TotalItems); err != nil {
			return fmt.Errorf("failed to set batch job size: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// GetByID retrieves a batch job
func (r *BatchJobRepository) GetByID(ctx context.Context, id string) (*models.BatchJob, error) {
	query := `SELECT ` + batchJobColumns + ` FROM batch_jobs bj WHERE bj.id = $1`

	job, err := scanBatchJob(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get batch job: %w", err)
	}
	return job, nil
}

// ListItems returns the items of a job joined with their barcode
func (r *BatchJobRepository) ListItems(ctx context.Context, jobID string) ([]*models.BatchJobItem, error) {
	query := `
		SELECT bji.id, bji.batch_job_id, bji.packing_item_id, COALESCE(pi.barcode, ''),
		       bji.status, bji.error_message, bji.started_at, bji.finished_at
		FROM batch_job_items bji
		LEFT JOIN packing_items pi ON pi.id = bji.packing_item_id
		WHERE bji.batch_job_id = $1
		ORDER BY pi.created_at ASC, bji.id ASC
	`
	rows, err := r.db.Pool().Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch job items: %w", err)
	}
	defer rows.Close()

	items := make([]*models.BatchJobItem, 0)
	for rows.Next() {
		item, err := scanBatchJobItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch job item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batch job items: %w", err)
	}
	return items, nil
}

// List returns a page of batch jobs and the total count
func (r *BatchJobRepository) List(ctx context.Context, filter BatchJobFilter, opts ListOptions) ([]*models.BatchJob, int, error) {
	var w whereBuilder
	if filter.Status != "" {
		w.add("bj.status = ?", filter.Status)
	}
	if filter.StartDate != nil {
		w.add("bj.started_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		w.add("bj.started_at <= ?", *filter.EndDate)
	}

	var total int
	if err := r.db.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM batch_jobs bj `+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count batch jobs: %w", err)
	}

	pageClause, args := w.page(opts)
	query := `SELECT ` + batchJobColumns + ` FROM batch_jobs bj
		` + w.sql() + `
		` + BatchJobSortColumns.orderBy(opts.SortBy, opts.SortDir, "bj.id") + `
		` + pageClause

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list batch jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*models.BatchJob, 0)
	for rows.Next() {
		job, err := scanBatchJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan batch job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating batch jobs: %w", err)
	}
	return jobs, total, nil
}

// MarkItemProcessing moves a PENDING job item to PROCESSING
func (r *BatchJobRepository) MarkItemProcessing(ctx context.Context, itemID string) (*models.BatchJobItem, error) {
	query := `
		UPDATE batch_job_items bji
		SET status = $2, started_at = NOW()
		FROM packing_items pi
		WHERE bji.id = $1 AND bji.status = $3 AND pi.id = bji.packing_item_id
		RETURNING bji.id, bji.batch_job_id, bji.packing_item_id, pi.barcode,
		          bji.status, bji.error_message, bji.started_at, bji.finished_at
	`
	item, err := scanBatchJobItem(r.db.Pool().QueryRow(ctx, query, itemID, types.BatchItemStatusProcessing, types.BatchItemStatusPending))
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to mark batch job item processing: %w", err)
	}

	var exists bool
	if err := r.db.Pool().QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM batch_job_items WHERE id = $1)`, itemID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check batch job item: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrStaleState
}

// RecordItemResult stores a worker outcome for a job item. In one transaction
// it resolves the item, moves the packing item to CLIP_GENERATED or ERROR,
// stores the clip, bumps the job counters and finalizes the job once every
// item is resolved. A second report for a resolved item yields ErrStaleState.
func (r *BatchJobRepository) RecordItemResult(ctx context.Context, result ItemResult) (*models.BatchJob, error) {
	var job *models.BatchJob

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var (
			jobID         string
			packingItemID string
			status        types.BatchItemStatus
		)
		err := tx.QueryRow(ctx,
			`SELECT batch_job_id, packing_item_id, status FROM batch_job_items WHERE id = $1 FOR UPDATE`,
			result.ItemID,
		).Scan(&jobID, &packingItemID, &status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock batch job item: %w", err)
		}

		next := types.BatchItemStatusFailed
		if result.Success {
			next = types.BatchItemStatusSuccess
		}
		if !status.CanTransitionTo(next) {
			return ErrStaleState
		}

		job, err = scanBatchJob(tx.QueryRow(ctx,
			`SELECT `+batchJobColumns+` FROM batch_jobs bj WHERE bj.id = $1 FOR UPDATE`, jobID))
		if err != nil {
			return fmt.Errorf("failed to lock batch job: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE batch_job_items
			SET status = $2, error_message = $3, started_at = COALESCE(started_at, NOW()), finished_at = NOW()
			WHERE id = $1`,
			result.ItemID, next, result.ErrorMessage,
		)
		if err != nil {
			return fmt.Errorf("failed to resolve batch job item: %w", err)
		}

		if err := applyPackingOutcome(ctx, tx, packingItemID, result.Success, result.Clip); err != nil {
			return err
		}

		if result.Success {
			job.SuccessItems++
		} else {
			job.FailedItems++
		}
		if job.Status == types.BatchJobStatusRunning && job.Resolved() {
			now := time.Now()
			job.Status = types.FinalBatchStatus(job.SuccessItems, job.FailedItems)
			job.FinishedAt = &now
		}

		_, err = tx.Exec(ctx, `
			UPDATE batch_jobs
			SET success_items = $2, failed_items = $3, status = $4, finished_at = $5
			WHERE id = $1`,
			job.ID, job.SuccessItems, job.FailedItems, job.Status, job.FinishedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update batch job counters: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// FailStale finalizes RUNNING jobs started before cutoff, failing every
// unresolved item with reason. It returns the ids of the finalized jobs.
func (r *BatchJobRepository) FailStale(ctx context.Context, cutoff time.Time, reason string) ([]string, error) {
	var finalized []string

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT `+batchJobColumns+`
			FROM batch_jobs bj
			WHERE bj.status = $1 AND bj.started_at < $2
			FOR UPDATE SKIP LOCKED`,
			types.BatchJobStatusRunning, cutoff,
		)
		if err != nil {
			return fmt.Errorf("failed to select stale batch jobs: %w", err)
		}

		var jobs []*models.BatchJob
		for rows.Next() {
			job, err := scanBatchJob(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan stale batch job: %w", err)
			}
			jobs = append(jobs, job)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating stale batch jobs: %w", err)
		}

		unresolved := []string{string(types.BatchItemStatusPending), string(types.BatchItemStatusProcessing)}
		for _, job := range jobs {
			_, err := tx.Exec(ctx, `
				UPDATE packing_items
				SET status = $2, updated_at = NOW()
				WHERE status = $3 AND id IN (
					SELECT packing_item_id FROM batch_job_items
					WHERE batch_job_id = $1 AND status = ANY($4)
				)`,
				job.ID, types.PackingStatusError, types.PackingStatusReadyForBatch, unresolved,
			)
			if err != nil {
				return fmt.Errorf("failed to fail packing items of job %s: %w", job.ID, err)
			}

			tag, err := tx.Exec(ctx, `
				UPDATE batch_job_items
				SET status = $2, error_message = $3, finished_at = NOW()
				WHERE batch_job_id = $1 AND status = ANY($4)`,
				job.ID, types.BatchItemStatusFailed, reason, unresolved,
			)
			if err != nil {
				return fmt.Errorf("failed to fail items of job %s: %w", job.ID, err)
			}

			job.FailedItems += int(tag.RowsAffected())
			_, err = tx.Exec(ctx, `
				UPDATE batch_jobs
				SET failed_items = $2, status = $3, finished_at = NOW(), error_message = $4
				WHERE id = $1`,
				job.ID, job.FailedItems, types.FinalBatchStatus(job.SuccessItems, job.FailedItems), reason,
			)
			if err != nil {
				return fmt.Errorf("failed to finalize stale job %s: %w", job.ID, err)
			}
			finalized = append(finalized, job.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return finalized, nil
}

// applyPackingOutcome moves a READY_FOR_BATCH packing item to its terminal
// state and stores the produced clip.
func applyPackingOutcome(ctx context.Context, q querier, packingItemID string, success bool, clip *ClipOutcome) error {
	next := types.PackingStatusError
	if success {
		next = types.PackingStatusClipGenerated
	}

	_, err := q.Exec(ctx, `
		UPDATE packing_items
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`,
		packingItemID, next, types.PackingStatusReadyForBatch,
	)
	if err != nil {
		return fmt.Errorf("failed to update packing item outcome: %w", err)
	}

	if clip == nil {
		return nil
	}

	status := clip.Status
	if status == "" {
		status = types.ClipStatusUploaded
	}
	_, err = q.Exec(ctx, `
		INSERT INTO mini_clips (packing_item_id, camera_id, storage_path, duration_sec, filesize_bytes, generated_at, status)
		SELECT pi.id, w.camera_id, $2, $3, $4, NOW(), $5
		FROM packing_items pi
		JOIN workstations w ON w.id = pi.workstation_id
		WHERE pi.id = $1
		ON CONFLICT (packing_item_id) DO UPDATE
		SET camera_id = EXCLUDED.camera_id,
		    storage_path = EXCLUDED.storage_path,
		    duration_sec = EXCLUDED.duration_sec,
		    filesize_bytes = EXCLUDED.filesize_bytes,
		    generated_at = EXCLUDED.generated_at,
		    status = EXCLUDED.status`,
		packingItemID, clip.StoragePath, clip.DurationSec, clip.FilesizeBytes, status,
	)
	if err != nil {
		return fmt.Errorf("failed to store mini clip: %w", err)
	}
	return nil
}
