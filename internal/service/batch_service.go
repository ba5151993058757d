package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/packing-audit/internal/adapter"
	apperrors "github.com/packing-audit/internal/errors"
	"github.com/packing-audit/internal/logging"
	"github.com/packing-audit/internal/models"
	"github.com/packing-audit/internal/storage"
	"github.com/packing-audit/internal/types"
)

// BatchStore persists batch jobs and their items
type BatchStore interface {
	FindRunning(ctx context.Context) (*models.BatchJob, error)
	CreateFromReady(ctx context.Context, limit int) (*models.BatchJob, error)
	GetByID(ctx context.Context, id string) (*models.BatchJob, error)
	ListItems(ctx context.Context, jobID string) ([]*models.BatchJobItem, error)
	List(ctx context.Context, filter storage.BatchJobFilter, opts storage.ListOptions) ([]*models.BatchJob, int, error)
	MarkItemProcessing(ctx context.Context, itemID string) (*models.BatchJobItem, error)
	RecordItemResult(ctx context.Context, result storage.ItemResult) (*models.BatchJob, error)
	FailStale(ctx context.Context, cutoff time.Time, reason string) ([]string, error)
}

// DispatchStore reads and resets packing items before a direct dispatch
type DispatchStore interface {
	GetByID(ctx context.Context, id string) (*models.PackingItem, error)
	TransitionStatus(ctx context.Context, id string, from []types.PackingStatus, next types.PackingStatus) error
}

// WorkerTrigger asks the clip worker to process one packing item
type WorkerTrigger interface {
	Trigger(ctx context.Context, packingItemID string) (*adapter.TriggerResult, error)
}

// ClipReport describes a clip the worker produced
type ClipReport struct {
	StoragePath   string           `json:"storage_path"`
	DurationSec   *int             `json:"duration_sec"`
	FilesizeBytes *int64           `json:"filesize_bytes"`
	Status        types.ClipStatus `json:"status"`
}

// ItemOutcome is the worker's report for one processed item
type ItemOutcome struct {
	Success      bool        `json:"success"`
	ErrorMessage *string     `json:"error_message"`
	Clip         *ClipReport `json:"clip"`
}

func (o ItemOutcome) clipOutcome() (*storage.ClipOutcome, error) {
	if o.Clip == nil {
		return nil, nil
	}

	v := fieldErrors{}
	v.require("clip.storage_path", o.Clip.StoragePath)
	status := o.Clip.Status
	if status == "" {
		status = types.ClipStatusUploaded
	}
	if !status.Valid() {
		v["clip.status"] = "unknown clip status"
	}
	if o.Clip.DurationSec != nil && *o.Clip.DurationSec < 0 {
		v["clip.duration_sec"] = "must not be negative"
	}
	if o.Clip.FilesizeBytes != nil && *o.Clip.FilesizeBytes < 0 {
		v["clip.filesize_bytes"] = "must not be negative"
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	return &storage.ClipOutcome{
		StoragePath:   strings.TrimSpace(o.Clip.StoragePath),
		DurationSec:   o.Clip.DurationSec,
		FilesizeBytes: o.Clip.FilesizeBytes,
		Status:        status,
	}, nil
}

// BatchService orchestrates batch jobs and direct worker dispatch
type BatchService struct {
	jobs     BatchStore
	packing  DispatchStore
	worker   WorkerTrigger
	maxItems int
	now      func() time.Time
}

// NewBatchService creates a batch service capped at maxItems per job
func NewBatchService(jobs BatchStore, packing DispatchStore, worker WorkerTrigger, maxItems int) *BatchService {
	return &BatchService{jobs: jobs, packing: packing, worker: worker, maxItems: maxItems, now: time.Now}
}

// Trigger creates a RUNNING job from the oldest ready items. It returns a nil
// job when nothing is ready, and a conflict while another job runs.
func (s *BatchService) Trigger(ctx context.Context) (*models.BatchJob, error) {
	log := logging.FromContext(ctx)

	if running, err := s.jobs.FindRunning(ctx); err == nil {
		log.WithField("batchJobId", running.ID).Warn("Batch trigger rejected, job already running")
		return nil, apperrors.NewConflictError(apperrors.CodeAlreadyRunning, MsgBatchRunning)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.NewDatabaseError("find running batch job", err)
	}

	job, err := s.jobs.CreateFromReady(ctx, s.maxItems)
	switch {
	case errors.Is(err, storage.ErrNoReadyItems):
		log.Info("No items ready for batch processing")
		return nil, nil
	case errors.Is(err, storage.ErrBatchAlreadyRunning):
		return nil, apperrors.NewConflictError(apperrors.CodeAlreadyRunning, MsgBatchRunning)
	case err != nil:
		return nil, apperrors.NewDatabaseError("create batch job", err)
	}

	log.WithFields(map[string]interface{}{
		"batchJobId": job.ID,
		"totalItems": job.TotalItems,
	}).Info("Batch job triggered")
	return job, nil
}

// ProcessItem dispatches one packing item to the worker. ERROR items are
// reset to READY_FOR_BATCH first.
func (s *BatchService) ProcessItem(ctx context.Context, id string) (*adapter.TriggerResult, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFoundError(MsgPackingNotFound)
	}
	item, err := s.packing.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(MsgPackingNotFound)
		}
		return nil, apperrors.NewDatabaseError("get packing item", err)
	}
	if !item.Status.Processable() {
		return nil, apperrors.NewConflictError(apperrors.CodeInvalidState, MsgProcessInvalid)
	}

	if item.Status == types.PackingStatusError {
		err := s.packing.TransitionStatus(ctx, id,
			[]types.PackingStatus{types.PackingStatusError}, types.PackingStatusReadyForBatch)
		if err != nil {
			if errors.Is(err, storage.ErrStaleState) {
				return nil, apperrors.NewConflictError(apperrors.CodeInvalidState, MsgProcessInvalid)
			}
			return nil, apperrors.NewDatabaseError("reset packing item", err)
		}
	}

	result, err := s.worker.Trigger(ctx, id)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"packingItemId": id,
		"workerStatus":  result.Status,
	}).Info("Packing item sent to worker")
	return result, nil
}

// GetByID returns a job with its items
func (s *BatchService) GetByID(ctx context.Context, id string) (*models.BatchJobDetail, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFoundError(MsgBatchNotFound)
	}
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(MsgBatchNotFound)
		}
		return nil, apperrors.NewDatabaseError("get batch job", err)
	}

	items, err := s.jobs.ListItems(ctx, id)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list batch job items", err)
	}
	if items == nil {
		items = []*models.BatchJobItem{}
	}
	return &models.BatchJobDetail{BatchJob: *job, Items: items}, nil
}

// List returns a page of batch jobs
func (s *BatchService) List(ctx context.Context, filter storage.BatchJobFilter, page PageRequest) (*Page[*models.BatchJob], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.NewInvalidParameterError("status", "unknown batch job status")
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, apperrors.NewInvalidParameterError("endDate", "must not be before startDate")
	}

	jobs, total, err := s.jobs.List(ctx, filter, page.ListOptions())
	if err != nil {
		return nil, apperrors.NewDatabaseError("list batch jobs", err)
	}
	return NewPage(jobs, page, total), nil
}

// ReportItemStart records that the worker picked up a job item
func (s *BatchService) ReportItemStart(ctx context.Context, itemID string) (*models.BatchJobItem, error) {
	if !validID(itemID) {
		return nil, apperrors.NewNotFoundError(MsgBatchItemNotFound)
	}
	item, err := s.jobs.MarkItemProcessing(ctx, itemID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, apperrors.NewNotFoundError(MsgBatchItemNotFound)
		case errors.Is(err, storage.ErrStaleState):
			return nil, apperrors.NewConflictError(apperrors.CodeInvalidState, MsgBatchItemResolved)
		default:
			return nil, apperrors.NewDatabaseError("start batch job item", err)
		}
	}
	return item, nil
}

// ReportItemResult records a worker outcome and returns the updated job,
// finalized once every item has resolved.
func (s *BatchService) ReportItemResult(ctx context.Context, itemID string, outcome ItemOutcome) (*models.BatchJob, error) {
	if !validID(itemID) {
		return nil, apperrors.NewNotFoundError(MsgBatchItemNotFound)
	}
	clip, err := outcome.clipOutcome()
	if err != nil {
		return nil, err
	}

	errorMessage := outcome.ErrorMessage
	if !outcome.Success && (errorMessage == nil || strings.TrimSpace(*errorMessage) == "") {
		msg := "clip generation failed"
		errorMessage = &msg
	}
	if outcome.Success {
		errorMessage = nil
	}

	job, err := s.jobs.RecordItemResult(ctx, storage.ItemResult{
		ItemID:       itemID,
		Success:      outcome.Success,
		ErrorMessage: errorMessage,
		Clip:         clip,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, apperrors.NewNotFoundError(MsgBatchItemNotFound)
		case errors.Is(err, storage.ErrStaleState):
			return nil, apperrors.NewConflictError(apperrors.CodeInvalidState, MsgBatchItemResolved)
		default:
			return nil, apperrors.NewDatabaseError("record batch job item result", err)
		}
	}

	if job.Status.IsTerminal() {
		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"batchJobId":   job.ID,
			"status":       job.Status,
			"successItems": job.SuccessItems,
			"failedItems":  job.FailedItems,
		}).Info("Batch job finished")
	}
	return job, nil
}

// FailStale finalizes jobs that have been RUNNING longer than maxAge
func (s *BatchService) FailStale(ctx context.Context, maxAge time.Duration) ([]string, error) {
	ids, err := s.jobs.FailStale(ctx, s.now().Add(-maxAge), MsgBatchTimedOut)
	if err != nil {
		return nil, apperrors.NewDatabaseError("fail stale batch jobs", err)
	}
	return ids, nil
}
