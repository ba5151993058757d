package service

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/packing-audit/internal/errors"
	"github.com/packing-audit/internal/logging"
	"github.com/packing-audit/internal/models"
	"github.com/packing-audit/internal/storage"
	"github.com/packing-audit/internal/types"
)

// PackingStore persists packing items
type PackingStore interface {
	Create(ctx context.Context, item *models.PackingItem) error
	GetByID(ctx context.Context, id string) (*models.PackingItem, error)
	FindOpen(ctx context.Context, barcode, workstationID string) (*models.PackingItem, error)
	FindOpenByOperator(ctx context.Context, barcode, operatorID string) (*models.PackingItem, error)
	EndScan(ctx context.Context, id string, endTime time.Time) error
	TransitionStatus(ctx context.Context, id string, from []types.PackingStatus, next types.PackingStatus) error
	List(ctx context.Context, filter storage.PackingFilter, opts storage.ListOptions) ([]*models.PackingItem, int, error)
	RecordOutcome(ctx context.Context, id string, success bool, clip *storage.ClipOutcome) error
}

// WorkstationLookup resolves workstations by id
type WorkstationLookup interface {
	GetByID(ctx context.Context, id string) (*models.Workstation, error)
}

// ScanInput identifies a barcode scan. WorkstationID may be empty on scan end.
type ScanInput struct {
	Barcode       string `json:"barcode"`
	WorkstationID string `json:"workstation_id"`
	OperatorID    string `json:"-"`
}

func (in *ScanInput) normalize() {
	in.Barcode = strings.TrimSpace(in.Barcode)
	in.WorkstationID = strings.TrimSpace(in.WorkstationID)
}

// PackingService drives the scan lifecycle of packing items
type PackingService struct {
	items        PackingStore
	workstations WorkstationLookup
	now          func() time.Time
}

// NewPackingService creates a packing service
func NewPackingService(items PackingStore, workstations WorkstationLookup) *PackingService {
	return &PackingService{items: items, workstations: workstations, now: time.Now}
}

// ScanStart opens a scan for a barcode at a workstation. A second open scan
// for the same pair is rejected, including when two starts race.
func (s *PackingService) ScanStart(ctx context.Context, in ScanInput) (*models.PackingItem, error) {
	in.normalize()
	v := fieldErrors{}
	v.require("barcode", in.Barcode)
	v.id("workstation_id", in.WorkstationID)
	if err := v.err(); err != nil {
		return nil, err
	}

	if _, err := s.workstations.GetByID(ctx, in.WorkstationID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(MsgWorkstationNotFound)
		}
		return nil, apperrors.NewDatabaseError("get workstation", err)
	}

	if _, err := s.items.FindOpen(ctx, in.Barcode, in.WorkstationID); err == nil {
		return nil, apperrors.NewConflictError(apperrors.CodeAlreadyStarted, MsgPackingAlreadyStarted)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.NewDatabaseError("find open packing item", err)
	}

	item := &models.PackingItem{
		Barcode:       in.Barcode,
		OperatorID:    in.OperatorID,
		WorkstationID: in.WorkstationID,
		StartTime:     s.now(),
		Status:        types.PackingStatusPending,
	}
	if err := s.items.Create(ctx, item); err != nil {
		if errors.Is(err, storage.ErrOpenScanExists) {
			return nil, apperrors.NewConflictError(apperrors.CodeAlreadyStarted, MsgPackingAlreadyStarted)
		}
		return nil, apperrors.NewDatabaseError("create packing item", err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"packingItemId": item.ID,
		"barcode":       item.Barcode,
		"workstationId": item.WorkstationID,
	}).Info("Packing started")

	return s.reload(ctx, item)
}

// ScanEnd closes the open scan of a barcode and makes it ready for batching.
// Without a workstation the operator's oldest open scan of the barcode is used.
func (s *PackingService) ScanEnd(ctx context.Context, in ScanInput) (*models.PackingItem, error) {
	in.normalize()
	v := fieldErrors{}
	v.require("barcode", in.Barcode)
	v.optionalID("workstation_id", in.WorkstationID)
	if err := v.err(); err != nil {
		return nil, err
	}

	open, err := s.findOpen(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.end(ctx, open)
}

// Scan toggles a barcode at a workstation: it ends the open scan when one
// exists and starts one otherwise. started reports which happened.
func (s *PackingService) Scan(ctx context.Context, in ScanInput) (item *models.PackingItem, started bool, err error) {
	in.normalize()
	v := fieldErrors{}
	v.require("barcode", in.Barcode)
	v.id("workstation_id", in.WorkstationID)
	if err := v.err(); err != nil {
		return nil, false, err
	}

	open, err := s.items.FindOpen(ctx, in.Barcode, in.WorkstationID)
	switch {
	case err == nil:
		item, err = s.end(ctx, open)
		return item, false, err
	case errors.Is(err, storage.ErrNotFound):
		item, err = s.ScanStart(ctx, in)
		return item, true, err
	default:
		return nil, false, apperrors.NewDatabaseError("find open packing item", err)
	}
}

func (s *PackingService) findOpen(ctx context.Context, in ScanInput) (*models.PackingItem, error) {
	var (
		open *models.PackingItem
		err  error
	)
	if in.WorkstationID != "" {
		open, err = s.items.FindOpen(ctx, in.Barcode, in.WorkstationID)
	} else {
		open, err = s.items.FindOpenByOperator(ctx, in.Barcode, in.OperatorID)
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewConflictError(apperrors.CodeNotStarted, MsgPackingNotStarted)
		}
		return nil, apperrors.NewDatabaseError("find open packing item", err)
	}
	return open, nil
}

func (s *PackingService) end(ctx context.Context, open *models.PackingItem) (*models.PackingItem, error) {
	if err := s.items.EndScan(ctx, open.ID, s.now()); err != nil {
		if errors.Is(err, storage.ErrStaleState) {
			return nil, apperrors.NewConflictError(apperrors.CodeNotStarted, MsgPackingNotStarted)
		}
		return nil, apperrors.NewDatabaseError("end packing scan", err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"packingItemId": open.ID,
		"barcode":       open.Barcode,
	}).Info("Packing ended")

	return s.reload(ctx, open)
}

func (s *PackingService) reload(ctx context.Context, item *models.PackingItem) (*models.PackingItem, error) {
	fresh, err := s.items.GetByID(ctx, item.ID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get packing item", err)
	}
	return fresh, nil
}

// Reprocess queues an item for the next batch again. ERROR and
// CLIP_GENERATED items move to READY_FOR_BATCH; an item already there is
// left as is. Items still being scanned are rejected.
func (s *PackingService) Reprocess(ctx context.Context, id string) (*models.PackingItem, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !item.Status.Reprocessable() {
		return nil, apperrors.NewConflictError(apperrors.CodeInvalidState, MsgReprocessInvalid)
	}
	if item.Status == types.PackingStatusReadyForBatch {
		return item, nil
	}

	from := []types.PackingStatus{types.PackingStatusError, types.PackingStatusClipGenerated}
	if err := s.items.TransitionStatus(ctx, id, from, types.PackingStatusReadyForBatch); err != nil {
		if errors.Is(err, storage.ErrStaleState) {
			return nil, apperrors.NewConflictError(apperrors.CodeInvalidState, MsgReprocessInvalid)
		}
		return nil, apperrors.NewDatabaseError("reprocess packing item", err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"packingItemId": id,
		"from":          item.Status,
	}).Info("Packing item queued for reprocessing")

	return s.reload(ctx, item)
}

// GetByID returns one packing item
func (s *PackingService) GetByID(ctx context.Context, id string) (*models.PackingItem, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFoundError(MsgPackingNotFound)
	}
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(MsgPackingNotFound)
		}
		return nil, apperrors.NewDatabaseError("get packing item", err)
	}
	return item, nil
}

// List returns a page of packing items
func (s *PackingService) List(ctx context.Context, filter storage.PackingFilter, page PageRequest) (*Page[*models.PackingItem], error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.NewInvalidParameterError("status", "unknown packing status")
	}
	if filter.WorkstationID != "" && !validID(filter.WorkstationID) {
		return nil, apperrors.NewInvalidParameterError("workstation_id", "must be a valid id")
	}
	if filter.OperatorID != "" && !validID(filter.OperatorID) {
		return nil, apperrors.NewInvalidParameterError("operator_id", "must be a valid id")
	}

	items, total, err := s.items.List(ctx, filter, page.ListOptions())
	if err != nil {
		return nil, apperrors.NewDatabaseError("list packing items", err)
	}
	return NewPage(items, page, total), nil
}

// RecordOutcome stores the worker result of an item processed on its own
func (s *PackingService) RecordOutcome(ctx context.Context, id string, result ItemOutcome) (*models.PackingItem, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFoundError(MsgPackingNotFound)
	}
	clip, err := result.clipOutcome()
	if err != nil {
		return nil, err
	}

	if err := s.items.RecordOutcome(ctx, id, result.Success, clip); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, apperrors.NewNotFoundError(MsgPackingNotFound)
		case errors.Is(err, storage.ErrStaleState):
			return nil, apperrors.NewConflictError(apperrors.CodeInvalidState, MsgProcessInvalid)
		default:
			return nil, apperrors.NewDatabaseError("record packing outcome", err)
		}
	}
	return s.GetByID(ctx, id)
}
