package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/packing-audit/internal/adapter"
	"github.com/packing-audit/internal/models"
	"github.com/packing-audit/internal/storage"
	"github.com/packing-audit/internal/types"
)

// fakePackingStore mirrors the repository semantics in memory
type fakePackingStore struct {
	mu    sync.Mutex
	items map[string]*models.PackingItem
	seq   int

	// createErr, when set, is returned by Create instead of inserting
	createErr error
	outcomes  map[string]bool
}

func newFakePackingStore() *fakePackingStore {
	return &fakePackingStore{items: map[string]*models.PackingItem{}, outcomes: map[string]bool{}}
}

func (f *fakePackingStore) Create(_ context.Context, item *models.PackingItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.items {
		if existing.Barcode == item.Barcode && existing.WorkstationID == item.WorkstationID &&
			existing.Status == types.PackingStatusPending {
			return storage.ErrOpenScanExists
		}
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	f.seq++
	item.CreatedAt = time.Unix(int64(f.seq), 0)
	cp := *item
	f.items[item.ID] = &cp
	return nil
}

func (f *fakePackingStore) put(item *models.PackingItem) *models.PackingItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	cp := *item
	f.items[item.ID] = &cp
	return item
}

func (f *fakePackingStore) GetByID(_ context.Context, id string) (*models.PackingItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (f *fakePackingStore) FindOpen(_ context.Context, barcode, workstationID string) (*models.PackingItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items {
		if item.Barcode == barcode && item.WorkstationID == workstationID && item.Status == types.PackingStatusPending {
			cp := *item
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakePackingStore) FindOpenByOperator(_ context.Context, barcode, operatorID string) (*models.PackingItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var oldest *models.PackingItem
	for _, item := range f.items {
		if item.Barcode == barcode && item.OperatorID == operatorID && item.Status == types.PackingStatusPending {
			if oldest == nil || item.StartTime.Before(oldest.StartTime) {
				oldest = item
			}
		}
	}
	if oldest == nil {
		return nil, storage.ErrNotFound
	}
	cp := *oldest
	return &cp, nil
}

func (f *fakePackingStore) EndScan(_ context.Context, id string, endTime time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok || item.Status != types.PackingStatusPending {
		return storage.ErrStaleState
	}
	if endTime.Before(item.StartTime) {
		endTime = item.StartTime
	}
	item.EndTime = &endTime
	item.Status = types.PackingStatusReadyForBatch
	return nil
}

func (f *fakePackingStore) TransitionStatus(_ context.Context, id string, from []types.PackingStatus, next types.PackingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return storage.ErrStaleState
	}
	for _, s := range from {
		if item.Status == s {
			item.Status = next
			return nil
		}
	}
	return storage.ErrStaleState
}

func (f *fakePackingStore) List(_ context.Context, filter storage.PackingFilter, opts storage.ListOptions) ([]*models.PackingItem, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PackingItem
	for _, item := range f.items {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		cp := *item
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	total := len(out)
	if opts.Offset >= len(out) {
		return []*models.PackingItem{}, total, nil
	}
	out = out[opts.Offset:]
	if opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, total, nil
}

func (f *fakePackingStore) RecordOutcome(_ context.Context, id string, success bool, _ *storage.ClipOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return storage.ErrNotFound
	}
	if item.Status != types.PackingStatusReadyForBatch {
		return storage.ErrStaleState
	}
	item.Status = types.PackingStatusError
	if success {
		item.Status = types.PackingStatusClipGenerated
	}
	f.outcomes[id] = success
	return nil
}

func (f *fakePackingStore) status(id string) types.PackingStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].Status
}

type fakeWorkstations map[string]*models.Workstation

func (f fakeWorkstations) GetByID(_ context.Context, id string) (*models.Workstation, error) {
	ws, ok := f[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return ws, nil
}

// fakeBatchStore keeps jobs in memory and selects ready items from a packing store
type fakeBatchStore struct {
	mu      sync.Mutex
	packing *fakePackingStore
	jobs    map[string]*models.BatchJob
	items   map[string]*models.BatchJobItem
	// order keeps item ids in insertion order, which follows packing age
	order []string

	// createErr forces CreateFromReady to fail
	createErr  error
	staleCalls []time.Time
}

func newFakeBatchStore(packing *fakePackingStore) *fakeBatchStore {
	return &fakeBatchStore{packing: packing, jobs: map[string]*models.BatchJob{}, items: map[string]*models.BatchJobItem{}}
}

func (f *fakeBatchStore) FindRunning(context.Context) (*models.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, job := range f.jobs {
		if job.Status == types.BatchJobStatusRunning {
			cp := *job
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeBatchStore) CreateFromReady(ctx context.Context, limit int) (*models.BatchJob, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	ready, _, _ := f.packing.List(ctx, storage.PackingFilter{Status: types.PackingStatusReadyForBatch},
		storage.ListOptions{Limit: limit})
	if len(ready) == 0 {
		return nil, storage.ErrNoReadyItems
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	job := &models.BatchJob{
		ID:         uuid.New().String(),
		StartedAt:  time.Now(),
		Status:     types.BatchJobStatusRunning,
		TotalItems: len(ready),
	}
	f.jobs[job.ID] = job
	for _, p := range ready {
		item := &models.BatchJobItem{
			ID:            uuid.New().String(),
			BatchJobID:    job.ID,
			PackingItemID: p.ID,
			Barcode:       p.Barcode,
			Status:        types.BatchItemStatusPending,
		}
		f.items[item.ID] = item
		f.order = append(f.order, item.ID)
	}
	cp := *job
	return &cp, nil
}

func (f *fakeBatchStore) GetByID(_ context.Context, id string) (*models.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (f *fakeBatchStore) ListItems(_ context.Context, jobID string) ([]*models.BatchJobItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.BatchJobItem
	for _, id := range f.order {
		item := f.items[id]
		if item.BatchJobID == jobID {
			cp := *item
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeBatchStore) List(_ context.Context, _ storage.BatchJobFilter, _ storage.ListOptions) ([]*models.BatchJob, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.BatchJob
	for _, job := range f.jobs {
		cp := *job
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (f *fakeBatchStore) MarkItemProcessing(_ context.Context, itemID string) (*models.BatchJobItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[itemID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if item.Status != types.BatchItemStatusPending {
		return nil, storage.ErrStaleState
	}
	item.Status = types.BatchItemStatusProcessing
	cp := *item
	return &cp, nil
}

func (f *fakeBatchStore) RecordItemResult(ctx context.Context, result storage.ItemResult) (*models.BatchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[result.ItemID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	next := types.BatchItemStatusFailed
	if result.Success {
		next = types.BatchItemStatusSuccess
	}
	if !item.Status.CanTransitionTo(next) {
		return nil, storage.ErrStaleState
	}
	item.Status = next
	item.ErrorMessage = result.ErrorMessage

	job := f.jobs[item.BatchJobID]
	if result.Success {
		job.SuccessItems++
	} else {
		job.FailedItems++
	}
	if job.Resolved() {
		now := time.Now()
		job.Status = types.FinalBatchStatus(job.SuccessItems, job.FailedItems)
		job.FinishedAt = &now
	}
	cp := *job
	return &cp, nil
}

func (f *fakeBatchStore) FailStale(_ context.Context, cutoff time.Time, reason string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.staleCalls = append(f.staleCalls, cutoff)
	var ids []string
	for _, job := range f.jobs {
		if job.Status == types.BatchJobStatusRunning && job.StartedAt.Before(cutoff) {
			job.Status = types.BatchJobStatusFailed
			job.ErrorMessage = &reason
			ids = append(ids, job.ID)
		}
	}
	return ids, nil
}

func (f *fakeBatchStore) jobCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

// fakeWorker records triggered items and returns a fixed answer
type fakeWorker struct {
	mu        sync.Mutex
	triggered []string
	err       error
}

func (f *fakeWorker) Trigger(_ context.Context, id string) (*adapter.TriggerResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggered = append(f.triggered, id)
	if f.err != nil {
		return nil, f.err
	}
	return &adapter.TriggerResult{Status: "accepted", PackingItemID: id}, nil
}
