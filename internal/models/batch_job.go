package models

import (
	"time"

	"github.com/packing-audit/internal/types"
)

// BatchJob aggregates a bounded set of ready packing items for the clip worker
type BatchJob struct {
	ID           string               `json:"id" db:"id"`
	StartedAt    time.Time            `json:"started_at" db:"started_at"`
	FinishedAt   *time.Time           `json:"finished_at" db:"finished_at"`
	Status       types.BatchJobStatus `json:"status" db:"status"`
	TotalItems   int                  `json:"total_items" db:"total_items"`
	SuccessItems int                  `json:"success_items" db:"success_items"`
	FailedItems  int                  `json:"failed_items" db:"failed_items"`
	ErrorMessage *string              `json:"error_message" db:"error_message"`
}

// Resolved reports whether every item of the job has an outcome
func (j *BatchJob) Resolved() bool {
	return j.SuccessItems+j.FailedItems >= j.TotalItems
}

// BatchJobItem is one packing item inside a batch job
type BatchJobItem struct {
	ID            string                `json:"id" db:"id"`
	BatchJobID    string                `json:"batch_job_id" db:"batch_job_id"`
	PackingItemID string                `json:"packing_item_id" db:"packing_item_id"`
	Barcode       string                `json:"barcode,omitempty" db:"barcode"`
	Status        types.BatchItemStatus `json:"status" db:"status"`
	ErrorMessage  *string               `json:"error_message" db:"error_message"`
	StartedAt     *time.Time            `json:"started_at" db:"started_at"`
	FinishedAt    *time.Time            `json:"finished_at" db:"finished_at"`
}

// BatchJobDetail is a job together with its items
type BatchJobDetail struct {
	BatchJob
	Items []*BatchJobItem `json:"items"`
}
