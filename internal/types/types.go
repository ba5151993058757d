// Package types provides the status enums and lifecycle rules of the packing audit system.
package types

// RoleName identifies a system role
type RoleName string

const (
	// RoleSuperadmin can manage every resource and run batches
	RoleSuperadmin RoleName = "SUPERADMIN"
	// RoleOperator can scan packing items at a workstation
	RoleOperator RoleName = "OPERATOR"
)

// TokenType distinguishes access tokens from other signed tokens.
// Refresh tokens are opaque and stored server side, so access is the only
// type the issuer signs.
type TokenType string

const TokenTypeAccess TokenType = "access"

// PackingStatus represents a packing item's scan lifecycle state
type PackingStatus string

const (
	// PackingStatusPending marks an open scan that has not ended yet
	PackingStatusPending PackingStatus = "PENDING"
	// PackingStatusReadyForBatch marks an ended scan waiting for a batch pull
	PackingStatusReadyForBatch PackingStatus = "READY_FOR_BATCH"
	// PackingStatusClipGenerated marks an item whose clip was produced
	PackingStatusClipGenerated PackingStatus = "CLIP_GENERATED"
	// PackingStatusError marks an item the worker failed to process
	PackingStatusError PackingStatus = "ERROR"
)

// packingTransitions lists the allowed next states for each state.
var packingTransitions = map[PackingStatus][]PackingStatus{
	PackingStatusPending:       {PackingStatusReadyForBatch},
	PackingStatusReadyForBatch: {PackingStatusReadyForBatch, PackingStatusClipGenerated, PackingStatusError},
	PackingStatusClipGenerated: {PackingStatusReadyForBatch},
	PackingStatusError:         {PackingStatusReadyForBatch},
}

// Valid reports whether s is a known packing status
func (s PackingStatus) Valid() bool {
	_, ok := packingTransitions[s]
	return ok
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next
func (s PackingStatus) CanTransitionTo(next PackingStatus) bool {
	for _, allowed := range packingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Reprocessable reports whether an item in state s may be queued for another batch
func (s PackingStatus) Reprocessable() bool {
	return s != PackingStatusPending && s.CanTransitionTo(PackingStatusReadyForBatch)
}

// Processable reports whether an item in state s may be dispatched to the worker directly
func (s PackingStatus) Processable() bool {
	return s == PackingStatusReadyForBatch || s == PackingStatusError
}

// PackingStatuses returns every packing status
func PackingStatuses() []PackingStatus {
	return []PackingStatus{
		PackingStatusPending,
		PackingStatusReadyForBatch,
		PackingStatusClipGenerated,
		PackingStatusError,
	}
}

// BatchJobStatus represents the state of a batch job
type BatchJobStatus string

const (
	BatchJobStatusRunning        BatchJobStatus = "RUNNING"
	BatchJobStatusSuccess        BatchJobStatus = "SUCCESS"
	BatchJobStatusPartialSuccess BatchJobStatus = "PARTIAL_SUCCESS"
	BatchJobStatusFailed         BatchJobStatus = "FAILED"
)

// Valid reports whether s is a known batch job status
func (s BatchJobStatus) Valid() bool {
	switch s {
	case BatchJobStatusRunning, BatchJobStatusSuccess, BatchJobStatusPartialSuccess, BatchJobStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the job has finished
func (s BatchJobStatus) IsTerminal() bool {
	return s.Valid() && s != BatchJobStatusRunning
}

// FinalBatchStatus derives the terminal job status from resolved item counts.
func FinalBatchStatus(successItems, failedItems int) BatchJobStatus {
	switch {
	case failedItems == 0:
		return BatchJobStatusSuccess
	case successItems == 0:
		return BatchJobStatusFailed
	default:
		return BatchJobStatusPartialSuccess
	}
}

// BatchItemStatus represents the state of one item inside a batch job
type BatchItemStatus string

const (
	BatchItemStatusPending    BatchItemStatus = "PENDING"
	BatchItemStatusProcessing BatchItemStatus = "PROCESSING"
	BatchItemStatusSuccess    BatchItemStatus = "SUCCESS"
	BatchItemStatusFailed     BatchItemStatus = "FAILED"
)

// IsTerminal reports whether the item outcome is final
func (s BatchItemStatus) IsTerminal() bool {
	return s == BatchItemStatusSuccess || s == BatchItemStatusFailed
}

// CanTransitionTo reports whether a batch item may move from s to next.
// A worker may report a result without reporting the start first.
func (s BatchItemStatus) CanTransitionTo(next BatchItemStatus) bool {
	switch s {
	case BatchItemStatusPending:
		return next == BatchItemStatusProcessing || next.IsTerminal()
	case BatchItemStatusProcessing:
		return next.IsTerminal()
	default:
		return false
	}
}

// ClipStatus represents the upload state of a mini clip
type ClipStatus string

const (
	ClipStatusPending  ClipStatus = "PENDING"
	ClipStatusUploaded ClipStatus = "UPLOADED"
	ClipStatusFailed   ClipStatus = "FAILED"
)

// Valid reports whether s is a known clip status
func (s ClipStatus) Valid() bool {
	return s == ClipStatusPending || s == ClipStatusUploaded || s == ClipStatusFailed
}

// SortDirection is an ORDER BY direction
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SQL renders the direction as a keyword
func (d SortDirection) SQL() string {
	if d == SortAsc {
		return "ASC"
	}
	return "DESC"
}
