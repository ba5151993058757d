package types

import "testing"

func TestPackingStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from PackingStatus
		to   PackingStatus
		want bool
	}{
		{PackingStatusPending, PackingStatusReadyForBatch, true},
		{PackingStatusPending, PackingStatusClipGenerated, false},
		{PackingStatusPending, PackingStatusError, false},
		{PackingStatusReadyForBatch, PackingStatusClipGenerated, true},
		{PackingStatusReadyForBatch, PackingStatusError, true},
		{PackingStatusReadyForBatch, PackingStatusPending, false},
		{PackingStatusError, PackingStatusReadyForBatch, true},
		{PackingStatusError, PackingStatusClipGenerated, false},
		{PackingStatusClipGenerated, PackingStatusReadyForBatch, true},
		{PackingStatusClipGenerated, PackingStatusPending, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s.CanTransitionTo(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestPackingStatus_Reprocessable(t *testing.T) {
	tests := []struct {
		status PackingStatus
		want   bool
	}{
		{PackingStatusPending, false},
		{PackingStatusReadyForBatch, true},
		{PackingStatusClipGenerated, true},
		{PackingStatusError, true},
		{PackingStatus("PENDING_END"), false},
	}

	for _, tt := range tests {
		if got := tt.status.Reprocessable(); got != tt.want {
			t.Errorf("%s.Reprocessable() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestFinalBatchStatus(t *testing.T) {
	tests := []struct {
		name    string
		success int
		failed  int
		want    BatchJobStatus
	}{
		{"all success", 5, 0, BatchJobStatusSuccess},
		{"all failed", 0, 5, BatchJobStatusFailed},
		{"mixed", 3, 2, BatchJobStatusPartialSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FinalBatchStatus(tt.success, tt.failed); got != tt.want {
				t.Errorf("FinalBatchStatus(%d, %d) = %v, want %v", tt.success, tt.failed, got, tt.want)
			}
		})
	}
}

func TestBatchItemStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from BatchItemStatus
		to   BatchItemStatus
		want bool
	}{
		{BatchItemStatusPending, BatchItemStatusProcessing, true},
		{BatchItemStatusPending, BatchItemStatusSuccess, true},
		{BatchItemStatusProcessing, BatchItemStatusFailed, true},
		{BatchItemStatusProcessing, BatchItemStatusPending, false},
		{BatchItemStatusSuccess, BatchItemStatusFailed, false},
		{BatchItemStatusFailed, BatchItemStatusProcessing, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s.CanTransitionTo(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestSortDirection_SQL(t *testing.T) {
	if SortAsc.SQL() != "ASC" {
		t.Errorf("SortAsc.SQL() = %v", SortAsc.SQL())
	}
	if SortDirection("weird").SQL() != "DESC" {
		t.Error("unknown direction should render DESC")
	}
}
