package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", NewNotFoundError("Batch job not found"), http.StatusNotFound, CodeNotFound},
		{"conflict maps to 400", NewConflictError(CodeAlreadyRunning, "A batch job is already running"), http.StatusBadRequest, CodeAlreadyRunning},
		{"wrapped conflict", fmt.Errorf("trigger: %w", NewConflictError(CodeAlreadyStarted, "x")), http.StatusBadRequest, CodeAlreadyStarted},
		{"worker unavailable", NewWorkerUnavailableError(fmt.Errorf("dial tcp")), http.StatusBadGateway, CodeWorkerUnavailable},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categorize(tt.err)
			if got.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %v, want %v", got.StatusCode, tt.wantStatus)
			}
			if got.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", got.Code, tt.wantCode)
			}
		})
	}

	if Categorize(nil) != nil {
		t.Error("Categorize(nil) should be nil")
	}
}

func TestNewWorkerError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		message    string
		wantStatus int
		wantMsg    string
	}{
		{"passes 4xx through", http.StatusUnprocessableEntity, "bad item", http.StatusUnprocessableEntity, "bad item"},
		{"passes 5xx through", http.StatusServiceUnavailable, "busy", http.StatusServiceUnavailable, "busy"},
		{"non error status becomes 502", http.StatusFound, "", http.StatusBadGateway, "Worker rejected the request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewWorkerError(tt.status, tt.message)
			if err.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %v, want %v", err.StatusCode, tt.wantStatus)
			}
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %v, want %v", err.Message, tt.wantMsg)
			}
		})
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewConflictError(CodeNotStarted, "No active packing found for this barcode"))
	if !HasCode(err, CodeNotStarted) {
		t.Error("HasCode() = false, want true")
	}
	if HasCode(err, CodeAlreadyStarted) {
		t.Error("HasCode() matched the wrong code")
	}
	if HasCode(fmt.Errorf("plain"), CodeInternal) {
		t.Error("HasCode() matched an uncategorized error")
	}
}

func TestIsUserError(t *testing.T) {
	if !IsUserError(NewValidationError("Invalid input data", nil)) {
		t.Error("validation error should be a user error")
	}
	if IsUserError(NewDatabaseError("insert", fmt.Errorf("x"))) {
		t.Error("database error should not be a user error")
	}
	if !IsSystemError(NewWorkerUnavailableError(nil)) {
		t.Error("worker unavailable should be a system error")
	}
}
