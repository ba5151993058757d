package api

import (
	"net/http"

	"github.com/packing-audit/internal/service"
)

// handleWorkerItemStart handles POST /api/internal/batch-job-items/{id}/start
func (s *Server) handleWorkerItemStart(w http.ResponseWriter, r *http.Request) {
	item, err := s.batch.ReportItemStart(r.Context(), pathID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgBatchItemStarted, item)
}

// handleWorkerItemResult handles POST /api/internal/batch-job-items/{id}/result
func (s *Server) handleWorkerItemResult(w http.ResponseWriter, r *http.Request) {
	var outcome service.ItemOutcome
	if !s.decodeBody(w, r, &outcome) {
		return
	}
	job, err := s.batch.ReportItemResult(r.Context(), pathID(r), outcome)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgBatchItemRecorded, job)
}

// handleWorkerPackingResult handles POST /api/internal/packing-items/{id}/result
func (s *Server) handleWorkerPackingResult(w http.ResponseWriter, r *http.Request) {
	var outcome service.ItemOutcome
	if !s.decodeBody(w, r, &outcome) {
		return
	}
	item, err := s.packing.RecordOutcome(r.Context(), pathID(r), outcome)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgBatchItemRecorded, item)
}

// handleWorkerCameraCredentials handles GET /api/internal/cameras/{id}/credentials
func (s *Server) handleWorkerCameraCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := s.cameras.Credentials(r.Context(), pathID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgCameraCredentials, creds)
}
