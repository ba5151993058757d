package api

import (
	"net/http"

	"github.com/packing-audit/internal/service"
	"github.com/packing-audit/internal/storage"
	"github.com/packing-audit/internal/types"
)

// handleTriggerBatch handles POST /api/batch-jobs/trigger
func (s *Server) handleTriggerBatch(w http.ResponseWriter, r *http.Request) {
	job, err := s.batch.Trigger(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if job == nil {
		respondSuccess(w, http.StatusOK, service.MsgBatchNoReadyItems, nil)
		return
	}
	respondSuccess(w, http.StatusCreated, service.MsgBatchTriggered, job)
}

// handleListBatchJobs handles GET /api/batch-jobs
func (s *Server) handleListBatchJobs(w http.ResponseWriter, r *http.Request) {
	page, err := service.ParsePageRequest(r.URL.Query(), storage.BatchJobSortColumns)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	filter := storage.BatchJobFilter{Status: types.BatchJobStatus(r.URL.Query().Get("status"))}
	if filter.StartDate, err = parseDateParam(r, "startDate", false); err != nil {
		s.respondError(w, r, err)
		return
	}
	if filter.EndDate, err = parseDateParam(r, "endDate", true); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.batch.List(r.Context(), filter, page)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgBatchRetrieved, result)
}

// handleGetBatchJob handles GET /api/batch-jobs/{id}
func (s *Server) handleGetBatchJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.batch.GetByID(r.Context(), pathID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgBatchRetrieved, job)
}
