package api

import (
	"net/http"

	"github.com/packing-audit/internal/service"
	"github.com/packing-audit/internal/storage"
	"github.com/packing-audit/internal/types"
)

// scanInput decodes a scan body and binds it to the calling operator
func (s *Server) scanInput(w http.ResponseWriter, r *http.Request) (service.ScanInput, bool) {
	var in service.ScanInput
	if !s.decodeBody(w, r, &in) {
		return in, false
	}
	in.OperatorID = principalFrom(r.Context()).UserID
	return in, true
}

// handleScanStart handles POST /api/packing-items/scan/start
func (s *Server) handleScanStart(w http.ResponseWriter, r *http.Request) {
	in, ok := s.scanInput(w, r)
	if !ok {
		return
	}
	item, err := s.packing.ScanStart(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, service.MsgScanStartSuccess, item)
}

// handleScanEnd handles POST /api/packing-items/scan/end
func (s *Server) handleScanEnd(w http.ResponseWriter, r *http.Request) {
	in, ok := s.scanInput(w, r)
	if !ok {
		return
	}
	item, err := s.packing.ScanEnd(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgScanEndSuccess, item)
}

// handleScan handles POST /api/packing-items/scan, toggling the open scan
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	in, ok := s.scanInput(w, r)
	if !ok {
		return
	}
	item, started, err := s.packing.Scan(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if started {
		respondSuccess(w, http.StatusCreated, service.MsgScanStartSuccess, item)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgScanEndSuccess, item)
}

// handleListPackingItems handles GET /api/packing-items
func (s *Server) handleListPackingItems(w http.ResponseWriter, r *http.Request) {
	page, err := service.ParsePageRequest(r.URL.Query(), storage.PackingSortColumns)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	q := r.URL.Query()
	filter := storage.PackingFilter{
		Status:        types.PackingStatus(q.Get("status")),
		WorkstationID: q.Get("workstation_id"),
		OperatorID:    q.Get("operator_id"),
	}

	result, err := s.packing.List(r.Context(), filter, page)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgPackingRetrieved, result)
}

// handleGetPackingItem handles GET /api/packing-items/{id}
func (s *Server) handleGetPackingItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.packing.GetByID(r.Context(), pathID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgPackingRetrieved, item)
}

// handleReprocess handles POST /api/packing-items/{id}/reprocess
func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	item, err := s.packing.Reprocess(r.Context(), pathID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgReprocessSuccess, item)
}

// handleProcessItem handles POST /api/packing-items/{id}/process
func (s *Server) handleProcessItem(w http.ResponseWriter, r *http.Request) {
	result, err := s.batch.ProcessItem(r.Context(), pathID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusAccepted, service.MsgProcessAccepted, result)
}
