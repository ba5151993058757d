package api

import (
	"net/http"

	"github.com/packing-audit/internal/service"
	"github.com/packing-audit/internal/storage"
)

// handleListCameras handles GET /api/cameras
func (s *Server) handleListCameras(w http.ResponseWriter, r *http.Request) {
	page, err := service.ParsePageRequest(r.URL.Query(), storage.CameraSortColumns)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	result, err := s.cameras.List(r.Context(), page)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgCamerasRetrieved, result)
}

// handleGetCamera handles GET /api/cameras/{id}
func (s *Server) handleGetCamera(w http.ResponseWriter, r *http.Request) {
	cam, err := s.cameras.GetByID(r.Context(), pathID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgCamerasRetrieved, cam)
}

// handleCreateCamera handles POST /api/cameras
func (s *Server) handleCreateCamera(w http.ResponseWriter, r *http.Request) {
	var in service.CameraInput
	if !s.decodeBody(w, r, &in) {
		return
	}
	cam, err := s.cameras.Create(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, service.MsgCameraCreated, cam)
}

// handleUpdateCamera handles PUT /api/cameras/{id}
func (s *Server) handleUpdateCamera(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateCameraInput
	if !s.decodeBody(w, r, &in) {
		return
	}
	cam, err := s.cameras.Update(r.Context(), pathID(r), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgCameraUpdated, cam)
}

// handleDeleteCamera handles DELETE /api/cameras/{id}
func (s *Server) handleDeleteCamera(w http.ResponseWriter, r *http.Request) {
	if err := s.cameras.Delete(r.Context(), pathID(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgCameraDeleted, nil)
}

// handleListWorkstations handles GET /api/workstations
func (s *Server) handleListWorkstations(w http.ResponseWriter, r *http.Request) {
	page, err := service.ParsePageRequest(r.URL.Query(), storage.WorkstationSortColumns)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	result, err := s.workstations.List(r.Context(), page)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgWorkstationsRetrieved, result)
}

// handleGetWorkstation handles GET /api/workstations/{id}
func (s *Server) handleGetWorkstation(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workstations.GetByID(r.Context(), pathID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgWorkstationsRetrieved, ws)
}

// handleCreateWorkstation handles POST /api/workstations
func (s *Server) handleCreateWorkstation(w http.ResponseWriter, r *http.Request) {
	var in service.WorkstationInput
	if !s.decodeBody(w, r, &in) {
		return
	}
	ws, err := s.workstations.Create(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, service.MsgWorkstationCreated, ws)
}

// handleUpdateWorkstation handles PUT /api/workstations/{id}
func (s *Server) handleUpdateWorkstation(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateWorkstationInput
	if !s.decodeBody(w, r, &in) {
		return
	}
	ws, err := s.workstations.Update(r.Context(), pathID(r), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgWorkstationUpdated, ws)
}

// handleDeleteWorkstation handles DELETE /api/workstations/{id}
func (s *Server) handleDeleteWorkstation(w http.ResponseWriter, r *http.Request) {
	if err := s.workstations.Delete(r.Context(), pathID(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgWorkstationDeleted, nil)
}
