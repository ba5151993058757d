package api

import (
	"net/http"

	"github.com/packing-audit/internal/service"
	"github.com/packing-audit/internal/storage"
)

// handleListClips handles GET /api/clips
func (s *Server) handleListClips(w http.ResponseWriter, r *http.Request) {
	page, err := service.ParsePageRequest(r.URL.Query(), storage.ClipSortColumns)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	result, err := s.clips.List(r.Context(), page)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgClipsRetrieved, result)
}

// handleGetClip handles GET /api/clips/{id}
func (s *Server) handleGetClip(w http.ResponseWriter, r *http.Request) {
	clip, err := s.clips.GetByID(r.Context(), pathID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgClipsRetrieved, clip)
}

// handleClipURL handles GET /api/clips/{id}/url
func (s *Server) handleClipURL(w http.ResponseWriter, r *http.Request) {
	signed, err := s.clips.SignedURL(r.Context(), pathID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgClipURL, signed)
}
