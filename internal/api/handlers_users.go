package api

import (
	"net/http"

	"github.com/packing-audit/internal/service"
	"github.com/packing-audit/internal/storage"
)

// handleGetCurrentUser handles GET /api/users/me
func (s *Server) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetByID(r.Context(), principalFrom(r.Context()).UserID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgCurrentUser, user)
}

// handleListUsers handles GET /api/users
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := service.ParsePageRequest(r.URL.Query(), storage.UserSortColumns)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	result, err := s.users.List(r.Context(), page)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgUsersRetrieved, result)
}

// handleGetUser handles GET /api/users/{id}
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetByID(r.Context(), pathID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgUserRetrieved, user)
}

// handleCreateUser handles POST /api/users
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in service.CreateUserInput
	if !s.decodeBody(w, r, &in) {
		return
	}
	user, err := s.users.Create(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, service.MsgUserCreated, user)
}

// handleUpdateUser handles PUT /api/users/{id}
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateUserInput
	if !s.decodeBody(w, r, &in) {
		return
	}
	user, err := s.users.Update(r.Context(), pathID(r), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgUserUpdated, user)
}

// handleDeleteUser handles DELETE /api/users/{id}
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Delete(r.Context(), pathID(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgUserDeleted, nil)
}

// handleListRoles handles GET /api/roles
func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.roles.List(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgRolesRetrieved, roles)
}

// handleGetRole handles GET /api/roles/{id}
func (s *Server) handleGetRole(w http.ResponseWriter, r *http.Request) {
	role, err := s.roles.GetByID(r.Context(), pathID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, service.MsgRolesRetrieved, role)
}
