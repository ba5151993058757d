package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/packing-audit/internal/errors"
	"github.com/packing-audit/internal/logging"
	"github.com/packing-audit/internal/service"
)

// Envelope is the body of every API response.
type Envelope struct {
	StatusCode int         `json:"statusCode"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Details    interface{} `json:"details,omitempty"`
	ReqID      string      `json:"reqId,omitempty"`
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if body != nil {
		_ = json.NewEncoder(w).Encode(body) // nolint:errcheck // client went away
	}
}

// respondSuccess wraps data in the envelope. A nil data omits the field.
func respondSuccess(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	respondJSON(w, statusCode, Envelope{StatusCode: statusCode, Message: message, Data: data})
}

// respondError renders err as an envelope. Validation details are always
// returned; the cause of server errors only outside production.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	catErr := apperrors.Categorize(err)
	body := Envelope{StatusCode: catErr.StatusCode, Message: catErr.Message}

	if catErr.StatusCode < http.StatusInternalServerError {
		if catErr.Category == apperrors.CategoryValidation {
			body.Details = catErr.Details
		}
		respondJSON(w, catErr.StatusCode, body)
		return
	}

	log := logging.FromContext(r.Context()).WithFields(map[string]interface{}{
		"code":     catErr.Code,
		"category": string(catErr.Category),
	})
	if catErr.Cause != nil {
		log = log.WithError(catErr.Cause)
	}
	log.Error(catErr.Message)

	if catErr.Category == apperrors.CategorySystem || catErr.Category == apperrors.CategoryDatabase {
		body.Message = service.MsgInternalServerError
	}
	if !s.config.Production {
		body.Error = catErr.Error()
		body.ReqID = requestIDFrom(r.Context())
	}
	respondJSON(w, catErr.StatusCode, body)
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// decodeBody parses the body into v or renders the invalid input error
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := parseJSONBody(r, v); err != nil {
		s.respondError(w, r, apperrors.NewValidationError(service.MsgInvalidInput, map[string]interface{}{
			"body": "must be a valid JSON object",
		}))
		return false
	}
	return true
}
