package service

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/packing-audit/internal/errors"
)

// validID reports whether id is a well formed UUID
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// fieldErrors collects per-field validation failures
type fieldErrors map[string]interface{}

func (f fieldErrors) require(field, value string) {
	if strings.TrimSpace(value) == "" {
		f[field] = "is required"
	}
}

func (f fieldErrors) id(field, value string) {
	if !validID(value) {
		f[field] = "must be a valid id"
	}
}

func (f fieldErrors) optionalID(field, value string) {
	if value != "" {
		f.id(field, value)
	}
}

func (f fieldErrors) email(field, value string) {
	if _, err := mail.ParseAddress(value); err != nil || !strings.Contains(value, "@") {
		f[field] = "must be a valid email"
	}
}

func (f fieldErrors) minLen(field, value string, n int) {
	if len(value) < n {
		f[field] = "is too short"
	}
}

// err returns a validation error when any field failed
func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperrors.NewValidationError(MsgInvalidInput, f)
}
