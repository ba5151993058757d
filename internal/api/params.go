package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	apperrors "github.com/packing-audit/internal/errors"
)

// pathID returns the {id} route variable
func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

// dateLayouts are the accepted query date formats
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// parseDateParam parses an optional date query parameter. A date-only end
// bound covers the whole day.
func parseDateParam(r *http.Request, name string, endOfDay bool) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if endOfDay && layout == "2006-01-02" {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	return nil, apperrors.NewInvalidParameterError(name, "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
}
