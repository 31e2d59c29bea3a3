package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/tripdesk/agency-api/internal/domain"
)

// writeProblem writes an RFC 7807 problem response
func writeProblem(w http.ResponseWriter, status int, errType, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   errType,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}
