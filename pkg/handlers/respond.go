package handlers

import (
	"encoding/json"
	"net/http"

	pkgerrors "github.com/quarryhq/quarry/pkg/errors"
)

// writeJSON renders v with the given status. Encoding failures at this point
// cannot be reported to the client anymore; they are swallowed after the
// header is committed.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a service error to its HTTP status and renders the
// {"error": ...} body the frontend expects.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFromCode(pkgerrors.GetCode(err)), map[string]string{
		"error": pkgerrors.GetMessage(err),
	})
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func statusFromCode(code string) int {
	switch code {
	case pkgerrors.CodeInvalidRequest:
		return http.StatusBadRequest
	case pkgerrors.CodeNotFound:
		return http.StatusNotFound
	case pkgerrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case pkgerrors.CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
