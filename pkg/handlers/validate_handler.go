package handlers

import (
	"net/http"
	"strconv"

	"github.com/quarryhq/quarry/pkg/services"
)

// maxQueryLength bounds the query parameter so the classifier never chews on
// unbounded input.
const maxQueryLength = 10000

// ValidateHandler serves the SQL validation endpoint. Classification
// outcomes, including rejections, are always 200 responses; only a missing
// or oversized query parameter is a client error.
type ValidateHandler struct {
	classifier services.QueryValidationService
	logger     Logger
	metrics    MetricsCollector
}

// NewValidateHandler creates a new validate handler.
func NewValidateHandler(classifier services.QueryValidationService, logger Logger, metrics MetricsCollector) *ValidateHandler {
	return &ValidateHandler{
		classifier: classifier,
		logger:     logger,
		metrics:    metrics,
	}
}

// ValidateSQL handles GET /validate-sql?query=...
func (h *ValidateHandler) ValidateSQL(w http.ResponseWriter, r *http.Request) {
	timer := h.metrics.StartTimer("sql_validation_duration_seconds")
	defer timer.Stop()

	query := r.URL.Query().Get("query")
	if query == "" {
		writeErrorMessage(w, http.StatusBadRequest, "Missing query parameter")
		return
	}
	if len(query) > maxQueryLength {
		writeErrorMessage(w, http.StatusBadRequest, "Query parameter too long")
		return
	}

	result := h.classifier.Classify(query)
	h.metrics.IncrementCounter("sql_validations_total", "valid", strconv.FormatBool(result.Valid))
	if !result.Valid {
		h.logger.Debug("Rejected query", "reason", result.Reason)
	}

	writeJSON(w, http.StatusOK, result)
}
