package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/quarryhq/quarry/pkg/models"
	"github.com/quarryhq/quarry/pkg/services"
)

// QualityHandler serves the extended validation endpoint.
type QualityHandler struct {
	quality services.QualityService
	logger  Logger
	metrics MetricsCollector
}

// NewQualityHandler creates a new quality handler.
func NewQualityHandler(quality services.QualityService, logger Logger, metrics MetricsCollector) *QualityHandler {
	return &QualityHandler{
		quality: quality,
		logger:  logger,
		metrics: metrics,
	}
}

// ValidateExtended handles POST /validate-extended.
func (h *QualityHandler) ValidateExtended(w http.ResponseWriter, r *http.Request) {
	var req models.QualityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	checks, err := h.quality.Validate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]models.QualityCheck{"checks": checks})
}
