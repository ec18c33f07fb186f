package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/quarryhq/quarry/pkg/errors"
	"github.com/quarryhq/quarry/pkg/models"
	"github.com/quarryhq/quarry/pkg/services"
)

// DatasetHandler serves table import and the public dataset registry.
type DatasetHandler struct {
	datasets services.DatasetService
	registry services.RegistryService
	defaults models.ConnectionParams
	logger   Logger
	metrics  MetricsCollector
}

// NewDatasetHandler creates a new dataset handler.
func NewDatasetHandler(datasets services.DatasetService, registry services.RegistryService, defaults models.ConnectionParams, logger Logger, metrics MetricsCollector) *DatasetHandler {
	return &DatasetHandler{
		datasets: datasets,
		registry: registry,
		defaults: defaults,
		logger:   logger,
		metrics:  metrics,
	}
}

// Import handles POST /import.
func (h *DatasetHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req models.TableImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Table == "" {
		writeErrorMessage(w, http.StatusBadRequest, "Missing table name")
		return
	}

	req.ConnectionParams = req.ConnectionParams.WithDefaults(h.defaults)
	dataset, err := h.datasets.ImportTable(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dataset)
}

// ListPublic handles GET /public-datasets.
func (h *DatasetHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.registry.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]models.Dataset{"datasets": datasets})
}

// UpsertPublic handles POST /public-datasets/{id}.
func (h *DatasetHandler) UpsertPublic(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeErrorMessage(w, http.StatusBadRequest, "Missing dataset id")
		return
	}

	var dataset models.Dataset
	if err := json.NewDecoder(r.Body).Decode(&dataset); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.registry.Upsert(r.Context(), id, dataset); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DeletePublic handles DELETE /public-datasets/{id}.
func (h *DatasetHandler) DeletePublic(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeErrorMessage(w, http.StatusBadRequest, "Missing dataset id")
		return
	}

	if err := h.registry.Delete(r.Context(), id); err != nil {
		if errors.Is(err, pkgerrors.ErrDatasetNotFound) {
			writeErrorMessage(w, http.StatusNotFound, "Dataset not found")
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
