package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	pkgerrors "github.com/quarryhq/quarry/pkg/errors"
	"github.com/quarryhq/quarry/pkg/models"
	"github.com/quarryhq/quarry/pkg/services"
)

// ConnectionHandler serves the connection test and table listing endpoints.
// Request parameters left unset fall back to the configured default
// connection.
type ConnectionHandler struct {
	connections services.ConnectionService
	defaults    models.ConnectionParams
	logger      Logger
	metrics     MetricsCollector
}

// NewConnectionHandler creates a new connection handler.
func NewConnectionHandler(connections services.ConnectionService, defaults models.ConnectionParams, logger Logger, metrics MetricsCollector) *ConnectionHandler {
	return &ConnectionHandler{
		connections: connections,
		defaults:    defaults,
		logger:      logger,
		metrics:     metrics,
	}
}

// Connect handles POST /connect.
func (h *ConnectionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var params models.ConnectionParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.connections.TestConnection(r.Context(), params.WithDefaults(h.defaults)); err != nil {
		writeErrorMessage(w, http.StatusInternalServerError,
			fmt.Sprintf("Connection error: %s", pkgerrors.GetMessage(err)))
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListTables handles GET /tables. Connection parameters arrive as query
// string values.
func (h *ConnectionHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	params, err := connectionParamsFromQuery(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	tables, err := h.connections.ListTables(r.Context(), params.WithDefaults(h.defaults))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"tables": tables})
}

func connectionParamsFromQuery(r *http.Request) (models.ConnectionParams, error) {
	q := r.URL.Query()
	params := models.ConnectionParams{
		Host:     q.Get("host"),
		Database: q.Get("database"),
		User:     q.Get("user"),
		Password: q.Get("password"),
	}

	if raw := q.Get("port"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return params, fmt.Errorf("invalid port: %s", raw)
		}
		params.Port = port
	}
	return params, nil
}
