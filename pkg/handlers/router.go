package handlers

import (
	"net/http"
)

// Handlers bundles the API surface for routing.
type Handlers struct {
	Health     *HealthHandler
	Validate   *ValidateHandler
	Connection *ConnectionHandler
	Dataset    *DatasetHandler
	Quality    *QualityHandler
}

// NewRouter registers every route on a fresh mux. Method and path-parameter
// matching use the standard library pattern syntax.
func NewRouter(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health.Health)
	mux.HandleFunc("GET /validate-sql", h.Validate.ValidateSQL)
	mux.HandleFunc("POST /connect", h.Connection.Connect)
	mux.HandleFunc("GET /tables", h.Connection.ListTables)
	mux.HandleFunc("POST /import", h.Dataset.Import)
	mux.HandleFunc("GET /public-datasets", h.Dataset.ListPublic)
	mux.HandleFunc("POST /public-datasets/{id}", h.Dataset.UpsertPublic)
	mux.HandleFunc("DELETE /public-datasets/{id}", h.Dataset.DeletePublic)
	mux.HandleFunc("POST /validate-extended", h.Quality.ValidateExtended)

	return mux
}
