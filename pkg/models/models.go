// Package models contains request and response types shared across the service.
package models

// ConnectionParams carries the PostgreSQL connection parameters supplied by
// the caller on every database-facing request. The password is optional and
// is never echoed back in responses or logs.
type ConnectionParams struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
}

// WithDefaults fills unset fields from defaults, so callers may omit the
// parameters the deployment configures centrally.
func (p ConnectionParams) WithDefaults(defaults ConnectionParams) ConnectionParams {
	if p.Host == "" {
		p.Host = defaults.Host
	}
	if p.Port == 0 {
		p.Port = defaults.Port
	}
	if p.Database == "" {
		p.Database = defaults.Database
	}
	if p.User == "" {
		p.User = defaults.User
	}
	if p.Password == "" {
		p.Password = defaults.Password
	}
	return p
}

// TableImportRequest asks for a snapshot of a single table.
type TableImportRequest struct {
	ConnectionParams
	Table string `json:"table"`
}

// DatasetSource records where a dataset snapshot came from.
type DatasetSource struct {
	Type           string `json:"type"`
	ConnectionName string `json:"connectionName"`
	TableName      string `json:"tableName"`
}

// Dataset is a point-in-time snapshot of a database table, shaped for the
// frontend dataset catalog. Content rows are keyed by column name; date and
// timestamp values are serialized as ISO-8601 strings.
type Dataset struct {
	ID           string                   `json:"id"`
	Name         string                   `json:"name"`
	Type         string                   `json:"type"`
	ColumnCount  int                      `json:"columnCount"`
	RowCount     int                      `json:"rowCount"`
	DateUploaded string                   `json:"dateUploaded"`
	Status       string                   `json:"status"`
	Size         string                   `json:"size"`
	LastUpdated  string                   `json:"lastUpdated"`
	Content      []map[string]interface{} `json:"content"`
	Headers      []string                 `json:"headers"`
	IsPublic     bool                     `json:"isPublic"`
	Source       DatasetSource            `json:"source"`
}

// Operation identifies the dominant filter predicate recognized in a query.
type Operation string

const (
	OperationNullCheck    Operation = "null_check"
	OperationNotNullCheck Operation = "not_null_check"
	OperationInClause     Operation = "in_clause"
	OperationComparison   Operation = "comparison"
	OperationNone         Operation = "none"
)

// ClassificationResult is the discriminated outcome of classifying a query
// string. Exactly one of the two arms is populated: a rejection carries only
// Reason; an acceptance carries the extracted projection, table, operation
// and the operation-specific fields.
type ClassificationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`

	SelectedColumns []string  `json:"selectedColumns,omitempty"`
	Table           string    `json:"table,omitempty"`
	Operation       Operation `json:"operation,omitempty"`
	Column          string    `json:"column,omitempty"`
	Values          []string  `json:"values,omitempty"`
	Operator        string    `json:"operator,omitempty"`
	Value           string    `json:"value,omitempty"`
	Message         string    `json:"message,omitempty"`
}

// CheckStatus is the outcome of a single data-quality check.
type CheckStatus string

const (
	StatusPass    CheckStatus = "Pass"
	StatusWarning CheckStatus = "Warning"
	StatusFail    CheckStatus = "Fail"
)

// QualityCheck is one entry in an extended validation report.
type QualityCheck struct {
	Check   string      `json:"check"`
	Status  CheckStatus `json:"status"`
	Details string      `json:"details"`
}

// QualityOptions selects which columns the per-column checks apply to.
// Empty option sets disable the corresponding check. NullRateThreshold is a
// fraction in [0,1]; zero means the default threshold.
type QualityOptions struct {
	UppercaseColumns  []string            `json:"uppercaseColumns,omitempty"`
	DateColumns       []string            `json:"dateColumns,omitempty"`
	EmailColumns      []string            `json:"emailColumns,omitempty"`
	Lookups           map[string][]string `json:"lookups,omitempty"`
	KeyColumns        []string            `json:"keyColumns,omitempty"`
	NumericColumns    []string            `json:"numericColumns,omitempty"`
	NullRateThreshold float64             `json:"nullRateThreshold,omitempty"`
}

// QualityRequest is the tabular payload for extended validation. Rows are
// keyed by header name, mirroring Dataset.Content.
type QualityRequest struct {
	Headers []string                 `json:"headers"`
	Rows    []map[string]interface{} `json:"rows"`
	Options QualityOptions           `json:"options"`
}
