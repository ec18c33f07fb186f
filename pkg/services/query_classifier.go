// Package services contains business logic implementations.
package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/quarryhq/quarry/pkg/models"
)

// Rejection reasons, in pipeline order. The catalog is fixed: handlers and
// UI layers match on these strings.
const (
	reasonTooShort        = "Query is too short"
	reasonNotSelect       = "Only SELECT queries are allowed"
	reasonUnbalanced      = "Unbalanced parentheses in query"
	reasonMissingClauses  = "Query must include both SELECT and FROM clauses"
	reasonWhereAnd        = "Found 'WHERE AND' - remove the extra AND"
	reasonWhereOr         = "Found 'WHERE OR' - remove the extra OR"
	reasonDuplicateFrom   = "Duplicate FROM clause"
	reasonDuplicateSelect = "Duplicate SELECT clause"
	reasonDuplicateWhere  = "Duplicate WHERE clause"
	reasonTrailingFrom    = "FROM clause cannot be at the end without a table name"
	reasonAfterSemicolon  = "Extra characters after semicolon"
)

// lexicalRule pairs a pattern over the normalized (trimmed, lower-cased)
// query text with the rejection it produces. Rules are evaluated in order;
// the first match wins and halts the scan.
type lexicalRule struct {
	pattern *regexp.Regexp
	reason  string
}

// QueryClassifier performs heuristic validation of a single SELECT statement.
// It is a pure function of its input: no state is retained between calls and
// a classifier value is safe for concurrent use.
type QueryClassifier struct {
	structural  *regexp.Regexp
	commonRules []lexicalRule

	projection *regexp.Regexp
	tableName  *regexp.Regexp

	notNullPredicate    *regexp.Regexp
	nullPredicate       *regexp.Regexp
	inPredicate         *regexp.Regexp
	comparisonPredicate *regexp.Regexp
}

// NewQueryClassifier compiles the rule set. Pattern order encodes the
// precedence contract: common-error rules run before any extraction, and
// predicate patterns are tried NOT NULL, NULL, IN, comparison.
func NewQueryClassifier() *QueryClassifier {
	return &QueryClassifier{
		// Both keywords must be present with a projection between them.
		// Content after FROM is deliberately not required here: the
		// empty-after-FROM case falls through to the trailing-FROM rule,
		// which carries the more specific message.
		structural: regexp.MustCompile(`(?s)select\s+.+\s+from\b`),

		commonRules: []lexicalRule{
			{regexp.MustCompile(`\bwhere\s+and\b`), reasonWhereAnd},
			{regexp.MustCompile(`\bwhere\s+or\b`), reasonWhereOr},
			{regexp.MustCompile(`\bfrom\s+from\b`), reasonDuplicateFrom},
			{regexp.MustCompile(`\bselect\s+select\b`), reasonDuplicateSelect},
			{regexp.MustCompile(`\bwhere\s+where\b`), reasonDuplicateWhere},
			{regexp.MustCompile(`\bfrom\s*$`), reasonTrailingFrom},
		},

		projection: regexp.MustCompile(`(?is)select\s+(.*?)\s+from\b`),
		tableName:  regexp.MustCompile(`(?i)\bfrom\s+(\w+)`),

		// The NOT NULL form is matched as its own pattern and tested first,
		// so "x IS NOT NULL" can never be claimed by the plain NULL check.
		notNullPredicate:    regexp.MustCompile(`(?i)(\w+)\s+is\s+not\s+null\b`),
		nullPredicate:       regexp.MustCompile(`(?i)(\w+)\s+is\s+null\b`),
		inPredicate:         regexp.MustCompile(`(?i)(\w+)\s+in\s*\(([^)]*)\)`),
		comparisonPredicate: regexp.MustCompile(`(?i)(\w+)\s*(>=|<=|!=|=|>|<)\s*('[^']*'|\S+)`),
	}
}

// Classify runs the ordered validation pipeline over queryText and returns
// either a rejection with a catalogued reason or an acceptance enriched with
// the extracted projection, table, and dominant predicate. It never panics
// past its boundary: an internal fault is degraded to a rejection.
func (c *QueryClassifier) Classify(queryText string) (result models.ClassificationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = rejected(fmt.Sprintf("Error: %v", r))
		}
	}()

	// 1. Length check on the raw text.
	if len(queryText) < 5 {
		return rejected(reasonTooShort)
	}

	normalized := strings.ToLower(strings.TrimSpace(queryText))

	// 2. Statement-kind check: single statement kind by construction.
	if !strings.HasPrefix(normalized, "select") {
		return rejected(reasonNotSelect)
	}

	// 3. Parenthesis balance over the raw text.
	if strings.Count(queryText, "(") != strings.Count(queryText, ")") {
		return rejected(reasonUnbalanced)
	}

	// 4. Structural presence of SELECT ... FROM.
	if !c.structural.MatchString(normalized) {
		return rejected(reasonMissingClauses)
	}

	// 5. Common-error lexical scan; first match halts the pipeline.
	for _, rule := range c.commonRules {
		if rule.pattern.MatchString(normalized) {
			return rejected(rule.reason)
		}
	}
	if idx := strings.Index(queryText, ";"); idx >= 0 {
		if strings.TrimSpace(queryText[idx+1:]) != "" {
			return rejected(reasonAfterSemicolon)
		}
	}

	// 6. Extraction over the original text, preserving source casing.
	result = models.ClassificationResult{
		Valid:           true,
		SelectedColumns: c.extractColumns(queryText),
		Table:           c.extractTable(queryText),
	}

	// Drop the statement terminator and anything after it so it cannot
	// interfere with predicate matching.
	working := queryText
	if idx := strings.Index(working, ";"); idx >= 0 {
		working = working[:idx]
	}

	// 7. Predicate classification in fixed priority order.
	c.classifyPredicate(working, &result)

	// 8. Display message from the extracted fields.
	result.Message = c.synthesizeMessage(&result)
	return result
}

// extractColumns splits the projection between the first SELECT and FROM on
// commas. A lone wildcard collapses to the "all columns" sentinel.
func (c *QueryClassifier) extractColumns(query string) []string {
	m := c.projection.FindStringSubmatch(query)
	if m == nil {
		return nil
	}

	parts := strings.Split(m[1], ",")
	columns := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			columns = append(columns, p)
		}
	}

	if len(columns) == 1 && columns[0] == "*" {
		return []string{"all columns"}
	}
	return columns
}

// extractTable returns the first word token after the first FROM keyword,
// or the "unknown" sentinel when none is present.
func (c *QueryClassifier) extractTable(query string) string {
	m := c.tableName.FindStringSubmatch(query)
	if m == nil {
		return "unknown"
	}
	return m[1]
}

// classifyPredicate assigns the dominant recognized predicate. Order is a
// deliberate tie-break: the IN-list check runs before comparison so an
// equality inside or after an IN (...) list cannot shadow it.
func (c *QueryClassifier) classifyPredicate(text string, result *models.ClassificationResult) {
	if m := c.notNullPredicate.FindStringSubmatch(text); m != nil {
		result.Operation = models.OperationNotNullCheck
		result.Column = m[1]
		return
	}
	if m := c.nullPredicate.FindStringSubmatch(text); m != nil {
		result.Operation = models.OperationNullCheck
		result.Column = m[1]
		return
	}
	if m := c.inPredicate.FindStringSubmatch(text); m != nil {
		result.Operation = models.OperationInClause
		result.Column = m[1]
		result.Values = splitInValues(m[2])
		return
	}
	if m := c.comparisonPredicate.FindStringSubmatch(text); m != nil {
		result.Operation = models.OperationComparison
		result.Column = m[1]
		result.Operator = m[2]
		result.Value = stripQuotes(m[3])
		return
	}
	result.Operation = models.OperationNone
}

// splitInValues tokenizes an IN-list body. Values are comma or space
// delimited; single-quoted literals have their quotes stripped. Source
// order is retained.
func splitInValues(body string) []string {
	var values []string
	for _, part := range strings.Split(body, ",") {
		for _, token := range strings.Fields(part) {
			if token = stripQuotes(token); token != "" {
				values = append(values, token)
			}
		}
	}
	return values
}

func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}

// synthesizeMessage builds the human-readable description of the query's
// effect. Display only; callers must not parse it.
func (c *QueryClassifier) synthesizeMessage(r *models.ClassificationResult) string {
	cols := strings.Join(r.SelectedColumns, ", ")

	switch r.Operation {
	case models.OperationNullCheck:
		return fmt.Sprintf("Query selects %s from %s where %s is null", cols, r.Table, r.Column)
	case models.OperationNotNullCheck:
		return fmt.Sprintf("Query selects %s from %s where %s is not null", cols, r.Table, r.Column)
	case models.OperationInClause:
		return fmt.Sprintf("Query selects %s from %s where %s is one of (%s)",
			cols, r.Table, r.Column, strings.Join(r.Values, ", "))
	case models.OperationComparison:
		return fmt.Sprintf("Query selects %s from %s where %s %s %s",
			cols, r.Table, r.Column, r.Operator, r.Value)
	default:
		return fmt.Sprintf("Query selects %s from %s", cols, r.Table)
	}
}

func rejected(reason string) models.ClassificationResult {
	return models.ClassificationResult{Valid: false, Reason: reason}
}
