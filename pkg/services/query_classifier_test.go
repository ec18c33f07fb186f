package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarryhq/quarry/pkg/models"
)

func TestClassifyRejections(t *testing.T) {
	c := NewQueryClassifier()

	tests := []struct {
		name   string
		query  string
		reason string
	}{
		{
			name:   "too short",
			query:  "sel ",
			reason: "Query is too short",
		},
		{
			name:   "empty string",
			query:  "",
			reason: "Query is too short",
		},
		{
			name:   "non-select statement",
			query:  "DELETE FROM users",
			reason: "Only SELECT queries are allowed",
		},
		{
			name:   "insert statement",
			query:  "INSERT INTO users VALUES (1)",
			reason: "Only SELECT queries are allowed",
		},
		{
			name:   "leading whitespace still select",
			query:  "   update users set a = 1",
			reason: "Only SELECT queries are allowed",
		},
		{
			name:   "unbalanced parentheses",
			query:  "SELECT id FROM t WHERE id IN (1, 2",
			reason: "Unbalanced parentheses in query",
		},
		{
			name:   "missing from clause",
			query:  "select",
			reason: "Query must include both SELECT and FROM clauses",
		},
		{
			name:   "select with projection but no from",
			query:  "SELECT id, name",
			reason: "Query must include both SELECT and FROM clauses",
		},
		{
			name:   "empty projection",
			query:  "select from users",
			reason: "Query must include both SELECT and FROM clauses",
		},
		{
			name:   "where and",
			query:  "SELECT a FROM t WHERE AND b = 1",
			reason: "Found 'WHERE AND' - remove the extra AND",
		},
		{
			name:   "where or",
			query:  "SELECT a FROM t WHERE OR b = 1",
			reason: "Found 'WHERE OR' - remove the extra OR",
		},
		{
			name:   "duplicate from",
			query:  "SELECT a FROM FROM t",
			reason: "Duplicate FROM clause",
		},
		{
			name:   "duplicate select",
			query:  "SELECT SELECT a FROM t",
			reason: "Duplicate SELECT clause",
		},
		{
			name:   "duplicate where",
			query:  "SELECT a FROM t WHERE WHERE b = 1",
			reason: "Duplicate WHERE clause",
		},
		{
			name:   "from at the end without a table",
			query:  "SELECT x FROM",
			reason: "FROM clause cannot be at the end without a table name",
		},
		{
			name:   "from at the end with trailing spaces",
			query:  "SELECT x FROM   ",
			reason: "FROM clause cannot be at the end without a table name",
		},
		{
			name:   "statement after semicolon",
			query:  "SELECT a FROM t; DROP TABLE t",
			reason: "Extra characters after semicolon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Classify(tt.query)
			assert.False(t, result.Valid)
			assert.Equal(t, tt.reason, result.Reason)
			assert.Empty(t, result.SelectedColumns)
			assert.Empty(t, result.Table)
		})
	}
}

func TestClassifyComparison(t *testing.T) {
	c := NewQueryClassifier()

	result := c.Classify("SELECT name, age FROM users WHERE age > 18")
	require.True(t, result.Valid)
	assert.Equal(t, []string{"name", "age"}, result.SelectedColumns)
	assert.Equal(t, "users", result.Table)
	assert.Equal(t, models.OperationComparison, result.Operation)
	assert.Equal(t, "age", result.Column)
	assert.Equal(t, ">", result.Operator)
	assert.Equal(t, "18", result.Value)
	assert.Equal(t, "Query selects name, age from users where age > 18", result.Message)
}

func TestClassifyComparisonOperators(t *testing.T) {
	c := NewQueryClassifier()

	tests := []struct {
		query    string
		operator string
		value    string
	}{
		{"SELECT a FROM t WHERE b >= 10", ">=", "10"},
		{"SELECT a FROM t WHERE b <= 10", "<=", "10"},
		{"SELECT a FROM t WHERE b != 10", "!=", "10"},
		{"SELECT a FROM t WHERE b = 'x'", "=", "x"},
		{"SELECT a FROM t WHERE b < 10", "<", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.operator, func(t *testing.T) {
			result := c.Classify(tt.query)
			require.True(t, result.Valid)
			assert.Equal(t, models.OperationComparison, result.Operation)
			assert.Equal(t, "b", result.Column)
			assert.Equal(t, tt.operator, result.Operator)
			assert.Equal(t, tt.value, result.Value)
		})
	}
}

func TestClassifyNullCheck(t *testing.T) {
	c := NewQueryClassifier()

	result := c.Classify("SELECT * FROM orders WHERE status IS NULL")
	require.True(t, result.Valid)
	assert.Equal(t, []string{"all columns"}, result.SelectedColumns)
	assert.Equal(t, "orders", result.Table)
	assert.Equal(t, models.OperationNullCheck, result.Operation)
	assert.Equal(t, "status", result.Column)
}

func TestClassifyNotNullCheck(t *testing.T) {
	c := NewQueryClassifier()

	result := c.Classify("SELECT id FROM orders WHERE status IS NOT NULL")
	require.True(t, result.Valid)
	assert.Equal(t, models.OperationNotNullCheck, result.Operation)
	assert.Equal(t, "status", result.Column)
}

// A NOT NULL predicate must never be mistaken for a plain NULL check.
func TestClassifyNotNullDoesNotShadowNull(t *testing.T) {
	c := NewQueryClassifier()

	notNull := c.Classify("select a from t where b is not null")
	require.True(t, notNull.Valid)
	assert.Equal(t, models.OperationNotNullCheck, notNull.Operation)

	null := c.Classify("select a from t where b is null")
	require.True(t, null.Valid)
	assert.Equal(t, models.OperationNullCheck, null.Operation)
}

func TestClassifyInClause(t *testing.T) {
	c := NewQueryClassifier()

	result := c.Classify("SELECT id FROM t WHERE id IN ('a', 'b', c)")
	require.True(t, result.Valid)
	assert.Equal(t, models.OperationInClause, result.Operation)
	assert.Equal(t, "id", result.Column)
	assert.Equal(t, []string{"a", "b", "c"}, result.Values)
}

// The IN-list check has priority over comparison when both are present.
func TestClassifyInClauseBeatsComparison(t *testing.T) {
	c := NewQueryClassifier()

	result := c.Classify("select a from t where id in (1, 2) and id = 1")
	require.True(t, result.Valid)
	assert.Equal(t, models.OperationInClause, result.Operation)
	assert.Equal(t, "id", result.Column)
	assert.Equal(t, []string{"1", "2"}, result.Values)
	assert.Empty(t, result.Operator)
	assert.Empty(t, result.Value)
}

func TestClassifyNoPredicate(t *testing.T) {
	c := NewQueryClassifier()

	result := c.Classify("SELECT id, name FROM customers")
	require.True(t, result.Valid)
	assert.Equal(t, models.OperationNone, result.Operation)
	assert.Equal(t, []string{"id", "name"}, result.SelectedColumns)
	assert.Equal(t, "customers", result.Table)
	assert.Empty(t, result.Column)
	assert.Equal(t, "Query selects id, name from customers", result.Message)
}

func TestClassifyTrailingSemicolonIsAllowed(t *testing.T) {
	c := NewQueryClassifier()

	result := c.Classify("SELECT a FROM t WHERE b = 1;")
	require.True(t, result.Valid)
	assert.Equal(t, models.OperationComparison, result.Operation)
}

func TestClassifyCasePreservedInExtraction(t *testing.T) {
	c := NewQueryClassifier()

	result := c.Classify("SELECT FirstName, LastName FROM Employees WHERE Age > 30")
	require.True(t, result.Valid)
	assert.Equal(t, []string{"FirstName", "LastName"}, result.SelectedColumns)
	assert.Equal(t, "Employees", result.Table)
	assert.Equal(t, "Age", result.Column)
}

func TestClassifyMultilineQuery(t *testing.T) {
	c := NewQueryClassifier()

	result := c.Classify("SELECT id,\n  name\nFROM users\nWHERE id = 7")
	require.True(t, result.Valid)
	assert.Equal(t, []string{"id", "name"}, result.SelectedColumns)
	assert.Equal(t, "users", result.Table)
	assert.Equal(t, models.OperationComparison, result.Operation)
}

// Classification is a pure function: the same input always yields the same
// result, and repeated calls do not interfere.
func TestClassifyIdempotent(t *testing.T) {
	c := NewQueryClassifier()

	queries := []string{
		"SELECT name, age FROM users WHERE age > 18",
		"SELECT x FROM",
		"SELECT id FROM t WHERE id IN ('a', 'b', c)",
		"select",
	}

	for _, q := range queries {
		first := c.Classify(q)
		second := c.Classify(q)
		assert.Equal(t, first, second, "query %q", q)
	}
}

func TestClassifyConcurrentUse(t *testing.T) {
	c := NewQueryClassifier()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				result := c.Classify("SELECT a FROM t WHERE b = 1")
				if !result.Valid {
					t.Errorf("unexpected rejection: %s", result.Reason)
					return
				}
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
