package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/quarryhq/quarry/pkg/models"
)

// defaultNullRateThreshold flags a column when more than half its values
// are missing and no explicit threshold was requested.
const defaultNullRateThreshold = 0.5

// iqrFence is the Tukey fence multiplier for outlier detection.
const iqrFence = 1.5

// minOutlierSample is the smallest sample the IQR check runs on; quartiles
// of fewer values are not meaningful.
const minOutlierSample = 4

var (
	emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

	dateLayouts = []string{"2006-01-02", time.RFC3339}
)

// qualityService runs the extended per-column data-quality checks. Each
// check is independent; the report is the concatenation of every requested
// check in a deterministic order.
type qualityService struct {
	logger  Logger
	metrics MetricsCollector
}

// NewQualityService creates a new quality service.
func NewQualityService(logger Logger, metrics MetricsCollector) QualityService {
	return &qualityService{
		logger:  logger,
		metrics: metrics,
	}
}

func (s *qualityService) Validate(ctx context.Context, req models.QualityRequest) ([]models.QualityCheck, error) {
	timer := s.metrics.StartTimer("quality_validation_duration_seconds")
	defer timer.Stop()

	opts := req.Options
	checks := []models.QualityCheck{}

	for _, col := range opts.UppercaseColumns {
		checks = append(checks, checkUppercase(req.Rows, col))
	}
	for _, col := range opts.DateColumns {
		checks = append(checks, checkDateFormat(req.Rows, col))
	}
	for _, col := range opts.EmailColumns {
		checks = append(checks, checkEmailFormat(req.Rows, col))
	}

	lookupCols := make([]string, 0, len(opts.Lookups))
	for col := range opts.Lookups {
		lookupCols = append(lookupCols, col)
	}
	sort.Strings(lookupCols)
	for _, col := range lookupCols {
		checks = append(checks, checkLookup(req.Rows, col, opts.Lookups[col]))
	}

	threshold := opts.NullRateThreshold
	if threshold <= 0 {
		threshold = defaultNullRateThreshold
	}
	for _, col := range req.Headers {
		checks = append(checks, checkNullRate(req.Rows, col, threshold))
	}

	if len(opts.KeyColumns) > 0 {
		checks = append(checks, checkDuplicateKeys(req.Rows, opts.KeyColumns))
	}
	for _, col := range opts.NumericColumns {
		checks = append(checks, checkOutliers(req.Rows, col))
	}

	failed := 0
	for _, c := range checks {
		if c.Status == models.StatusFail {
			failed++
		}
	}
	s.metrics.IncrementCounter("quality_validations_total")
	s.logger.Info("Extended validation finished",
		"rows", len(req.Rows), "checks", len(checks), "failed", failed)
	return checks, nil
}

// checkUppercase fails when any non-null string value is not fully uppercase.
func checkUppercase(rows []map[string]interface{}, col string) models.QualityCheck {
	check := models.QualityCheck{Check: fmt.Sprintf("Uppercase format (%s)", col)}

	total, bad := 0, 0
	for _, row := range rows {
		v := row[col]
		if isNull(v) {
			continue
		}
		total++
		if s, ok := stringValue(v); !ok || s != strings.ToUpper(s) {
			bad++
		}
	}

	if bad > 0 {
		check.Status = models.StatusFail
		check.Details = fmt.Sprintf("%d of %d values are not uppercase", bad, total)
	} else {
		check.Status = models.StatusPass
		check.Details = fmt.Sprintf("All %d values are uppercase", total)
	}
	return check
}

// checkDateFormat fails when a non-null value is not an ISO-8601 date or
// timestamp string.
func checkDateFormat(rows []map[string]interface{}, col string) models.QualityCheck {
	check := models.QualityCheck{Check: fmt.Sprintf("Date format (%s)", col)}

	total, bad := 0, 0
	for _, row := range rows {
		v := row[col]
		if isNull(v) {
			continue
		}
		total++
		if !isISODate(v) {
			bad++
		}
	}

	if bad > 0 {
		check.Status = models.StatusFail
		check.Details = fmt.Sprintf("%d of %d values are not ISO-8601 dates", bad, total)
	} else {
		check.Status = models.StatusPass
		check.Details = fmt.Sprintf("All %d values are ISO-8601 dates", total)
	}
	return check
}

// checkEmailFormat fails on malformed addresses and warns when well-formed
// addresses are not lowercase.
func checkEmailFormat(rows []map[string]interface{}, col string) models.QualityCheck {
	check := models.QualityCheck{Check: fmt.Sprintf("Email format (%s)", col)}

	total, malformed, uppercase := 0, 0, 0
	for _, row := range rows {
		v := row[col]
		if isNull(v) {
			continue
		}
		total++

		s, ok := stringValue(v)
		if !ok || !emailPattern.MatchString(strings.ToLower(s)) {
			malformed++
			continue
		}
		if s != strings.ToLower(s) {
			uppercase++
		}
	}

	switch {
	case malformed > 0:
		check.Status = models.StatusFail
		check.Details = fmt.Sprintf("%d of %d values are not valid email addresses", malformed, total)
	case uppercase > 0:
		check.Status = models.StatusWarning
		check.Details = fmt.Sprintf("%d of %d addresses are valid but not lowercase", uppercase, total)
	default:
		check.Status = models.StatusPass
		check.Details = fmt.Sprintf("All %d values are valid lowercase email addresses", total)
	}
	return check
}

// checkLookup fails when a non-null value is outside the allowed set.
func checkLookup(rows []map[string]interface{}, col string, allowed []string) models.QualityCheck {
	check := models.QualityCheck{Check: fmt.Sprintf("Lookup (%s)", col)}

	allowedSet := make(map[string]struct{}, len(allowed))
	for _, v := range allowed {
		allowedSet[v] = struct{}{}
	}

	total, bad := 0, 0
	for _, row := range rows {
		v := row[col]
		if isNull(v) {
			continue
		}
		total++
		if _, ok := allowedSet[displayValue(v)]; !ok {
			bad++
		}
	}

	if bad > 0 {
		check.Status = models.StatusFail
		check.Details = fmt.Sprintf("%d of %d values are outside the allowed set", bad, total)
	} else {
		check.Status = models.StatusPass
		check.Details = fmt.Sprintf("All %d values are in the allowed set", total)
	}
	return check
}

// checkNullRate warns when the null fraction of a column exceeds threshold.
// Missing keys count as null.
func checkNullRate(rows []map[string]interface{}, col string, threshold float64) models.QualityCheck {
	check := models.QualityCheck{Check: fmt.Sprintf("Null rate (%s)", col)}

	if len(rows) == 0 {
		check.Status = models.StatusPass
		check.Details = "No rows to check"
		return check
	}

	nulls := 0
	for _, row := range rows {
		if isNull(row[col]) {
			nulls++
		}
	}
	rate := float64(nulls) / float64(len(rows))

	if rate > threshold {
		check.Status = models.StatusWarning
		check.Details = fmt.Sprintf("Null rate %.1f%% exceeds threshold %.1f%%", rate*100, threshold*100)
	} else {
		check.Status = models.StatusPass
		check.Details = fmt.Sprintf("Null rate %.1f%% within threshold %.1f%%", rate*100, threshold*100)
	}
	return check
}

// checkDuplicateKeys fails when the composite key over keyCols is not unique.
func checkDuplicateKeys(rows []map[string]interface{}, keyCols []string) models.QualityCheck {
	check := models.QualityCheck{Check: fmt.Sprintf("Duplicate keys (%s)", strings.Join(keyCols, ", "))}

	seen := make(map[string]struct{}, len(rows))
	duplicates := 0
	for _, row := range rows {
		parts := make([]string, len(keyCols))
		for i, col := range keyCols {
			parts[i] = displayValue(row[col])
		}
		key := strings.Join(parts, "\x1f")
		if _, ok := seen[key]; ok {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
	}

	if duplicates > 0 {
		check.Status = models.StatusFail
		check.Details = fmt.Sprintf("%d duplicate key rows of %d", duplicates, len(rows))
	} else {
		check.Status = models.StatusPass
		check.Details = fmt.Sprintf("All %d keys are unique", len(rows))
	}
	return check
}

// checkOutliers warns when numeric values fall outside the Tukey fences
// Q1-1.5*IQR and Q3+1.5*IQR.
func checkOutliers(rows []map[string]interface{}, col string) models.QualityCheck {
	check := models.QualityCheck{Check: fmt.Sprintf("Outliers (%s)", col)}

	var values []float64
	for _, row := range rows {
		v := row[col]
		if isNull(v) {
			continue
		}
		if f, ok := toFloat(v); ok {
			values = append(values, f)
		}
	}

	if len(values) < minOutlierSample {
		check.Status = models.StatusPass
		check.Details = fmt.Sprintf("Only %d numeric values, outlier detection skipped", len(values))
		return check
	}

	sort.Float64s(values)
	q1 := quantile(values, 0.25)
	q3 := quantile(values, 0.75)
	iqr := q3 - q1
	lower := q1 - iqrFence*iqr
	upper := q3 + iqrFence*iqr

	outliers := 0
	for _, v := range values {
		if v < lower || v > upper {
			outliers++
		}
	}

	if outliers > 0 {
		check.Status = models.StatusWarning
		check.Details = fmt.Sprintf("%d of %d values outside [%.2f, %.2f]", outliers, len(values), lower, upper)
	} else {
		check.Status = models.StatusPass
		check.Details = fmt.Sprintf("No outliers in %d values", len(values))
	}
	return check
}

// quantile returns the q-th quantile of sorted values using linear
// interpolation between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// isNull treats nil and blank strings as missing.
func isNull(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func stringValue(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// displayValue renders any cell value as a comparison string.
func displayValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// isISODate accepts date-only and full timestamp forms.
func isISODate(v interface{}) bool {
	s, ok := stringValue(v)
	if !ok {
		return false
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// toFloat coerces the numeric forms that appear in decoded JSON and driver
// rows.
func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
