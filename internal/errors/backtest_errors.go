package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	// Malformed input bars or signals. Always fatal for a run.
	ErrorCategoryData ErrorCategory = "DATA"
	// A parameter point that cannot be evaluated. Absorbed by the optimizer.
	ErrorCategoryInvalidParameter ErrorCategory = "INVALID_PARAMETER"
	// A run that produced no trades. A warning, never a failure.
	ErrorCategoryDegenerate    ErrorCategory = "DEGENERATE"
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"

	// Retryable
	ErrorCategoryNetwork   ErrorCategory = "NETWORK"
	ErrorCategoryTimeout   ErrorCategory = "TIMEOUT"
	ErrorCategoryRateLimit ErrorCategory = "RATE_LIMIT"
)

// BacktestError represents a categorized error with context
type BacktestError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

// Error implements the error interface
func (e *BacktestError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
	if len(e.Context) > 0 {
		b.WriteString(" (")
		first := true
		for _, k := range sortedKeys(e.Context) {
			if !first {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
			first = false
		}
		b.WriteString(")")
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, ": %v", e.Underlying)
	}
	return b.String()
}

// Unwrap returns the underlying error for error unwrapping
func (e *BacktestError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns whether this error can be retried
func (e *BacktestError) IsRetryable() bool {
	return e.Retryable
}

// IsFatal returns whether this error should stop the run
func (e *BacktestError) IsFatal() bool {
	return e.Category == ErrorCategoryData || e.Category == ErrorCategoryConfiguration
}

// NewBacktestError creates a new categorized error
func NewBacktestError(category ErrorCategory, component, operation, message string) *BacktestError {
	return &BacktestError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: isRetryableCategory(category),
	}
}

// WrapError wraps an existing error with category context
func WrapError(err error, category ErrorCategory, component, operation string) *BacktestError {
	if err == nil {
		return nil
	}

	return &BacktestError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  isRetryableCategory(category),
	}
}

// WithContext adds context information to the error
func (e *BacktestError) WithContext(key string, value interface{}) *BacktestError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRetryable sets the retryable flag
func (e *BacktestError) WithRetryable(retryable bool) *BacktestError {
	e.Retryable = retryable
	return e
}

func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryNetwork, ErrorCategoryTimeout, ErrorCategoryRateLimit:
		return true
	default:
		return false
	}
}

// CategorizeError attempts to categorize a generic error, typically one
// returned by a network data source.
func CategorizeError(err error, component, operation string) *BacktestError {
	if err == nil {
		return nil
	}

	var btErr *BacktestError
	if stderrors.As(err, &btErr) {
		return btErr
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "context deadline exceeded") {
		return WrapError(err, ErrorCategoryTimeout, component, operation)
	}

	if strings.Contains(errMsg, "rate limit") || strings.Contains(errMsg, "too many requests") {
		return WrapError(err, ErrorCategoryRateLimit, component, operation)
	}

	if strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network") ||
		strings.Contains(errMsg, "dns") || strings.Contains(errMsg, "dial") {
		return WrapError(err, ErrorCategoryNetwork, component, operation)
	}

	return WrapError(err, ErrorCategoryData, component, operation)
}

// Common error constructors

func NewDataError(component, operation, message string) *BacktestError {
	return NewBacktestError(ErrorCategoryData, component, operation, message)
}

func NewInvalidParameterError(component, operation, message string) *BacktestError {
	return NewBacktestError(ErrorCategoryInvalidParameter, component, operation, message)
}

func NewDegenerateRunWarning(component, operation string) *BacktestError {
	return NewBacktestError(ErrorCategoryDegenerate, component, operation, "run produced no trades")
}

func NewConfigurationError(component, operation, message string) *BacktestError {
	return NewBacktestError(ErrorCategoryConfiguration, component, operation, message)
}

func NewNetworkError(component, operation string, err error) *BacktestError {
	return WrapError(err, ErrorCategoryNetwork, component, operation)
}

// HasCategory reports whether any error in err's chain is a BacktestError of the category.
func HasCategory(err error, category ErrorCategory) bool {
	var btErr *BacktestError
	for err != nil {
		if !stderrors.As(err, &btErr) {
			return false
		}
		if btErr.Category == category {
			return true
		}
		err = btErr.Underlying
	}
	return false
}

func IsDataError(err error) bool {
	return HasCategory(err, ErrorCategoryData)
}

func IsInvalidParameter(err error) bool {
	return HasCategory(err, ErrorCategoryInvalidParameter)
}

func IsDegenerate(err error) bool {
	return HasCategory(err, ErrorCategoryDegenerate)
}

func IsConfigurationError(err error) bool {
	return HasCategory(err, ErrorCategoryConfiguration)
}

// IsRetryable reports whether err is a retryable BacktestError.
func IsRetryable(err error) bool {
	var btErr *BacktestError
	if stderrors.As(err, &btErr) {
		return btErr.Retryable
	}
	return false
}

// ErrorStats tracks error statistics, keyed by category
type ErrorStats struct {
	TotalErrors      int
	ErrorsByCategory map[ErrorCategory]int
	RecentErrors     []*BacktestError
	MaxRecentErrors  int
}

// NewErrorStats creates a new error statistics tracker
func NewErrorStats(maxRecentErrors int) *ErrorStats {
	return &ErrorStats{
		ErrorsByCategory: make(map[ErrorCategory]int),
		RecentErrors:     make([]*BacktestError, 0, maxRecentErrors),
		MaxRecentErrors:  maxRecentErrors,
	}
}

// RecordError records an error in the statistics. Uncategorized errors are
// counted as DATA.
func (es *ErrorStats) RecordError(err error) {
	if err == nil {
		return
	}
	var btErr *BacktestError
	if !stderrors.As(err, &btErr) {
		btErr = WrapError(err, ErrorCategoryData, "unknown", "unknown")
	}

	es.TotalErrors++
	es.ErrorsByCategory[btErr.Category]++

	es.RecentErrors = append(es.RecentErrors, btErr)
	if len(es.RecentErrors) > es.MaxRecentErrors {
		es.RecentErrors = es.RecentErrors[1:]
	}
}

// GetErrorRate returns the share of errors in a specific category
func (es *ErrorStats) GetErrorRate(category ErrorCategory) float64 {
	if es.TotalErrors == 0 {
		return 0.0
	}
	return float64(es.ErrorsByCategory[category]) / float64(es.TotalErrors)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
