package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeFetch represents page navigation and browser errors
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeExtraction represents LLM provider call errors
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeParsing represents response parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypePagination represents pagination detection errors
	ErrorTypePagination ErrorType = "pagination"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypePersistence represents database errors
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ScraperError represents a pipeline-specific error with its origin
type ScraperError struct {
	Type    ErrorType
	Source  string // URL, provider or component the error belongs to
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ScraperError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *ScraperError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is worth a manual retry.
// Nothing in the pipeline retries automatically; the flag only informs
// the operator-facing report.
func (e *ScraperError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeFetch:
		return true
	case ErrorTypeExtraction:
		return true
	default:
		return false
	}
}

// New creates a new ScraperError
func New(errType ErrorType, source, message string, err error) *ScraperError {
	return &ScraperError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewFetch creates a new fetch error
func NewFetch(source, message string, err error) *ScraperError {
	return New(ErrorTypeFetch, source, message, err)
}

// NewExtraction creates a new extraction error
func NewExtraction(source, message string, err error) *ScraperError {
	return New(ErrorTypeExtraction, source, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(source, message string, err error) *ScraperError {
	return New(ErrorTypeParsing, source, message, err)
}

// NewPagination creates a new pagination error
func NewPagination(source, message string, err error) *ScraperError {
	return New(ErrorTypePagination, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, duration time.Duration) *ScraperError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewPersistence creates a new persistence error
func NewPersistence(source, message string, err error) *ScraperError {
	return New(ErrorTypePersistence, source, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(source, message string, err error) *ScraperError {
	return New(ErrorTypePublisher, source, message, err)
}

// NewValidation creates a new validation error
func NewValidation(source, message string) *ScraperError {
	return New(ErrorTypeValidation, source, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScraperError {
	return New(ErrorTypeConfiguration, "", message, err)
}
