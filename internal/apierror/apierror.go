// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package so internal details
// (SQL errors, stack traces) never leak.
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
// Meta carries the offending quantities of domain errors (requested vs
// pending amount, deposit state, barcode).
type APIError struct {
	Code   string         `json:"code,omitempty"`
	Detail string         `json:"detail"`
	Meta   map[string]any `json:"meta,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// WithCode builds an envelope for a classified domain error.
func WithCode(code, msg string, meta map[string]any) *APIError {
	return &APIError{Code: code, Detail: msg, Meta: meta}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Code   string            `json:"code"`
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Code: "VALIDATION_ERROR", Detail: "validation failed", Fields: fields}
}
