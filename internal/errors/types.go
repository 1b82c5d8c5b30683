// Package errors provides the structured error taxonomy used across the site:
// not-found, component resolution, upstream fetch, preview validation,
// validation and configuration failures.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeComponent  ErrorType = "component"
	ErrorTypeUpstream   ErrorType = "upstream"
	ErrorTypePreview    ErrorType = "preview"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// SiteError is a structured error type with context.
type SiteError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *SiteError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *SiteError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *SiteError) Is(target error) bool {
	var t *SiteError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *SiteError) WithContext(key string, value interface{}) *SiteError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// Common error codes.
const (
	ErrCodePathNotFound      = "ERR_PATH_NOT_FOUND"
	ErrCodePageNotFound      = "ERR_PAGE_NOT_FOUND"
	ErrCodeContentNotFound   = "ERR_CONTENT_NOT_FOUND"
	ErrCodeComponentNotFound = "ERR_COMPONENT_NOT_FOUND"
	ErrCodeTemplateNotFound  = "ERR_TEMPLATE_NOT_FOUND"
	ErrCodeUpstreamFailed    = "ERR_UPSTREAM_FAILED"
	ErrCodeUpstreamStatus    = "ERR_UPSTREAM_STATUS"
	ErrCodeInvalidPreviewKey = "ERR_INVALID_PREVIEW_KEY"
	ErrCodePreviewUnresolved = "ERR_PREVIEW_UNRESOLVED"
	ErrCodeValidationFailed  = "ERR_VALIDATION_FAILED"
	ErrCodeConfigInvalid     = "ERR_CONFIG_INVALID"
	ErrCodeInternalError     = "ERR_INTERNAL"
	ErrCodeUnsafeRedirect    = "ERR_UNSAFE_REDIRECT"
	ErrCodeMalformedPayload  = "ERR_MALFORMED_PAYLOAD"
)

// NewNotFoundError creates a not-found error.
func NewNotFoundError(code, message string) *SiteError {
	return &SiteError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewComponentError creates a component resolution error.
func NewComponentError(code, message string) *SiteError {
	return &SiteError{
		Type:    ErrorTypeComponent,
		Code:    code,
		Message: message,
	}
}

// NewUpstreamError creates an upstream fetch error.
func NewUpstreamError(code, message string, cause error) *SiteError {
	return &SiteError{
		Type:    ErrorTypeUpstream,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewPreviewError creates a preview validation error.
func NewPreviewError(code, message string, cause error) *SiteError {
	return &SiteError{
		Type:    ErrorTypePreview,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *SiteError {
	return &SiteError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *SiteError {
	return &SiteError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *SiteError {
	return &SiteError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func typeOf(err error) (ErrorType, bool) {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Type, true
	}
	return "", false
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeNotFound
}

// IsComponentResolution reports whether err is a component resolution failure.
func IsComponentResolution(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeComponent
}

// IsUpstream reports whether err is an upstream fetch failure.
func IsUpstream(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeUpstream
}

// IsPreview reports whether err is a preview validation failure.
func IsPreview(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypePreview
}

// HTTPStatus maps an error to the status code the site responds with.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	t, ok := typeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch t {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypePreview:
		return http.StatusUnauthorized
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Handler provides centralized error logging.
type Handler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewHandler creates a new error handler.
func NewHandler(logger Logger) *Handler {
	return &Handler{logger: logger}
}

// Handle logs an error at a level appropriate to its class.
func (h *Handler) Handle(ctx context.Context, err error, fields ...interface{}) {
	if err == nil || h.logger == nil {
		return
	}

	var se *SiteError
	if !errors.As(err, &se) {
		h.logger.Error(ctx, err, "Unhandled error occurred", fields...)
		return
	}

	fields = append(fields, "type", se.Type, "code", se.Code)
	switch se.Type {
	case ErrorTypeNotFound, ErrorTypeValidation, ErrorTypePreview:
		h.logger.Warn(ctx, err, "Request error", fields...)
	default:
		h.logger.Error(ctx, err, "Error occurred", fields...)
	}
}

// ValidationError interface for field-specific validation errors.
type ValidationError interface {
	error
	Field() string
	Value() interface{}
	Suggestions() []string
}

// FieldValidationError implements ValidationError for specific field errors.
type FieldValidationError struct {
	FieldName    string
	FieldValue   interface{}
	ErrorMessage string
	HelpText     []string
}

// Error implements the error interface.
func (fve *FieldValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", fve.FieldName, fve.ErrorMessage)
}

// Field returns the field name that failed validation.
func (fve *FieldValidationError) Field() string {
	return fve.FieldName
}

// Value returns the invalid value.
func (fve *FieldValidationError) Value() interface{} {
	return fve.FieldValue
}

// Suggestions returns helpful suggestions for fixing the error.
func (fve *FieldValidationError) Suggestions() []string {
	return fve.HelpText
}

// NewFieldValidationError creates a new field validation error.
func NewFieldValidationError(
	field string,
	value interface{},
	message string,
	suggestions ...string,
) *FieldValidationError {
	return &FieldValidationError{
		FieldName:    field,
		FieldValue:   value,
		ErrorMessage: message,
		HelpText:     suggestions,
	}
}

// ValidationErrorCollection represents a collection of validation errors.
type ValidationErrorCollection struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (vec *ValidationErrorCollection) Error() string {
	if len(vec.Errors) == 0 {
		return "no validation errors"
	}
	if len(vec.Errors) == 1 {
		return vec.Errors[0].Error()
	}

	messages := make([]string, 0, len(vec.Errors))
	for _, err := range vec.Errors {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(vec.Errors), strings.Join(messages, "; "))
}

// AddField adds a field validation error to the collection.
func (vec *ValidationErrorCollection) AddField(
	field string,
	value interface{},
	message string,
	suggestions ...string,
) {
	vec.Errors = append(vec.Errors, NewFieldValidationError(field, value, message, suggestions...))
}

// HasErrors returns true if there are any validation errors.
func (vec *ValidationErrorCollection) HasErrors() bool {
	return len(vec.Errors) > 0
}

// ToSiteError converts the validation collection to a SiteError.
func (vec *ValidationErrorCollection) ToSiteError() *SiteError {
	if !vec.HasErrors() {
		return nil
	}

	context := make(map[string]interface{})
	for _, err := range vec.Errors {
		context[err.Field()] = map[string]interface{}{
			"value":       err.Value(),
			"suggestions": err.Suggestions(),
		}
	}

	return &SiteError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeValidationFailed,
		Message: vec.Error(),
		Context: context,
	}
}

// Helper functions for common errors

// ErrPathNotFound creates a sitemap path miss.
func ErrPathNotFound(path string) *SiteError {
	return NewNotFoundError(ErrCodePathNotFound, "no sitemap node for path: "+path).
		WithContext("path", path)
}

// ErrPageNotFound creates a missing page error.
func ErrPageNotFound(pageID int) *SiteError {
	return NewNotFoundError(ErrCodePageNotFound, fmt.Sprintf("page %d not found", pageID)).
		WithContext("page_id", pageID)
}

// ErrContentNotFound creates a missing content item error.
func ErrContentNotFound(contentID int) *SiteError {
	return NewNotFoundError(ErrCodeContentNotFound, fmt.Sprintf("content item %d not found", contentID)).
		WithContext("content_id", contentID)
}

// ErrComponentNotFound creates a component resolution error.
func ErrComponentNotFound(name string) *SiteError {
	return NewComponentError(
		ErrCodeComponentNotFound,
		fmt.Sprintf("component for %s was not found in the module registry", name),
	).WithContext("module", name)
}

// ErrTemplateNotFound creates a component resolution error for a page
// template name with no registered template.
func ErrTemplateNotFound(name string) *SiteError {
	return NewComponentError(
		ErrCodeTemplateNotFound,
		"No template found for page template name: "+name,
	).WithContext("template", name)
}

// ErrInvalidPreviewKey creates a preview key validation error.
func ErrInvalidPreviewKey(cause error) *SiteError {
	return NewPreviewError(ErrCodeInvalidPreviewKey, "invalid preview key", cause)
}

// ErrUnsafeRedirect creates a redirect validation error.
func ErrUnsafeRedirect(target string) *SiteError {
	return NewValidationError(ErrCodeUnsafeRedirect, "unsafe redirect target: "+target)
}
