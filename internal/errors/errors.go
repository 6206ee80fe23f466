package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
	Details map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of an inner AppError
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
			Details: appErr.Details,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// As finds the first AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := As(err)
	return ok
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether err carries the given code anywhere in its chain
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}

// Predefined error codes
const (
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodeValidationError   = "VALIDATION_ERROR"
	CodeParseError        = "PARSE_ERROR"
	CodeGenerationFailure = "GENERATION_FAILURE"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

// MissingColumns reports required spreadsheet headers that are absent
func MissingColumns(missing, required []string) *AppError {
	err := ValidationError(fmt.Sprintf("missing required columns: %s (required: %s)",
		strings.Join(missing, ", "), strings.Join(required, ", ")))
	err.Details = map[string]interface{}{
		"missing_columns":  missing,
		"required_columns": required,
	}
	return err
}

// ParseError reports input bytes that are not a readable spreadsheet
func ParseError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeParseError,
		Message: message,
		Cause:   cause,
	}
}

// GenerationFailure reports a failed call to the generation endpoint.
// statusCode is 0 when no HTTP response was received.
func GenerationFailure(statusCode int, body string, cause error) *AppError {
	message := "generation request failed"
	if statusCode != 0 {
		message = fmt.Sprintf("generation endpoint returned %d", statusCode)
	}
	return &AppError{
		Code:    CodeGenerationFailure,
		Message: message,
		Cause:   cause,
		Details: map[string]interface{}{
			"status_code": statusCode,
			"body":        body,
		},
	}
}

// ResponseStatus extracts the HTTP status and body recorded by GenerationFailure
func ResponseStatus(err error) (int, string, bool) {
	appErr, ok := As(err)
	if !ok || appErr.Code != CodeGenerationFailure {
		return 0, "", false
	}
	status, _ := appErr.Details["status_code"].(int)
	if status == 0 {
		return 0, "", false
	}
	body, _ := appErr.Details["body"].(string)
	return status, body, true
}

// MissingColumnNames returns the column names recorded by MissingColumns
func MissingColumnNames(err error) []string {
	appErr, ok := As(err)
	if !ok || appErr.Details == nil {
		return nil
	}
	missing, _ := appErr.Details["missing_columns"].([]string)
	return missing
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func Conflict(message string) *AppError {
	return New(CodeConflict, message)
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

// HTTPStatus maps an error code to the status the web shell responds with
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeValidationError, CodeParseError, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeGenerationFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
