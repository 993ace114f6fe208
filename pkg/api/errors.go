package api

import (
	"errors"
	"fmt"
	"net/http"
)

type (
	// ErrorCode is a stable machine-readable classification for failures
	// surfaced by manager operations
	ErrorCode string

	// Error is the typed failure returned by every user-facing operation.
	// Message carries human-readable detail; Code never changes for a given
	// failure kind
	Error struct {
		Code    ErrorCode `json:"error_code"`
		Message string    `json:"message"`
	}
)

const (
	CodeBadParameters            ErrorCode = "bad_parameters_error"
	CodeConflict                 ErrorCode = "conflict_error"
	CodeNotFound                 ErrorCode = "not_found_error"
	CodeDependentExists          ErrorCode = "dependent_exists_error"
	CodeInvalidBlueprint         ErrorCode = "invalid_blueprint_error"
	CodeExistingRunningExecution ErrorCode = "existing_running_execution_error"
	CodeNonexistentWorkflow      ErrorCode = "nonexistent_workflow_error"
	CodeIllegalAction            ErrorCode = "illegal_action_error"
	CodeUnsupportedContentType   ErrorCode = "unsupported_content_type_error"
	CodeInternal                 ErrorCode = "internal_server_error"
)

var httpStatuses = map[ErrorCode]int{
	CodeBadParameters:            http.StatusBadRequest,
	CodeConflict:                 http.StatusConflict,
	CodeNotFound:                 http.StatusNotFound,
	CodeDependentExists:          http.StatusBadRequest,
	CodeInvalidBlueprint:         http.StatusBadRequest,
	CodeExistingRunningExecution: http.StatusBadRequest,
	CodeNonexistentWorkflow:      http.StatusBadRequest,
	CodeIllegalAction:            http.StatusBadRequest,
	CodeUnsupportedContentType:   http.StatusUnsupportedMediaType,
	CodeInternal:                 http.StatusInternalServerError,
}

func (e *Error) Error() string {
	return e.Message
}

// NewError creates a typed error with the given code and formatted message
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func BadParameters(format string, args ...any) *Error {
	return NewError(CodeBadParameters, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return NewError(CodeConflict, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return NewError(CodeNotFound, format, args...)
}

func DependentExists(format string, args ...any) *Error {
	return NewError(CodeDependentExists, format, args...)
}

func InvalidBlueprint(format string, args ...any) *Error {
	return NewError(CodeInvalidBlueprint, format, args...)
}

func ExistingRunningExecution(format string, args ...any) *Error {
	return NewError(CodeExistingRunningExecution, format, args...)
}

func NonexistentWorkflow(format string, args ...any) *Error {
	return NewError(CodeNonexistentWorkflow, format, args...)
}

func IllegalAction(format string, args ...any) *Error {
	return NewError(CodeIllegalAction, format, args...)
}

func UnsupportedContentType(format string, args ...any) *Error {
	return NewError(CodeUnsupportedContentType, format, args...)
}

// CodeOf extracts the error code from an error chain. Errors without a
// typed code classify as internal
func CodeOf(err error) ErrorCode {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return CodeInternal
}

// IsCode reports whether the error chain carries the given code
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps an error to the status code its kind is surfaced with
func HTTPStatus(err error) int {
	if status, ok := httpStatuses[CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}
