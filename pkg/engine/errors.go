package engine

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of a failure for reporting and exit codes.
type ErrorClass string

const (
	// ErrorClassInvalidArgument indicates empty or missing user input.
	ErrorClassInvalidArgument ErrorClass = "invalid_argument"

	// ErrorClassNotFound indicates that no project file could be resolved.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassSessionStart indicates the engineering environment failed to initialize.
	ErrorClassSessionStart ErrorClass = "session_start"

	// ErrorClassEngineering indicates an environment-surfaced failure while opening a project.
	// Examples: project locked by another session, version mismatch.
	ErrorClassEngineering ErrorClass = "engineering"

	// ErrorClassOther indicates any other failure opening or reading a project.
	ErrorClassOther ErrorClass = "other"

	// ErrorClassNoController indicates the project holds no controller program.
	ErrorClassNoController ErrorClass = "no_controller"

	// ErrorClassUnhandled indicates a failure nobody classified.
	ErrorClassUnhandled ErrorClass = "unhandled"
)

// Sentinel errors reported by environment drivers.
var (
	// ErrCapabilityAbsent is returned by a node or block that does not support
	// the requested capability in its current shape.
	ErrCapabilityAbsent = errors.New("capability not supported by node")

	// ErrProjectLocked is returned when another session holds the project.
	ErrProjectLocked = errors.New("project is locked by another session")

	// ErrVersionMismatch is returned when the project was saved by an incompatible environment version.
	ErrVersionMismatch = errors.New("project version does not match the engineering environment")
)

// EngineError represents a classified error with context.
// nolint:revive // EngineError is intentionally named to distinguish from standard errors
type EngineError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Path is the project path involved, if applicable.
	Path string `json:"path,omitempty"`

	// Operation is the operation being performed when the error occurred.
	Operation string `json:"operation,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Path != "" && e.Operation != "" {
		msg = fmt.Sprintf("%s (path=%s, operation=%s)", msg, e.Path, e.Operation)
	} else if e.Path != "" {
		msg = fmt.Sprintf("%s (path=%s)", msg, e.Path)
	} else if e.Operation != "" {
		msg = fmt.Sprintf("%s (operation=%s)", msg, e.Operation)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

func newError(class ErrorClass, message string, err error) *EngineError {
	return &EngineError{
		Class:   class,
		Message: message,
		Err:     err,
	}
}

// NewInvalidArgumentError creates a new invalid argument error.
func NewInvalidArgumentError(message string, err error) *EngineError {
	return newError(ErrorClassInvalidArgument, message, err).WithCode(ErrCodeValidation)
}

// NewNotFoundError creates a new not-found error.
func NewNotFoundError(message string, err error) *EngineError {
	return newError(ErrorClassNotFound, message, err).WithCode(ErrCodeNotFound)
}

// NewSessionStartError creates a new session start error.
func NewSessionStartError(message string, err error) *EngineError {
	return newError(ErrorClassSessionStart, message, err)
}

// NewEngineeringError creates a new engineering error.
func NewEngineeringError(message string, err error) *EngineError {
	return newError(ErrorClassEngineering, message, err)
}

// NewOtherError creates a new error for unclassified project failures.
func NewOtherError(message string, err error) *EngineError {
	return newError(ErrorClassOther, message, err)
}

// NewNoControllerError creates a new error for projects without a controller program.
func NewNoControllerError(message string) *EngineError {
	return newError(ErrorClassNoController, message, nil).WithCode(ErrCodeNotFound)
}

// NewUnhandledError creates a new unhandled error.
func NewUnhandledError(message string, err error) *EngineError {
	return newError(ErrorClassUnhandled, message, err).WithCode(ErrCodeInternal)
}

// WithPath adds project path context to an error.
func (e *EngineError) WithPath(path string) *EngineError {
	e.Path = path
	return e
}

// WithOperation adds operation context to an error.
func (e *EngineError) WithOperation(operation string) *EngineError {
	e.Operation = operation
	return e
}

// WithCode adds an error code to an error.
func (e *EngineError) WithCode(code string) *EngineError {
	e.Code = code
	return e
}

// ClassOf returns the class of the first EngineError in the chain.
// Errors outside the taxonomy are unhandled; driver sentinels map to their class.
func ClassOf(err error) ErrorClass {
	if err == nil {
		return ""
	}
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class
	}
	if errors.Is(err, ErrProjectLocked) || errors.Is(err, ErrVersionMismatch) {
		return ErrorClassEngineering
	}
	return ErrorClassUnhandled
}

// IsInvalidArgument returns true if the error is classified as an invalid argument.
func IsInvalidArgument(err error) bool {
	return err != nil && ClassOf(err) == ErrorClassInvalidArgument
}

// IsNotFound returns true if the error is classified as not found.
func IsNotFound(err error) bool {
	return err != nil && ClassOf(err) == ErrorClassNotFound
}

// IsSessionStart returns true if the error is classified as a session start failure.
func IsSessionStart(err error) bool {
	return err != nil && ClassOf(err) == ErrorClassSessionStart
}

// IsEngineering returns true if the error is an environment-surfaced engineering failure.
func IsEngineering(err error) bool {
	return err != nil && ClassOf(err) == ErrorClassEngineering
}

// IsNoController returns true if the error reports a missing controller program.
func IsNoController(err error) bool {
	return err != nil && ClassOf(err) == ErrorClassNoController
}

// Process exit codes.
const (
	ExitSuccess           = 0
	ExitInvalidArguments  = 1
	ExitNoController      = 2
	ExitProjectOpenFailed = 3
	ExitUnhandled         = 99
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	switch ClassOf(err) {
	case ErrorClassInvalidArgument:
		return ExitInvalidArguments
	case ErrorClassNoController:
		return ExitNoController
	case ErrorClassNotFound, ErrorClassEngineering, ErrorClassOther:
		return ExitProjectOpenFailed
	default:
		return ExitUnhandled
	}
}

// Common error codes.
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeLocked     = "PROJECT_LOCKED"
	ErrCodeVersion    = "VERSION_MISMATCH"
	ErrCodeInternal   = "INTERNAL_ERROR"
)
