package tryon

import (
	"errors"
	"fmt"
)

// Error codes for everything the try-on pipeline can fail with. The
// HTTP layer maps these to status codes; the core never touches HTTP
// statuses itself.
const (
	CodeModelInit       = "MODEL_INITIALIZATION_FAILED"
	CodeInvalidImage    = "INVALID_IMAGE"
	CodeNoFaceDetected  = "NO_FACE_DETECTED"
	CodeCompositing     = "COMPOSITING_FAILED"
	CodeTimeout         = "STAGE_TIMEOUT"
	CodeStorage         = "STORAGE_FAILED"
	CodeProductNotFound = "PRODUCT_NOT_FOUND"
	CodeNotAvailable    = "TRY_ON_NOT_AVAILABLE"
	CodeMissingInput    = "MISSING_INPUT"
	CodeSessionNotFound = "SESSION_NOT_FOUND"
	CodeForbidden       = "FORBIDDEN"
	CodeProcessing      = "TRY_ON_PROCESSING_FAILED"
)

// Error is the pipeline error type. Code identifies the failure kind,
// Message is safe to show to a client, Err carries the root cause.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a pipeline error
func NewError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// CodeOf extracts the pipeline error code, or CodeProcessing for
// anything that is not a pipeline error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeProcessing
}

// MessageOf extracts the client-safe message of a pipeline error
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "virtual try-on processing failed"
}

// stageError keeps the root cause's code but prefixes the stage name so
// the log line says where the pipeline stopped.
func stageError(stage string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return &Error{Code: e.Code, Message: fmt.Sprintf("%s: %s", stage, e.Message), Err: err}
	}
	return &Error{Code: CodeProcessing, Message: fmt.Sprintf("%s failed", stage), Err: err}
}
