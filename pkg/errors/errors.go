package errors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrorCode represents a unique error code
type ErrorCode int

const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrInternal
	ErrIllegalTransition
	ErrSignatureGateOpen
	ErrStaleState
	ErrNotReadyForArchive
	ErrAlreadyResolved
	ErrTransientStore
	ErrTransientTransport
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`

	// BlockingTasks is set on signature-gate failures so the caller can
	// show which documents still need resolution.
	BlockingTasks []uuid.UUID `json:"blocking_tasks,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the failed operation
// after re-reading state or backing off.
func (e *AppError) Retryable() bool {
	switch e.Code {
	case ErrStaleState, ErrTransientStore, ErrTransientTransport:
		return true
	}
	return false
}

func NotFound(resource string, err error) *AppError {
	return &AppError{Code: ErrNotFound, Message: fmt.Sprintf("%s not found", resource), Err: err}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{Code: ErrBadRequest, Message: message, Err: err}
}

func Unauthorized(err error) *AppError {
	return &AppError{Code: ErrUnauthorized, Message: "unauthorized", Err: err}
}

func Internal(err error) *AppError {
	return &AppError{Code: ErrInternal, Message: "internal server error", Err: err}
}

// IllegalTransition signals that the target status is not a direct
// successor of the current one for this request type.
func IllegalTransition(current, target string) *AppError {
	return &AppError{
		Code:    ErrIllegalTransition,
		Message: fmt.Sprintf("illegal transition from %s to %s", current, target),
	}
}

// SignatureGateOpen signals that the solicitation cannot leave a
// signature-gated stage while the listed tasks remain unsigned.
func SignatureGateOpen(blocking []uuid.UUID) *AppError {
	return &AppError{
		Code:          ErrSignatureGateOpen,
		Message:       fmt.Sprintf("%d signing task(s) must be signed first", len(blocking)),
		BlockingTasks: blocking,
	}
}

// StaleState signals an optimistic-concurrency conflict: another actor
// committed a change first. Re-read and reapply.
func StaleState(resource string) *AppError {
	return &AppError{Code: ErrStaleState, Message: fmt.Sprintf("%s was modified concurrently", resource)}
}

func NotReadyForArchive(current string) *AppError {
	return &AppError{
		Code:    ErrNotReadyForArchive,
		Message: fmt.Sprintf("cannot archive from status %s", current),
	}
}

func AlreadyResolved(resource string) *AppError {
	return &AppError{Code: ErrAlreadyResolved, Message: fmt.Sprintf("%s is already resolved", resource)}
}

func TransientStore(err error) *AppError {
	return &AppError{Code: ErrTransientStore, Message: "store temporarily unavailable", Err: err}
}

func TransientTransport(err error) *AppError {
	return &AppError{Code: ErrTransientTransport, Message: "transport temporarily unavailable", Err: err}
}

// CodeOf extracts the ErrorCode from err, or ErrInternal when err is
// not an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
