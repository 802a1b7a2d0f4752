package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrNotFound     ErrorType = "NOT_FOUND"
	ErrConflict     ErrorType = "CONFLICT"
	ErrInvalidInput ErrorType = "INVALID_INPUT"
	ErrInternal     ErrorType = "INTERNAL"
	ErrUnauthorized ErrorType = "UNAUTHORIZED"
	ErrStorage      ErrorType = "STORAGE"
	ErrUnavailable  ErrorType = "UNAVAILABLE"
)

// ErrStorageUnavailable is returned when neither storage backend could be opened.
var ErrStorageUnavailable = New(ErrUnavailable, "no storage backend could be initialized", nil)

// AppError represents an application error
type AppError struct {
	Type      ErrorType
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:      errType,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

func hasType(err error, errType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	var nf *NotFoundError
	if stderrors.As(err, &nf) {
		return true
	}
	return hasType(err, ErrNotFound)
}

// IsConflict checks if the error reports a sync that is already running
func IsConflict(err error) bool {
	var inProgress *SyncInProgressError
	if stderrors.As(err, &inProgress) {
		return true
	}
	return hasType(err, ErrConflict)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return hasType(err, ErrInvalidInput)
}

// IsUnauthorized checks if the error is an unauthorized error
func IsUnauthorized(err error) bool {
	return hasType(err, ErrUnauthorized)
}

// IsUnavailable checks if a dependency could not be reached
func IsUnavailable(err error) bool {
	return hasType(err, ErrUnavailable)
}

// IsStorage checks if the error came from the storage layer
func IsStorage(err error) bool {
	var storageErr *StorageError
	if stderrors.As(err, &storageErr) {
		return true
	}
	return hasType(err, ErrStorage) || hasType(err, ErrUnavailable)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, err error) *AppError {
	return New(ErrNotFound, message, err)
}

// NewValidationError creates a new validation error
func NewValidationError(message string, err error) *AppError {
	return New(ErrInvalidInput, message, err)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, err error) *AppError {
	return New(ErrUnauthorized, message, err)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return New(ErrInternal, message, err)
}

// SyncInProgressError is returned when a run is requested while another one is running.
type SyncInProgressError struct {
	RunID string
}

func (e *SyncInProgressError) Error() string {
	return fmt.Sprintf("sync already in progress: %s", e.RunID)
}

// NewSyncInProgressError creates a new SyncInProgressError
func NewSyncInProgressError(runID string) error {
	return &SyncInProgressError{
		RunID: runID,
	}
}

// NotFoundError represents a not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewResourceNotFoundError creates a new NotFoundError for a specific resource
func NewResourceNotFoundError(resource, id string) error {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// StorageError wraps a backend failure together with the statement that caused it.
type StorageError struct {
	Op        string
	Statement string
	Cause     error
}

func (e *StorageError) Error() string {
	if e.Statement == "" {
		return fmt.Sprintf("storage %s failed: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("storage %s failed: %v [statement: %s]", e.Op, e.Cause, e.Statement)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError. Long statements are truncated.
func NewStorageError(op, statement string, cause error) *StorageError {
	const maxStatement = 512
	if len(statement) > maxStatement {
		statement = statement[:maxStatement] + "..."
	}
	return &StorageError{
		Op:        op,
		Statement: statement,
		Cause:     cause,
	}
}
