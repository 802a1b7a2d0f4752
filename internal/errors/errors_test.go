package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	cause := stderrors.New("boom")

	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not found app error", NewNotFoundError("missing", nil), IsNotFound},
		{"resource not found", NewResourceNotFoundError("sync run", "abc"), IsNotFound},
		{"sync in progress", NewSyncInProgressError("run-1"), IsConflict},
		{"validation", NewValidationError("bad", cause), IsInvalidInput},
		{"unauthorized", NewUnauthorizedError("denied", cause), IsUnauthorized},
		{"storage error", NewStorageError("exec", "SELECT 1", cause), IsStorage},
		{"storage unavailable", ErrStorageUnavailable, IsStorage},
		{"unavailable", ErrStorageUnavailable, IsUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(fmt.Errorf("failed to do work: %w", tt.err)), "wrapped")
		})
	}

	assert.False(t, IsNotFound(cause))
	assert.False(t, IsConflict(NewInternalError("oops", cause)))
}

func TestSyncInProgressError_CarriesRunID(t *testing.T) {
	err := fmt.Errorf("start: %w", NewSyncInProgressError("run-7"))

	var inProgress *SyncInProgressError
	if assert.True(t, stderrors.As(err, &inProgress)) {
		assert.Equal(t, "run-7", inProgress.RunID)
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := New(ErrUnavailable, "jira unreachable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "UNAVAILABLE: jira unreachable (caused by: connection refused)", err.Error())
}

func TestStorageError_TruncatesStatement(t *testing.T) {
	err := NewStorageError("exec", strings.Repeat("x", 600), stderrors.New("locked"))

	assert.Len(t, err.Statement, 512+len("..."))
	assert.Contains(t, err.Error(), "storage exec failed: locked")
}
