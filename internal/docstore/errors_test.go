package docstore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionError_ReportsObservedMode(t *testing.T) {
	err := &ConnectionError{Path: "app.db", Mode: "delete"}
	assert.Contains(t, err.Error(), `"delete"`)
	assert.Contains(t, err.Error(), "WAL")
}

func TestConnectionError_WrapsCause(t *testing.T) {
	cause := errors.New("disk gone")
	err := &ConnectionError{Path: "app.db", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsConnectionError(fmt.Errorf("open store: %w", err)))
}

func TestWriteError_NewDocument(t *testing.T) {
	err := &WriteError{Op: "upsert", Table: "docs", Err: errors.New("boom")}
	assert.Contains(t, err.Error(), "document new")
}

func TestWriteError_WrapsCause(t *testing.T) {
	cause := errors.New("constraint failed")
	err := &WriteError{Op: "delete", Table: "docs", ID: 9, Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "document 9")
	assert.True(t, IsWriteError(fmt.Errorf("batch: %w", err)))
}

func TestIsValidationError_Wrapped(t *testing.T) {
	err := fmt.Errorf("bad call: %w", validationf("empty field"))
	assert.True(t, IsValidationError(err))
	assert.False(t, IsWriteError(err))
	assert.False(t, IsConnectionError(err))
}
