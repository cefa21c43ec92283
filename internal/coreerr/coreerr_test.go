package coreerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesWrappedKind(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(IOError, "staging.Stage", "failed to move file", cause)

	assert.True(t, Is(err, IOError))
	assert.False(t, Is(err, NotFound))
	assert.ErrorIs(t, err, cause, "Unwrap must expose the original cause to errors.Is")
}

func TestKindOfOnPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("not a core error")))
}

func TestKindOfOnCoreError(t *testing.T) {
	err := New(Conflict, "staging.Approve", "already finalized")
	assert.Equal(t, Conflict, KindOf(err))
}

func TestErrorMessageIncludesOpAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(DependencyFailed, "scanner.RunScan", "probe unavailable", cause)
	assert.Contains(t, err.Error(), "scanner.RunScan")
	assert.Contains(t, err.Error(), "probe unavailable")
	assert.Contains(t, err.Error(), "boom")
}

func TestNewWithoutCauseOmitsTrailingColon(t *testing.T) {
	err := New(NotFound, "staging.Restore", "pending deletion not found")
	assert.Equal(t, "staging.Restore: pending deletion not found", err.Error())
}
