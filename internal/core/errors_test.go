package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"bare", ErrNoData, "[NO_DATA] no data available"},
		{"wrapped", WrapError(ErrStorageFailed, errors.New("disk full")), "[STORAGE_FAILED] storage operation failed: disk full"},
		{"formatted", Errorf(ErrInvalidArgument, "leverage must be positive, got %d", 0), "[INVALID_ARGUMENT] invalid argument: leverage must be positive, got 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_MatchesByCode(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("fetching EUR_USD: %w", WrapError(ErrCollectorFailed, cause))

	assert.ErrorIs(t, err, ErrCollectorFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrCollectorNotFound)
	assert.NotErrorIs(t, ErrInvalidInput, ErrInvalidArgument)

	var coded *Error
	assert.ErrorAs(t, err, &coded)
	assert.Equal(t, "COLLECTOR_FAILED", coded.Code)
}

func TestWrapError_LeavesBaseUntouched(t *testing.T) {
	WrapError(ErrConfigInvalid, errors.New("bad yaml"))
	assert.Nil(t, ErrConfigInvalid.Cause)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "NO_DATA", CodeOf(fmt.Errorf("run: %w", ErrNoData)))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
}
