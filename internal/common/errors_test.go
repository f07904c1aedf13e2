package common

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsKindAndCause(t *testing.T) {
	err := Wrap(ErrWriteFailure, fs.ErrPermission, "保存快照失败")

	assert.True(t, errors.Is(err, ErrWriteFailure))
	assert.True(t, errors.Is(err, fs.ErrPermission))
	assert.False(t, errors.Is(err, ErrCorruptStore))
	assert.Contains(t, err.Error(), "write failure")
}

func TestConfigError(t *testing.T) {
	err := ConfigError("cap must be positive, got %d", 0)
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Contains(t, err.Error(), "got 0")
}
