package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := NewError(CodeFileNotFound, "file not found: a/b.png", ErrObjectNotFound)
	wrapped := fmt.Errorf("get: %w", err)

	assert.True(t, errors.Is(wrapped, ErrFileNotFound))
	assert.False(t, errors.Is(wrapped, ErrDeleteFailed))
	assert.True(t, errors.Is(wrapped, ErrObjectNotFound))
	assert.Equal(t, CodeFileNotFound, CodeOf(wrapped))
	assert.Equal(t, Code(0), CodeOf(errors.New("plain")))
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "invalid file", (&Error{Code: CodeInvalidFile}).Error())
	assert.Equal(t, "upload failed: boom", NewError(CodeUploadFailed, "upload failed", errors.New("boom")).Error())
}

func TestCode_IsValidation(t *testing.T) {
	assert.True(t, CodeFileTooLarge.IsValidation())
	assert.True(t, CodeInvalidExtension.IsValidation())
	assert.False(t, CodeFileNotFound.IsValidation())
	assert.False(t, CodeConnectionFailed.IsValidation())
}
