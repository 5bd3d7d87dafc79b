package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCode(t *testing.T) {
	err := New(CodeCancelled, "")
	assert.True(t, stdErrors.Is(err, ErrQueryCancelled))
	assert.False(t, stdErrors.Is(err, ErrMissingAPIKey))
	assert.Equal(t, "query cancelled by user", err.Message())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := Wrap(CodeStorageFailure, cause, "读取设置失败", WithMetadata("key", "ai.openai_api_key"))

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeStorageFailure, CodeOf(err))
	assert.Equal(t, "ai.openai_api_key", err.Metadata()["key"])
	assert.Contains(t, err.Error(), "dial tcp: refused")
}

func TestHelpersOnForeignErrors(t *testing.T) {
	plain := stdErrors.New("boom")
	assert.Equal(t, CodeUnknown, CodeOf(plain))
	assert.False(t, IsCancelled(plain))
	assert.Equal(t, SeverityCritical, SeverityOf(plain))

	wrapped := fmt.Errorf("resolve: %w", ErrMissingAPIKey)
	assert.True(t, IsConfiguration(wrapped))
	assert.True(t, ErrMissingAPIKey.Fatal())
	assert.False(t, ErrQueryCancelled.Fatal())
}

func TestRegisterCustomCode(t *testing.T) {
	const code Code = "TEST_ONLY"
	Register(code, Attributes{Message: "custom", Severity: SeverityWarning})
	err := New(code, "")
	assert.Equal(t, "custom", err.Message())
	assert.Equal(t, SeverityWarning, err.Severity())
	assert.Equal(t, SeverityInfo, New(code, "", WithSeverity(SeverityInfo)).Severity())
}
