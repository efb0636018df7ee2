package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndError(t *testing.T) {
	err := New(KindSkill, "unknown skill")
	require.EqualError(t, err, "skill: unknown skill")
	assert.Equal(t, "unknown skill", Safe(err))
}

func TestWrapPreservesUnderlying(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(KindIO, "read failed", base)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "boom")
}

func TestWithUserMessageHidesInternals(t *testing.T) {
	base := errors.New("/etc/shadow: permission denied")
	err := Wrap(KindSecurity, "path check failed", base).WithUserMessage("access denied")
	assert.Equal(t, "access denied", Safe(err))
	assert.NotContains(t, Safe(err), "/etc/shadow")
}

func TestAsMatchesKindThroughWrapping(t *testing.T) {
	err := New(KindConfig, "bad toml")
	wrapped := fmtWrap(err)
	assert.True(t, As(wrapped, KindConfig))
	assert.False(t, As(wrapped, KindHTTP))
}

func fmtWrap(err error) error {
	return &wrapper{err}
}

type wrapper struct{ err error }

func (w *wrapper) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapper) Unwrap() error { return w.err }

func TestSafeOnPlainError(t *testing.T) {
	assert.Equal(t, "internal error", Safe(errors.New("raw")))
	assert.Equal(t, "", Safe(nil))
}
