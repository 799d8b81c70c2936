package usefulerror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsefulErrorBuilder(t *testing.T) {
	t.Run("wraps an original error", func(t *testing.T) {
		original := errors.New("original error")
		err := Useful().Wrap(original).WithCode(ErrCodeIOError).WithHumanError("Something broke")

		assert.Equal(t, "original error", err.Error())
		assert.Equal(t, "Something broke", err.HumanError())
		assert.Equal(t, ErrCodeIOError, err.Code())
		assert.True(t, errors.Is(err, original))
	})

	t.Run("formats code and message without an original", func(t *testing.T) {
		err := Useful().WithCode(ErrCodeNotFound).Msg("no such object")
		assert.Equal(t, "NotFound: no such object", err.Error())
	})

	t.Run("defaults", func(t *testing.T) {
		err := Useful()
		assert.Equal(t, "unknown error", err.Error())
		assert.Equal(t, "unknown", err.Code())
		assert.NotEmpty(t, err.HumanError())
		assert.NotEmpty(t, err.Help())
	})
}

func TestAsUsefulError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		_, ok := AsUsefulError(nil)
		assert.False(t, ok)
	})

	t.Run("plain error", func(t *testing.T) {
		_, ok := AsUsefulError(errors.New("plain"))
		assert.False(t, ok)
	})

	t.Run("direct useful error", func(t *testing.T) {
		ue, ok := AsUsefulError(PolicyDenied("no-read-up"))
		assert.True(t, ok)
		assert.Equal(t, ErrCodePermissionDenied, ue.Code())
	})

	t.Run("wrapped useful error", func(t *testing.T) {
		wrapped := fmt.Errorf("while opening: %w", PolicyDenied("no-write-down"))
		ue, ok := AsUsefulError(wrapped)
		assert.True(t, ok)
		assert.Equal(t, ErrCodePermissionDenied, ue.Code())
	})
}

func TestPolicyDenied(t *testing.T) {
	err := PolicyDenied("no-read-up")

	assert.True(t, IsPolicyDenied(err))
	assert.False(t, IsPolicyDenied(errors.New("other")))
	assert.False(t, IsPolicyDenied(nil))

	// The uniform denial never leaks the sub-reason to the human
	// message; the reason lives in the audit trail.
	assert.NotContains(t, err.HumanError(), "no-read-up")
}
