package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	cause := errors.New("dial tcp: refused")

	assert.Equal(t, "[not_found] table missing", New(ErrKindNotFound, "table missing").Error())
	assert.Equal(t, "[connection_failed] ping failed: dial tcp: refused",
		Wrap(ErrKindConnectionFailed, "ping failed", cause).Error())
	assert.Equal(t, "[invalid_input] bad direction \"up\"",
		Newf(ErrKindInvalidInput, "bad direction %q", "up").Error())
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		kind  ErrKind
		check func(error) bool
	}{
		{ErrKindNotFound, IsNotFound},
		{ErrKindConnectionFailed, IsConnectionFailed},
		{ErrKindTimeout, IsTimeout},
		{ErrKindQueryFailed, IsQueryFailed},
		{ErrKindInvalidInput, IsInvalidInput},
		{ErrKindPermissionDenied, IsPermissionDenied},
		{ErrKindConfiguration, IsConfiguration},
		{ErrKindDataIntegrity, IsDataIntegrity},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := New(tt.kind, "boom")
			assert.True(t, tt.check(err))

			// predicates see through fmt.Errorf wrapping
			wrapped := fmt.Errorf("outer: %w", err)
			assert.True(t, tt.check(wrapped))

			assert.False(t, tt.check(errors.New("plain")))
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := Wrap(ErrKindQueryFailed, "query failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrKindUnknown, KindOf(cause))
	assert.Equal(t, ErrKindQueryFailed, KindOf(err))
}
