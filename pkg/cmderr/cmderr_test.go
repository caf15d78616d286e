package cmderr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsKind(t *testing.T) {
	base := New(NotFound, "Arrow not found in inventory")
	wrapped := fmt.Errorf("modify inventory: %w", base)

	assert.True(t, IsKind(wrapped, NotFound))
	assert.False(t, IsKind(wrapped, InvalidState))
	assert.False(t, IsKind(errors.New("plain"), NotFound))
	assert.True(t, errors.Is(wrapped, &Error{Kind: NotFound}))
}

func TestUserMessage(t *testing.T) {
	cause := errors.New("status 500")
	err := Wrap(RemoteService, "ChatGPT API failed multiple times", cause)

	assert.Equal(t, "ChatGPT API failed multiple times", UserMessage(fmt.Errorf("x: %w", err)))
	assert.Equal(t, "ChatGPT API failed multiple times: status 500", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
}

func TestIsResolution(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{PermissionDenied, true},
		{NotFound, true},
		{InvalidState, true},
		{InsufficientQuantity, true},
		{AmbiguousMatch, true},
		{WriteVerification, false},
		{RemoteService, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, IsResolution(New(tt.kind, "x")))
		})
	}
	assert.False(t, IsResolution(errors.New("io")))
}
