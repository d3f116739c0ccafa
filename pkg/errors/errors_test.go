package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	assert.Equal(t, "config error: bad key", Config("bad key").Error())

	e := Wrap(ErrorTypeNetwork, stderrors.New("reset"), "GET %s", "https://x")
	assert.Equal(t, "network error: GET https://x: reset", e.Error())

	s := FromStatus(404, "https://x/y")
	assert.Equal(t, "not_found error (code 404): unexpected status 404 from https://x/y", s.Error())
}

func TestFromStatus(t *testing.T) {
	tests := map[int]ErrorType{
		429: ErrorTypeRateLimit,
		401: ErrorTypeAuth,
		403: ErrorTypeAuth,
		404: ErrorTypeNotFound,
		500: ErrorTypeServerError,
		503: ErrorTypeServerError,
		418: ErrorTypeUnknown,
	}
	for code, want := range tests {
		t.Run(fmt.Sprint(code), func(t *testing.T) {
			assert.Equal(t, want, FromStatus(code, "u").Type)
		})
	}
}

func TestTypeInspection(t *testing.T) {
	wrapped := fmt.Errorf("loading extras: %w", Config("missing subreddit"))

	assert.True(t, IsType(wrapped, ErrorTypeConfig))
	assert.False(t, IsType(wrapped, ErrorTypeNetwork))
	assert.Equal(t, ErrorTypeConfig, TypeOf(wrapped))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(stderrors.New("plain")))

	cause := stderrors.New("cause")
	assert.ErrorIs(t, Wrap(ErrorTypeParsing, cause, "decode"), cause)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeNetwork))
	assert.True(t, IsRetryable(ErrorTypeRateLimit))
	assert.True(t, IsRetryable(ErrorTypeServerError))
	assert.False(t, IsRetryable(ErrorTypeConfig))
	assert.False(t, IsRetryable(ErrorTypeNotFound))

	assert.True(t, IsRetryableStatusCode(0))
	assert.True(t, IsRetryableStatusCode(502))
	assert.False(t, IsRetryableStatusCode(404))
	assert.False(t, IsRetryableStatusCode(400))
}
