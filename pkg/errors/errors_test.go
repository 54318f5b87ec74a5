package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := Transport(502, "upstream returned bad gateway", nil)
	assert.Equal(t, "transport error (code 502): upstream returned bad gateway", err.Error())

	cause := fmt.Errorf("dial tcp: timeout")
	wrapped := Transport(0, "request failed", cause)
	assert.Contains(t, wrapped.Error(), "dial tcp: timeout")
	assert.ErrorIs(t, wrapped, cause)
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrorTypeValidation, TypeOf(Validation("username is required")))
	assert.Equal(t, ErrorTypeUpstreamFormat, TypeOf(fmt.Errorf("fetch: %w", UpstreamFormat("missing items", nil))))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(fmt.Errorf("plain")))

	assert.True(t, IsType(Validation("x"), ErrorTypeValidation))
	assert.False(t, IsType(nil, ErrorTypeValidation))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeTransport))
	assert.True(t, IsRetryable(ErrorTypeRateLimit))
	assert.False(t, IsRetryable(ErrorTypeValidation))
	assert.False(t, IsRetryable(ErrorTypeUpstreamFormat))
	assert.False(t, IsRetryable(ErrorTypeCircuitOpen))
}

func TestIsRetryableStatusCode(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{0, true},
		{429, true},
		{500, true},
		{503, true},
		{507, true},
		{400, false},
		{403, false},
		{404, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableStatusCode(tt.code))
		})
	}
}
