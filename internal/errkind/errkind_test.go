package errkind_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nyashahama/helpdesk-ai-gateway/internal/errkind"
)

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   errkind.Kind
	}{
		{http.StatusUnauthorized, errkind.Unauthorized},
		{http.StatusForbidden, errkind.Unauthorized},
		{http.StatusTooManyRequests, errkind.RateLimited},
		{http.StatusInternalServerError, errkind.ServerError},
		{http.StatusBadGateway, errkind.ServerError},
		{http.StatusServiceUnavailable, errkind.ServerError},
		{http.StatusGatewayTimeout, errkind.ServerError},
		{http.StatusBadRequest, errkind.BadRequest},
		{http.StatusNotFound, errkind.BadRequest},
		{http.StatusMovedPermanently, errkind.ServerError},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, errkind.KindForStatus(tt.status))
		})
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", errkind.NewMissingField("content"))

	assert.Equal(t, errkind.MissingField, errkind.KindOf(wrapped))
	assert.Equal(t, errkind.Cancelled, errkind.KindOf(context.Canceled))
	assert.Equal(t, errkind.NetworkError, errkind.KindOf(errors.New("dial tcp: refused")))
	assert.Equal(t, errkind.Kind(""), errkind.KindOf(nil))
}

func TestError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := errkind.NewNetwork(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "NetworkError")
	assert.Contains(t, err.Error(), "connection reset")

	status := errkind.FromStatus(429, "slow down")
	assert.Equal(t, "RateLimited status=429: slow down", status.Error())
}

func TestProviderFailure(t *testing.T) {
	assert.True(t, errkind.RateLimited.ProviderFailure())
	assert.True(t, errkind.NetworkError.ProviderFailure())
	assert.False(t, errkind.MissingField.ProviderFailure())
	assert.False(t, errkind.Cancelled.ProviderFailure())
	assert.False(t, errkind.InvalidConfig.ProviderFailure())
}
