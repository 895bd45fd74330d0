package google

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/daybook/daybook/pkg/calendar"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestProviderError(t *testing.T) {
	t.Run("401 requires reauthentication", func(t *testing.T) {
		err := providerError(&googleapi.Error{Code: 401})
		assert.ErrorIs(t, err, calendar.ErrReauthRequired)
	})

	t.Run("429 is a retryable outage", func(t *testing.T) {
		err := providerError(&googleapi.Error{Code: 429})
		var unavailableErr *calendar.ProviderUnavailableError
		assert.ErrorAs(t, err, &unavailableErr)
	})

	t.Run("5xx is a retryable outage", func(t *testing.T) {
		err := providerError(&googleapi.Error{Code: 503})
		var unavailableErr *calendar.ProviderUnavailableError
		assert.ErrorAs(t, err, &unavailableErr)
	})

	t.Run("403 rate limit is a retryable outage", func(t *testing.T) {
		err := providerError(&googleapi.Error{
			Code:   403,
			Errors: []googleapi.ErrorItem{{Reason: "rateLimitExceeded"}},
		})
		var unavailableErr *calendar.ProviderUnavailableError
		assert.ErrorAs(t, err, &unavailableErr)
	})

	t.Run("403 without rate limit reason passes through", func(t *testing.T) {
		original := &googleapi.Error{Code: 403}
		err := providerError(original)
		assert.ErrorIs(t, err, original)
		assert.NotErrorIs(t, err, calendar.ErrReauthRequired)
	})

	t.Run("Timeout is a retryable outage", func(t *testing.T) {
		err := providerError(fmt.Errorf("list events: %w", context.DeadlineExceeded))
		var unavailableErr *calendar.ProviderUnavailableError
		assert.ErrorAs(t, err, &unavailableErr)
	})

	t.Run("Transport error is a retryable outage", func(t *testing.T) {
		err := providerError(&url.Error{Op: "Get", URL: "https://www.googleapis.com", Err: errors.New("connection refused")})
		var unavailableErr *calendar.ProviderUnavailableError
		assert.ErrorAs(t, err, &unavailableErr)
	})

	t.Run("Nil stays nil", func(t *testing.T) {
		assert.NoError(t, providerError(nil))
	})
}

func TestIsRedirectMismatch(t *testing.T) {
	assert.True(t, isRedirectMismatch(errors.New(`oauth2: "redirect_uri_mismatch"`)))
	assert.False(t, isRedirectMismatch(errors.New(`oauth2: "invalid_grant"`)))
	assert.False(t, isRedirectMismatch(nil))
}
