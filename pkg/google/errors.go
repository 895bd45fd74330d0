package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/daybook/daybook/pkg/calendar"
	"google.golang.org/api/googleapi"
)

// providerError maps raw Google API failures to the error taxonomy:
// 401 means the credential was refused (revoked out of band or never valid),
// 429/5xx and network timeouts are retryable outages, everything else passes
// through wrapped.
func providerError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401:
			return fmt.Errorf("provider refused credentials: %w", calendar.ErrReauthRequired)
		case apiErr.Code == 429 || apiErr.Code >= 500:
			return &calendar.ProviderUnavailableError{Err: err}
		case apiErr.Code == 403 && isRateLimited(apiErr):
			return &calendar.ProviderUnavailableError{Err: err}
		}
		return fmt.Errorf("provider request failed: %w", err)
	}

	if isNetworkError(err) {
		return &calendar.ProviderUnavailableError{Err: err}
	}
	return err
}

func isRateLimited(apiErr *googleapi.Error) bool {
	for _, e := range apiErr.Errors {
		if e.Reason == "rateLimitExceeded" || e.Reason == "userRateLimitExceeded" {
			return true
		}
	}
	return false
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// isRedirectMismatch detects the provider rejection caused by an unregistered
// redirect URI during the code exchange.
func isRedirectMismatch(err error) bool {
	return err != nil && strings.Contains(err.Error(), "redirect_uri_mismatch")
}
