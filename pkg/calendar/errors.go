package calendar

import (
	"errors"
	"fmt"
)

// ErrReauthRequired signals that no usable credential exists and the user has
// to go through the interactive authentication flow again. The HTTP boundary
// translates it to 401 with a needsReauth flag.
var ErrReauthRequired = errors.New("re-authentication with the calendar provider is required")

// ErrEventNotFound is returned for operations on a local event id that does
// not exist for the current user.
var ErrEventNotFound = errors.New("calendar event not found")

// ConfigurationError reports that required credential settings for the active
// authentication strategy are missing or malformed. It is recoverable by the
// administrator; no retry helps.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("calendar provider configuration invalid: %s (%s)", e.Setting, e.Reason)
	}
	return fmt.Sprintf("calendar provider configuration incomplete: missing %s", e.Setting)
}

// ValidationError reports malformed local input, rejected before any call to
// the provider is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s %s", e.Field, e.Reason)
}

// ProviderUnavailableError wraps a network failure, timeout, or 5xx from the
// provider. The operation is retryable by the caller; the core never retries
// in-process.
type ProviderUnavailableError struct {
	Err error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("calendar provider unavailable: %v", e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error {
	return e.Err
}

// RedirectMismatchError reports a provider-side rejection caused by a
// redirect URI that does not match the registered one. It requires a
// configuration change outside this system and is reported verbatim.
type RedirectMismatchError struct {
	ProviderError string
}

func (e *RedirectMismatchError) Error() string {
	return fmt.Sprintf("redirect URI rejected by provider: %s", e.ProviderError)
}
