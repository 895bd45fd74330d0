package google

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/daybook/daybook/pkg/calendar"
	"github.com/daybook/daybook/pkg/settings"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

// callbackPath is appended to the configured host to form the OAuth redirect
// URI. The redirect is fixed at deploy time and must exactly match the URI
// registered with Google; it is deliberately not a settings key.
const callbackPath = "/api/integrations/google/auth/callback"

type AuthType string

const (
	AuthTypeOAuth2         AuthType = "oauth2"
	AuthTypeServiceAccount AuthType = "service_account"
	AuthTypeApiKey         AuthType = "api_key"
)

// CredentialStore reads the google_* settings keys and parses them into typed
// per-strategy configurations. Each accessor validates its own strategy's
// fields once; stale fields of inactive strategies are ignored.
type CredentialStore struct {
	store settings.Store
	host  string
}

func NewCredentialStore(store settings.Store, host string) *CredentialStore {
	return &CredentialStore{store: store, host: host}
}

// ActiveAuthType resolves the configured strategy, defaulting to OAuth2 when
// unset.
func (c *CredentialStore) ActiveAuthType(ctx context.Context) (AuthType, error) {
	value, err := c.store.Get(ctx, settings.GoogleAuthType)
	if err != nil {
		return "", err
	}
	switch AuthType(value) {
	case "":
		return AuthTypeOAuth2, nil
	case AuthTypeOAuth2, AuthTypeServiceAccount, AuthTypeApiKey:
		return AuthType(value), nil
	default:
		return "", &calendar.ConfigurationError{Setting: settings.GoogleAuthType, Reason: fmt.Sprintf("unknown auth type %q", value)}
	}
}

// OAuth2Config builds the oauth2 client configuration for the interactive
// per-user flow.
func (c *CredentialStore) OAuth2Config(ctx context.Context) (*oauth2.Config, error) {
	clientId, err := c.store.Get(ctx, settings.GoogleClientId)
	if err != nil {
		return nil, err
	}
	if clientId == "" {
		return nil, &calendar.ConfigurationError{Setting: settings.GoogleClientId}
	}
	clientSecret, err := c.store.Get(ctx, settings.GoogleClientSecret)
	if err != nil {
		return nil, err
	}
	if clientSecret == "" {
		return nil, &calendar.ConfigurationError{Setting: settings.GoogleClientSecret}
	}

	return &oauth2.Config{
		ClientID:     clientId,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  c.host + callbackPath,
		Scopes:       []string{gcal.CalendarEventsScope, gcal.CalendarReadonlyScope},
	}, nil
}

// ServiceAccountConfig is the shared, non-interactive strategy. CalendarId is
// the calendar shared with the service identity out of band; when no mapping
// is configured the provider's "primary" calendar is targeted.
type ServiceAccountConfig struct {
	Key        []byte
	CalendarId string
}

func (c *CredentialStore) ServiceAccountConfig(ctx context.Context) (ServiceAccountConfig, error) {
	key, err := c.store.Get(ctx, settings.GoogleServiceAccountKey)
	if err != nil {
		return ServiceAccountConfig{}, err
	}
	if key == "" {
		return ServiceAccountConfig{}, &calendar.ConfigurationError{Setting: settings.GoogleServiceAccountKey}
	}
	if !json.Valid([]byte(key)) {
		return ServiceAccountConfig{}, &calendar.ConfigurationError{Setting: settings.GoogleServiceAccountKey, Reason: "not valid JSON"}
	}

	calendarId, err := c.store.Get(ctx, settings.GoogleCalendarEmail)
	if err != nil {
		return ServiceAccountConfig{}, err
	}
	if calendarId == "" {
		calendarId = "primary"
	}
	return ServiceAccountConfig{Key: []byte(key), CalendarId: calendarId}, nil
}

// ApiKeyConfig is the fixed-key strategy. The provider restricts what an API
// key may write; see the strategy notes.
type ApiKeyConfig struct {
	Key        string
	CalendarId string
}

func (c *CredentialStore) ApiKeyConfig(ctx context.Context) (ApiKeyConfig, error) {
	key, err := c.store.Get(ctx, settings.GoogleCalendarApiKey)
	if err != nil {
		return ApiKeyConfig{}, err
	}
	if key == "" {
		return ApiKeyConfig{}, &calendar.ConfigurationError{Setting: settings.GoogleCalendarApiKey}
	}

	calendarId, err := c.store.Get(ctx, settings.GoogleCalendarId)
	if err != nil {
		return ApiKeyConfig{}, err
	}
	if calendarId == "" {
		calendarId = "primary"
	}
	return ApiKeyConfig{Key: key, CalendarId: calendarId}, nil
}
