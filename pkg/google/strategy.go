package google

import (
	"context"
	"fmt"

	"github.com/daybook/daybook/pkg/calendar"
	"github.com/daybook/daybook/pkg/user"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// AuthStrategy is one way of authenticating against Google Calendar. The
// active strategy is selected once per request by the factory; call sites
// never branch on the auth type themselves.
type AuthStrategy interface {
	Type() AuthType
	// CalendarId is the remote calendar the strategy is bound to.
	CalendarId(ctx context.Context) string
	// ClientOptions yields the authentication options for the Google API
	// client. The OAuth2 implementation may refresh the stored token as a
	// side effect; the others are side-effect-free.
	ClientOptions(ctx context.Context) ([]option.ClientOption, error)
	// Writable reports whether the provider accepts write operations under
	// this strategy. API keys are restricted to public, read-mostly access
	// by provider semantics.
	Writable() bool
}

// resolveStrategy dispatches on the configured auth type. Each constructor
// fails with a ConfigurationError when its required settings are absent.
func resolveStrategy(ctx context.Context, creds *CredentialStore, lifecycle *TokenLifecycle) (AuthStrategy, error) {
	authType, err := creds.ActiveAuthType(ctx)
	if err != nil {
		return nil, err
	}
	switch authType {
	case AuthTypeOAuth2:
		return newOAuth2Strategy(ctx, creds, lifecycle)
	case AuthTypeServiceAccount:
		return newServiceAccountStrategy(ctx, creds)
	case AuthTypeApiKey:
		return newApiKeyStrategy(ctx, creds)
	default:
		return nil, fmt.Errorf("unreachable auth type %q", authType)
	}
}

type oauth2Strategy struct {
	lifecycle *TokenLifecycle
}

func newOAuth2Strategy(ctx context.Context, creds *CredentialStore, lifecycle *TokenLifecycle) (*oauth2Strategy, error) {
	// Validate client credentials eagerly so a misconfiguration surfaces as
	// ConfigurationError, not as a failed token use later.
	if _, err := creds.OAuth2Config(ctx); err != nil {
		return nil, err
	}
	return &oauth2Strategy{lifecycle: lifecycle}, nil
}

func (s *oauth2Strategy) Type() AuthType { return AuthTypeOAuth2 }

func (s *oauth2Strategy) Writable() bool { return true }

func (s *oauth2Strategy) CalendarId(ctx context.Context) string {
	if currentUser, err := user.CurrentUser(ctx); err == nil && currentUser.Settings.GoogleCalendarId != "" {
		return currentUser.Settings.GoogleCalendarId
	}
	return "primary"
}

func (s *oauth2Strategy) ClientOptions(ctx context.Context) ([]option.ClientOption, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	token, err := s.lifecycle.Token(ctx, userId)
	if err != nil {
		return nil, err
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	return []option.ClientOption{option.WithHTTPClient(client)}, nil
}

type serviceAccountStrategy struct {
	config ServiceAccountConfig
}

func newServiceAccountStrategy(ctx context.Context, creds *CredentialStore) (*serviceAccountStrategy, error) {
	config, err := creds.ServiceAccountConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &serviceAccountStrategy{config: config}, nil
}

func (s *serviceAccountStrategy) Type() AuthType { return AuthTypeServiceAccount }

func (s *serviceAccountStrategy) Writable() bool { return true }

func (s *serviceAccountStrategy) CalendarId(ctx context.Context) string {
	return s.config.CalendarId
}

func (s *serviceAccountStrategy) ClientOptions(ctx context.Context) ([]option.ClientOption, error) {
	jwtConfig, err := google.JWTConfigFromJSON(s.config.Key, gcal.CalendarScope)
	if err != nil {
		return nil, &calendar.ConfigurationError{
			Setting: "google_service_account_key",
			Reason:  fmt.Sprintf("not a service account key: %v", err),
		}
	}
	return []option.ClientOption{option.WithHTTPClient(jwtConfig.Client(ctx))}, nil
}

type apiKeyStrategy struct {
	config ApiKeyConfig
}

func newApiKeyStrategy(ctx context.Context, creds *CredentialStore) (*apiKeyStrategy, error) {
	config, err := creds.ApiKeyConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &apiKeyStrategy{config: config}, nil
}

func (s *apiKeyStrategy) Type() AuthType { return AuthTypeApiKey }

func (s *apiKeyStrategy) Writable() bool { return false }

func (s *apiKeyStrategy) CalendarId(ctx context.Context) string {
	return s.config.CalendarId
}

func (s *apiKeyStrategy) ClientOptions(ctx context.Context) ([]option.ClientOption, error) {
	return []option.ClientOption{option.WithAPIKey(s.config.Key)}, nil
}
