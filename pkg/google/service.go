package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/daybook/daybook/pkg/calendar"
	"github.com/daybook/daybook/pkg/user"
	log "github.com/sirupsen/logrus"
	gcal "google.golang.org/api/calendar/v3"
)

type CalendarItem struct {
	ID      string
	Summary string
}

// AuthStatus is the externally visible credential state of the active
// strategy.
type AuthStatus struct {
	AuthType        AuthType
	IsAuthenticated bool
	IsExpired       bool
	NeedsReauth     bool
}

type Service interface {
	// GetCalendar produces a provider client bound to the active strategy's
	// target calendar. Only the OAuth2 path has a side effect (it may
	// refresh the stored token).
	GetCalendar(ctx context.Context) (calendar.Provider, error)
	ListCalendars(ctx context.Context) ([]CalendarItem, error)
	Status(ctx context.Context) (AuthStatus, error)
}

type ServiceImpl struct {
	creds     *CredentialStore
	lifecycle *TokenLifecycle
	users     user.Service
}

func NewService(creds *CredentialStore, lifecycle *TokenLifecycle, users user.Service) *ServiceImpl {
	return &ServiceImpl{
		creds:     creds,
		lifecycle: lifecycle,
		users:     users,
	}
}

func (s *ServiceImpl) GetCalendar(ctx context.Context) (calendar.Provider, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	strategy, err := resolveStrategy(ctx, s.creds, s.lifecycle)
	if err != nil {
		return nil, err
	}
	service, err := s.prepareGoogleService(ctx, strategy)
	if err != nil {
		return nil, err
	}

	timezone := "UTC"
	if currentUser, err := s.users.GetCurrentUser(ctx); err == nil && currentUser.Settings.Timezone != "" {
		timezone = currentUser.Settings.Timezone
	}
	return newGoogleCalendar(service, userId, strategy.CalendarId(ctx), timezone, strategy.Writable()), nil
}

func (s *ServiceImpl) ListCalendars(ctx context.Context) ([]CalendarItem, error) {
	strategy, err := resolveStrategy(ctx, s.creds, s.lifecycle)
	if err != nil {
		return nil, err
	}
	service, err := s.prepareGoogleService(ctx, strategy)
	if err != nil {
		return nil, err
	}

	calendars, err := service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		err := providerError(err)
		log.Errorf("unable to retrieve calendars from Google Calendar: %v", err)
		return nil, err
	}
	var items []CalendarItem
	for _, cal := range calendars.Items {
		items = append(items, CalendarItem{
			ID:      cal.Id,
			Summary: cal.Summary,
		})
	}
	return items, nil
}

// Status is computed fresh on every call; nothing here is cached because
// credentials can be invalidated out of band.
func (s *ServiceImpl) Status(ctx context.Context) (AuthStatus, error) {
	authType, err := s.creds.ActiveAuthType(ctx)
	if err != nil {
		var configErr *calendar.ConfigurationError
		if errors.As(err, &configErr) {
			return AuthStatus{AuthType: AuthTypeOAuth2}, nil
		}
		return AuthStatus{}, err
	}

	switch authType {
	case AuthTypeOAuth2:
		userId, err := user.CurrentId(ctx)
		if err != nil {
			return AuthStatus{}, fmt.Errorf("failed to get current user: %w", err)
		}
		tokenStatus, err := s.lifecycle.Status(ctx, userId)
		if err != nil {
			return AuthStatus{}, err
		}
		return AuthStatus{
			AuthType:        authType,
			IsAuthenticated: tokenStatus.IsAuthenticated,
			IsExpired:       tokenStatus.IsExpired,
			NeedsReauth:     tokenStatus.NeedsReauth,
		}, nil
	default:
		// Non-interactive strategies are authenticated exactly when their
		// configuration is complete; expiry does not apply.
		_, err := resolveStrategy(ctx, s.creds, s.lifecycle)
		if err != nil {
			var configErr *calendar.ConfigurationError
			if errors.As(err, &configErr) {
				return AuthStatus{AuthType: authType}, nil
			}
			return AuthStatus{}, err
		}
		return AuthStatus{AuthType: authType, IsAuthenticated: true}, nil
	}
}

func (s *ServiceImpl) prepareGoogleService(ctx context.Context, strategy AuthStrategy) (*gcal.Service, error) {
	opts, err := strategy.ClientOptions(ctx)
	if err != nil {
		return nil, err
	}
	service, err := gcal.NewService(ctx, opts...)
	if err != nil {
		err := fmt.Errorf("unable to build Calendar client: %w", err)
		log.Error(err)
		return nil, err
	}
	return service, nil
}
