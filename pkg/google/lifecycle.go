package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/daybook/daybook/internal/utils"
	"github.com/daybook/daybook/pkg/calendar"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// TokenStatus is the freshly computed credential state for one user. It is
// never cached: credentials can be revoked out of band on the provider side.
type TokenStatus struct {
	IsAuthenticated bool
	IsExpired       bool
	NeedsReauth     bool
}

// TokenLifecycle decides whether a stored OAuth token is usable, refreshes it
// when expired, and signals when interactive re-authentication is required.
// Refreshes for the same user are collapsed into a single provider call:
// providers reject concurrent reuse of the same refresh token.
type TokenLifecycle struct {
	repo        TokenRepository
	oauthConfig func(ctx context.Context) (*oauth2.Config, error)
	clock       utils.Clock
	group       singleflight.Group
}

func NewTokenLifecycle(repo TokenRepository, oauthConfig func(ctx context.Context) (*oauth2.Config, error), clock utils.Clock) *TokenLifecycle {
	return &TokenLifecycle{
		repo:        repo,
		oauthConfig: oauthConfig,
		clock:       clock,
	}
}

// Token returns a usable access token for the user, refreshing it in place
// when expired. An expired token without a refresh token resolves to
// ErrReauthRequired without any network call.
func (m *TokenLifecycle) Token(ctx context.Context, userId int) (*oauth2.Token, error) {
	stored, err := m.repo.GetToken(ctx, userId)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, calendar.ErrReauthRequired
	}
	if !m.expired(stored) {
		return stored.OAuth2Token(), nil
	}
	if stored.RefreshToken == "" {
		log.Debugf("expired token for user %d has no refresh token, re-authentication required", userId)
		return nil, calendar.ErrReauthRequired
	}

	token, err, _ := m.group.Do(strconv.Itoa(userId), func() (any, error) {
		return m.refresh(ctx, userId)
	})
	if err != nil {
		return nil, err
	}
	return token.(*oauth2.Token), nil
}

// Status reports the credential state, computed fresh on every call.
func (m *TokenLifecycle) Status(ctx context.Context, userId int) (TokenStatus, error) {
	stored, err := m.repo.GetToken(ctx, userId)
	if err != nil {
		return TokenStatus{}, err
	}
	if stored == nil {
		return TokenStatus{NeedsReauth: true}, nil
	}
	expired := m.expired(stored)
	return TokenStatus{
		IsAuthenticated: true,
		IsExpired:       expired,
		NeedsReauth:     expired && stored.RefreshToken == "",
	}, nil
}

// Disconnect deletes the stored token.
func (m *TokenLifecycle) Disconnect(ctx context.Context, userId int) error {
	return m.repo.DeleteToken(ctx, userId)
}

// expired treats a nil expiry as non-expiring; a provider-side 401 at use
// time still forces reauth through error classification.
func (m *TokenLifecycle) expired(token *StoredToken) bool {
	return token.Expiry != nil && token.Expiry.Before(m.clock.Now())
}

func (m *TokenLifecycle) refresh(ctx context.Context, userId int) (*oauth2.Token, error) {
	// Re-read inside the flight: a refresh that completed while this caller
	// waited already persisted a fresh token.
	stored, err := m.repo.GetToken(ctx, userId)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, calendar.ErrReauthRequired
	}
	if !m.expired(stored) {
		return stored.OAuth2Token(), nil
	}

	cfg, err := m.oauthConfig(ctx)
	if err != nil {
		return nil, err
	}

	refreshed, err := cfg.TokenSource(ctx, stored.OAuth2Token()).Token()
	if err != nil {
		return nil, classifyRefreshError(err)
	}

	// Persist in place. The refresh token is retained unless the provider
	// rotated it.
	updated := StoredToken{
		UserId:       userId,
		AccessToken:  refreshed.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    refreshed.TokenType,
		Scope:        stored.Scope,
	}
	if refreshed.RefreshToken != "" {
		updated.RefreshToken = refreshed.RefreshToken
	}
	if !refreshed.Expiry.IsZero() {
		expiry := refreshed.Expiry.UTC()
		updated.Expiry = &expiry
	}
	if err := m.repo.UpsertToken(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	log.Debugf("refreshed Google OAuth token for user %d", userId)
	return refreshed, nil
}

// classifyRefreshError maps a failed refresh to the error taxonomy: provider
// outages stay retryable, everything else means the grant is gone and the
// user has to re-authenticate.
func classifyRefreshError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= http.StatusInternalServerError {
			return &calendar.ProviderUnavailableError{Err: err}
		}
		log.Infof("token refresh rejected by provider: %v", err)
		return calendar.ErrReauthRequired
	}
	if isNetworkError(err) {
		return &calendar.ProviderUnavailableError{Err: err}
	}
	return calendar.ErrReauthRequired
}
