package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/daybook/daybook/internal/utils"
	"github.com/daybook/daybook/pkg/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type lifecycleFixture struct {
	lifecycle   *TokenLifecycle
	repo        *TokenRepositoryStub
	clock       *utils.MockClock
	tokenCalls  *atomic.Int32
	tokenServer *httptest.Server
}

// setupLifecycleTest wires a lifecycle against a fake token endpoint so
// refreshes never hit the network boundary of the test.
func setupLifecycleTest(t *testing.T, tokenHandler http.HandlerFunc) *lifecycleFixture {
	t.Helper()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		tokenHandler(w, r)
	}))
	t.Cleanup(server.Close)

	repo := NewTokenRepositoryStub()
	clock := &utils.MockClock{FixedNow: time.Date(2024, 11, 16, 10, 0, 0, 0, time.UTC)}
	oauthConfig := func(ctx context.Context) (*oauth2.Config, error) {
		return &oauth2.Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			Endpoint:     oauth2.Endpoint{TokenURL: server.URL + "/token"},
		}, nil
	}

	return &lifecycleFixture{
		lifecycle:   NewTokenLifecycle(repo, oauthConfig, clock),
		repo:        repo,
		clock:       clock,
		tokenCalls:  &calls,
		tokenServer: server,
	}
}

func serveToken(accessToken, refreshToken string, expiresIn int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  accessToken,
			"refresh_token": refreshToken,
			"token_type":    "Bearer",
			"expires_in":    expiresIn,
		})
	}
}

func storedTokenExpiring(userId int, expiry time.Time) StoredToken {
	return StoredToken{
		UserId:       userId,
		AccessToken:  "old-access",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		Expiry:       &expiry,
	}
}

func TestTokenLifecycle_Token(t *testing.T) {
	ctx := context.Background()

	t.Run("No stored token requires authentication", func(t *testing.T) {
		f := setupLifecycleTest(t, serveToken("new-access", "", 3600))

		_, err := f.lifecycle.Token(ctx, 1)
		assert.ErrorIs(t, err, calendar.ErrReauthRequired)
		assert.Equal(t, int32(0), f.tokenCalls.Load())
	})

	t.Run("Unexpired token is returned without a refresh", func(t *testing.T) {
		f := setupLifecycleTest(t, serveToken("new-access", "", 3600))
		require.NoError(t, f.repo.UpsertToken(ctx, storedTokenExpiring(1, f.clock.Now().Add(time.Hour))))

		token, err := f.lifecycle.Token(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "old-access", token.AccessToken)
		assert.Equal(t, int32(0), f.tokenCalls.Load())
	})

	t.Run("Token without expiry never refreshes", func(t *testing.T) {
		f := setupLifecycleTest(t, serveToken("new-access", "", 3600))
		require.NoError(t, f.repo.UpsertToken(ctx, StoredToken{
			UserId:      1,
			AccessToken: "non-expiring",
			TokenType:   "Bearer",
		}))

		token, err := f.lifecycle.Token(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "non-expiring", token.AccessToken)
		assert.Equal(t, int32(0), f.tokenCalls.Load())
	})

	t.Run("Expired token without refresh token requires authentication without a network call", func(t *testing.T) {
		f := setupLifecycleTest(t, serveToken("new-access", "", 3600))
		expiry := f.clock.Now().Add(-time.Hour)
		require.NoError(t, f.repo.UpsertToken(ctx, StoredToken{
			UserId:      1,
			AccessToken: "old-access",
			TokenType:   "Bearer",
			Expiry:      &expiry,
		}))

		_, err := f.lifecycle.Token(ctx, 1)
		assert.ErrorIs(t, err, calendar.ErrReauthRequired)
		assert.Equal(t, int32(0), f.tokenCalls.Load())
	})

	t.Run("Expired token is refreshed and persisted", func(t *testing.T) {
		f := setupLifecycleTest(t, serveToken("new-access", "", 3600))
		require.NoError(t, f.repo.UpsertToken(ctx, storedTokenExpiring(1, f.clock.Now().Add(-time.Hour))))

		token, err := f.lifecycle.Token(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "new-access", token.AccessToken)

		stored, err := f.repo.GetToken(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "new-access", stored.AccessToken)
		// The provider did not rotate the refresh token, so it is retained.
		assert.Equal(t, "refresh-1", stored.RefreshToken)
		require.NotNil(t, stored.Expiry)
		assert.True(t, stored.Expiry.After(time.Now()))
	})

	t.Run("Rotated refresh token replaces the stored one", func(t *testing.T) {
		f := setupLifecycleTest(t, serveToken("new-access", "refresh-2", 3600))
		require.NoError(t, f.repo.UpsertToken(ctx, storedTokenExpiring(1, f.clock.Now().Add(-time.Hour))))

		_, err := f.lifecycle.Token(ctx, 1)
		require.NoError(t, err)

		stored, err := f.repo.GetToken(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "refresh-2", stored.RefreshToken)
	})

	t.Run("Concurrent calls share a single refresh", func(t *testing.T) {
		f := setupLifecycleTest(t, serveToken("new-access", "", 3600))
		require.NoError(t, f.repo.UpsertToken(ctx, storedTokenExpiring(1, f.clock.Now().Add(-time.Hour))))

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				token, err := f.lifecycle.Token(ctx, 1)
				assert.NoError(t, err)
				assert.Equal(t, "new-access", token.AccessToken)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), f.tokenCalls.Load())
	})

	t.Run("Refresh rejection requires authentication", func(t *testing.T) {
		f := setupLifecycleTest(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
		})
		require.NoError(t, f.repo.UpsertToken(ctx, storedTokenExpiring(1, f.clock.Now().Add(-time.Hour))))

		_, err := f.lifecycle.Token(ctx, 1)
		assert.ErrorIs(t, err, calendar.ErrReauthRequired)
	})

	t.Run("Provider outage during refresh is retryable", func(t *testing.T) {
		f := setupLifecycleTest(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		require.NoError(t, f.repo.UpsertToken(ctx, storedTokenExpiring(1, f.clock.Now().Add(-time.Hour))))

		_, err := f.lifecycle.Token(ctx, 1)
		var unavailableErr *calendar.ProviderUnavailableError
		assert.ErrorAs(t, err, &unavailableErr)
	})
}

func TestTokenLifecycle_Status(t *testing.T) {
	ctx := context.Background()

	t.Run("No stored token", func(t *testing.T) {
		f := setupLifecycleTest(t, serveToken("new-access", "", 3600))

		status, err := f.lifecycle.Status(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, TokenStatus{NeedsReauth: true}, status)
	})

	t.Run("Valid token", func(t *testing.T) {
		f := setupLifecycleTest(t, serveToken("new-access", "", 3600))
		require.NoError(t, f.repo.UpsertToken(ctx, storedTokenExpiring(1, f.clock.Now().Add(time.Hour))))

		status, err := f.lifecycle.Status(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, TokenStatus{IsAuthenticated: true}, status)
	})

	t.Run("Expired token with refresh token is recoverable", func(t *testing.T) {
		f := setupLifecycleTest(t, serveToken("new-access", "", 3600))
		require.NoError(t, f.repo.UpsertToken(ctx, storedTokenExpiring(1, f.clock.Now().Add(-time.Hour))))

		status, err := f.lifecycle.Status(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, TokenStatus{IsAuthenticated: true, IsExpired: true}, status)
	})

	t.Run("Expired token without refresh token needs reauth", func(t *testing.T) {
		f := setupLifecycleTest(t, serveToken("new-access", "", 3600))
		expiry := f.clock.Now().Add(-time.Hour)
		require.NoError(t, f.repo.UpsertToken(ctx, StoredToken{
			UserId:      1,
			AccessToken: "old-access",
			Expiry:      &expiry,
		}))

		status, err := f.lifecycle.Status(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, TokenStatus{IsAuthenticated: true, IsExpired: true, NeedsReauth: true}, status)
	})
}

func TestTokenLifecycle_Disconnect(t *testing.T) {
	ctx := context.Background()
	f := setupLifecycleTest(t, serveToken("new-access", "", 3600))
	require.NoError(t, f.repo.UpsertToken(ctx, storedTokenExpiring(1, f.clock.Now().Add(time.Hour))))

	require.NoError(t, f.lifecycle.Disconnect(ctx, 1))

	stored, err := f.repo.GetToken(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, stored)
}
