package google

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/oauth2"
)

// ErrUnknownAuthRequest is returned when an OAuth callback state does not
// match any pending authentication request.
var ErrUnknownAuthRequest = errors.New("unknown authentication request")

// StoredToken is the per-user OAuth token row. RefreshToken may be empty
// (the provider can omit it on subsequent consents) and Expiry may be nil
// (treated as non-expiring, though a provider-side 401 still forces reauth).
type StoredToken struct {
	UserId       int
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       *time.Time
	Scope        string
}

// OAuth2Token converts the row into the oauth2 package's token type.
func (t *StoredToken) OAuth2Token() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
	}
	if t.Expiry != nil {
		token.Expiry = *t.Expiry
	}
	return token
}

type TokenRepository interface {
	// GetToken returns nil when the user has no stored token.
	GetToken(ctx context.Context, userId int) (*StoredToken, error)
	UpsertToken(ctx context.Context, token StoredToken) error
	DeleteToken(ctx context.Context, userId int) error

	// CreateAuthRequest records a pending OAuth state nonce for the user.
	CreateAuthRequest(ctx context.Context, nonce string, userId int) error
	// ConsumeAuthRequest resolves a state nonce to its user id and removes
	// it, so each state is single-use.
	ConsumeAuthRequest(ctx context.Context, nonce string) (int, error)
}

type TokenRepositoryImpl struct {
	db *pgxpool.Pool
}

func NewTokenRepository(db *pgxpool.Pool) *TokenRepositoryImpl {
	return &TokenRepositoryImpl{db: db}
}

func (r *TokenRepositoryImpl) GetToken(ctx context.Context, userId int) (*StoredToken, error) {
	const query = `SELECT access_token, refresh_token, token_type, expiry, scope FROM google_oauth_token WHERE user_id = $1`

	token := StoredToken{UserId: userId}
	var expiryMillis *int64
	err := r.db.QueryRow(ctx, query, userId).
		Scan(&token.AccessToken, &token.RefreshToken, &token.TokenType, &expiryMillis, &token.Scope)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("could not query OAuth token: %w", err)
	}
	if expiryMillis != nil {
		expiry := time.UnixMilli(*expiryMillis).UTC()
		token.Expiry = &expiry
	}
	return &token, nil
}

func (r *TokenRepositoryImpl) UpsertToken(ctx context.Context, token StoredToken) error {
	const query = `
		INSERT INTO google_oauth_token (user_id, access_token, refresh_token, token_type, expiry, scope)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id)
		DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_type = EXCLUDED.token_type,
			expiry = EXCLUDED.expiry,
			scope = EXCLUDED.scope`

	var expiryMillis *int64
	if token.Expiry != nil {
		millis := token.Expiry.UnixMilli()
		expiryMillis = &millis
	}
	_, err := r.db.Exec(ctx, query, token.UserId, token.AccessToken, token.RefreshToken, token.TokenType, expiryMillis, token.Scope)
	if err != nil {
		return fmt.Errorf("could not store OAuth token: %w", err)
	}
	return nil
}

func (r *TokenRepositoryImpl) DeleteToken(ctx context.Context, userId int) error {
	if _, err := r.db.Exec(ctx, "DELETE FROM google_oauth_token WHERE user_id = $1", userId); err != nil {
		return fmt.Errorf("could not delete OAuth token: %w", err)
	}
	return nil
}

func (r *TokenRepositoryImpl) CreateAuthRequest(ctx context.Context, nonce string, userId int) error {
	// A user restarting the flow invalidates their previous pending request.
	_, err := r.db.Exec(ctx, "DELETE FROM google_auth_request WHERE user_id = $1", userId)
	if err != nil {
		return fmt.Errorf("could not clear pending auth requests: %w", err)
	}
	_, err = r.db.Exec(ctx, "INSERT INTO google_auth_request (nonce, user_id, created_at) VALUES ($1, $2, $3)",
		nonce, userId, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("could not store auth request: %w", err)
	}
	return nil
}

func (r *TokenRepositoryImpl) ConsumeAuthRequest(ctx context.Context, nonce string) (int, error) {
	var userId int
	err := r.db.QueryRow(ctx, "DELETE FROM google_auth_request WHERE nonce = $1 RETURNING user_id", nonce).Scan(&userId)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUnknownAuthRequest
	} else if err != nil {
		return 0, fmt.Errorf("could not consume auth request: %w", err)
	}
	return userId, nil
}
