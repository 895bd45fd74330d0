package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/daybook/daybook/internal/rest"
	"github.com/daybook/daybook/pkg/calendar"
	"github.com/daybook/daybook/pkg/user"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

type googleAuthRedirect struct {
	AuthUrl string `json:"authUrl"`
}

type authStatusDto struct {
	AuthType        string `json:"authType"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	IsExpired       bool   `json:"isExpired"`
	NeedsReauth     bool   `json:"needsReauth"`
}

// GoogleAuth serves the interactive OAuth2 flow plus auth status and
// disconnect for the active strategy.
type GoogleAuth struct {
	creds     *CredentialStore
	repo      TokenRepository
	lifecycle *TokenLifecycle
	service   Service
}

func NewGoogleAuth(creds *CredentialStore, repo TokenRepository, lifecycle *TokenLifecycle, service Service) *GoogleAuth {
	return &GoogleAuth{
		creds:     creds,
		repo:      repo,
		lifecycle: lifecycle,
		service:   service,
	}
}

// OAuthLogin starts the consent flow. It only applies to the OAuth2 strategy;
// the non-interactive strategies have nothing to log in to.
func (g *GoogleAuth) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	authType, err := g.creds.ActiveAuthType(ctx)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	if authType != AuthTypeOAuth2 {
		rest.WriteError(w, http.StatusConflict, rest.ErrorResponse{
			Error: fmt.Sprintf("interactive authentication is not available for auth type %q", authType),
		})
		return
	}

	cfg, err := g.creds.OAuth2Config(ctx)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	userId, err := user.CurrentId(ctx)
	if err != nil {
		log.Error("unable to retrieve current user: ", err)
		http.Error(w, "unable to retrieve current user", http.StatusInternalServerError)
		return
	}

	stateNonce := uuid.New().String()
	if err := g.repo.CreateAuthRequest(ctx, stateNonce, userId); err != nil {
		log.Errorf("failed to store Google auth request for user %d: %v", userId, err)
		rest.WriteError(w, http.StatusInternalServerError, rest.ErrorResponse{
			Error: "Failed to handle Google authentication",
		})
		return
	}

	log.Tracef("Redirecting to Google auth URL with nonce: %s", stateNonce)
	u := cfg.AuthCodeURL(stateNonce, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(googleAuthRedirect{AuthUrl: u}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// OAuthCallback receives the provider redirect, exchanges the authorization
// code and stores the token for the user resolved from the state nonce. The
// response is a tiny HTML page that notifies the opener and closes itself.
func (g *GoogleAuth) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := r.FormValue("code")
	state := r.FormValue("state")

	if code == "" {
		// The user denied consent or the provider reported an error.
		log.Infof("OAuth callback without code: %s", r.FormValue("error"))
		writeCallbackPage(w, false, "Authorization was not granted")
		return
	}

	userId, err := g.repo.ConsumeAuthRequest(ctx, state)
	if errors.Is(err, ErrUnknownAuthRequest) {
		log.Warnf("OAuth callback with unknown state nonce: %s", state)
		writeCallbackPage(w, false, "Unknown or expired authentication request")
		return
	} else if err != nil {
		log.Errorf("failed to resolve OAuth state: %v", err)
		writeCallbackPage(w, false, "Failed to complete authentication")
		return
	}

	cfg, err := g.creds.OAuth2Config(ctx)
	if err != nil {
		log.Errorf("OAuth configuration missing during callback: %v", err)
		writeCallbackPage(w, false, "Google integration is not configured")
		return
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		if isRedirectMismatch(err) {
			// Reported verbatim: fixing this requires re-registering the
			// redirect URI on the Google side.
			mismatch := &calendar.RedirectMismatchError{ProviderError: err.Error()}
			log.Error(mismatch)
			writeCallbackPage(w, false, mismatch.Error())
			return
		}
		log.Errorf("unable to exchange code for token: %v", err)
		writeCallbackPage(w, false, "Google rejected the authorization code")
		return
	}

	stored := StoredToken{
		UserId:       userId,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		stored.Expiry = &expiry
	}
	if scope, ok := token.Extra("scope").(string); ok {
		stored.Scope = scope
	}
	if err := g.repo.UpsertToken(ctx, stored); err != nil {
		log.Errorf("unable to store Google auth token for user %d: %v", userId, err)
		writeCallbackPage(w, false, "Failed to store authentication token")
		return
	}

	log.Debugf("Successfully stored Google auth token for user %d", userId)
	writeCallbackPage(w, true, "")
}

// AuthStatus reports the credential state of the active strategy.
func (g *GoogleAuth) AuthStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status, err := g.service.Status(r.Context())
	if err != nil {
		log.Errorf("failed to compute auth status: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, rest.ErrorResponse{
			Error: "Failed to retrieve authentication status",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	encodeErr := json.NewEncoder(w).Encode(authStatusDto{
		AuthType:        string(status.AuthType),
		IsAuthenticated: status.IsAuthenticated,
		IsExpired:       status.IsExpired,
		NeedsReauth:     status.NeedsReauth,
	})
	if encodeErr != nil {
		http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
	}
}

// OAuthLogout removes the stored token for the current user. Removing it does
// not revoke the grant on the Google side.
func (g *GoogleAuth) OAuthLogout(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	userId, err := user.CurrentId(r.Context())
	if err != nil {
		log.Error("unable to retrieve current user: ", err)
		http.Error(w, "unable to retrieve current user", http.StatusInternalServerError)
		return
	}

	if err := g.lifecycle.Disconnect(r.Context(), userId); err != nil {
		log.Errorf("failed to delete Google auth token for user %d: %v", userId, err)
		rest.WriteError(w, http.StatusInternalServerError, rest.ErrorResponse{
			Error: "Failed to disconnect Google account",
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeAuthError(w http.ResponseWriter, err error) {
	var configErr *calendar.ConfigurationError
	if errors.As(err, &configErr) {
		rest.WriteError(w, http.StatusConflict, rest.ErrorResponse{
			Error:   "Google integration is not configured",
			Details: configErr.Error(),
		})
		return
	}
	log.Errorf("google auth request failed: %v", err)
	rest.WriteError(w, http.StatusInternalServerError, rest.ErrorResponse{
		Error: "Failed to handle Google authentication",
	})
}

// writeCallbackPage renders the popup-closing page. The opener listens for
// the posted message to learn the outcome; the origin check happens there.
func writeCallbackPage(w http.ResponseWriter, success bool, reason string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	status := http.StatusOK
	if !success {
		status = http.StatusBadRequest
	}
	w.WriteHeader(status)

	message := map[string]any{"type": "googleAuthResult", "success": success}
	if reason != "" {
		message["error"] = reason
	}
	payload, _ := json.Marshal(message)

	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Google Calendar</title></head>
<body>
<script>
  if (window.opener) {
    window.opener.postMessage(%s, "*");
  }
  window.close();
</script>
<p>You can close this window.</p>
</body>
</html>
`, payload)
}
