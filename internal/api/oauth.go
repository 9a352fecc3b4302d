package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// OAuthConfig describes the OAuth application used to refresh tokens
type OAuthConfig struct {
	BaseURL      string
	ClientID     string
	RefreshToken string

	// HTTPClient is used for the token endpoint when set
	HTTPClient *http.Client
}

// TokenUpdateFunc receives the token pair issued by a successful refresh
type TokenUpdateFunc func(accessToken, refreshToken string)

// NewOAuthRefresher returns a RefreshFunc that exchanges the refresh token at
// <base>/oauth/token. GitLab rotates refresh tokens, so the newest one is kept
// for the next call and reported through onUpdate.
func NewOAuthRefresher(config OAuthConfig, onUpdate TokenUpdateFunc) RefreshFunc {
	oauthConfig := &oauth2.Config{
		ClientID: config.ClientID,
		Endpoint: oauth2.Endpoint{
			AuthURL:   strings.TrimRight(config.BaseURL, "/") + "/oauth/authorize",
			TokenURL:  strings.TrimRight(config.BaseURL, "/") + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: []string{"read_api"},
	}

	var mu sync.Mutex
	refreshToken := config.RefreshToken

	return func(ctx context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()

		if refreshToken == "" {
			return "", nil
		}
		if config.HTTPClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, config.HTTPClient)
		}

		token, err := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
		if err != nil {
			return "", fmt.Errorf("failed to refresh OAuth token: %w", err)
		}
		if token.RefreshToken != "" {
			refreshToken = token.RefreshToken
		}
		if onUpdate != nil {
			onUpdate(token.AccessToken, refreshToken)
		}
		return token.AccessToken, nil
	}
}
