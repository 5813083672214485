package client

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenSourceRefresher adapts an oauth2.TokenSource to the
// TokenRefresher capability, so a standard OAuth flow (refresh-token
// grant, client credentials) can back the auth interceptor.
type TokenSourceRefresher struct {
	Source oauth2.TokenSource
}

// RefreshToken implements TokenRefresher.
func (r TokenSourceRefresher) RefreshToken(_ context.Context) (string, error) {
	token, err := r.Source.Token()
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// RefresherFromOAuth builds a TokenRefresher from an oauth2.Config and
// a long-lived refresh token. Each call to RefreshToken yields the
// source's current (auto-renewed) access token.
func RefresherFromOAuth(ctx context.Context, cfg *oauth2.Config, refreshToken string) TokenRefresher {
	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return TokenSourceRefresher{Source: src}
}
