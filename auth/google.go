package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "chat-gateway/errors"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Google only ever signs its ID tokens with one of these issuers.
var allowedGoogleIssuers = map[string]struct{}{
	"https://accounts.google.com": {},
	"accounts.google.com":         {},
}

// GoogleProfile is the userinfo document returned by Google once an
// authorization code has been exchanged for an access token.
type GoogleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	VerifiedEmail bool   `json:"verified_email"`
	Picture       string `json:"picture"`
}

// GoogleAuthenticator drives the OAuth code flow against Google.
// It is upstream of the chat core: its only output is a verified profile.
type GoogleAuthenticator struct {
	config *oauth2.Config
}

func NewGoogleAuthenticator(clientID, clientSecret, redirectURL string) *GoogleAuthenticator {
	return &GoogleAuthenticator{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		},
	}
}

// AuthCodeURL returns the Google consent page URL for the given CSRF state.
func (g *GoogleAuthenticator) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a Google token and rejects
// tokens whose ID token was not issued by Google.
func (g *GoogleAuthenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrGoogleAuth, err)
	}
	if err := checkGoogleIssuer(token); err != nil {
		return nil, err
	}
	return token, nil
}

// FetchProfile retrieves the userinfo document for an exchanged token.
func (g *GoogleAuthenticator) FetchProfile(ctx context.Context, token *oauth2.Token) (GoogleProfile, error) {
	client := g.config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return GoogleProfile{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("%w: %v", apperrors.ErrGoogleAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GoogleProfile{}, fmt.Errorf("%w: userinfo returned %d", apperrors.ErrGoogleAuth, resp.StatusCode)
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return GoogleProfile{}, fmt.Errorf("%w: %v", apperrors.ErrGoogleAuth, err)
	}
	return profile, nil
}

// checkGoogleIssuer inspects the iss claim of the ID token shipped with the
// exchanged token. The signature is not verified here: the token was just
// received over TLS from Google's own token endpoint.
func checkGoogleIssuer(token *oauth2.Token) error {
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrGoogleAuth, err)
	}
	issuer, err := claims.GetIssuer()
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrGoogleAuth, err)
	}
	if _, allowed := allowedGoogleIssuers[issuer]; !allowed {
		return fmt.Errorf("%w: unexpected issuer %q", apperrors.ErrGoogleAuth, issuer)
	}
	return nil
}
