package upstream

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/docuchat/admin-gateway/internal/core/domain"
)

// defaultExpirySeconds is assumed when a token response carries no
// expires_in and the token itself has no exp claim.
const defaultExpirySeconds = 3600

// AuthClient implements ports.AuthAPI against the upstream auth endpoints.
type AuthClient struct {
	c           *Client
	loginPath   string
	refreshPath string
}

func NewAuthClient(c *Client, loginPath, refreshPath string) *AuthClient {
	return &AuthClient{c: c, loginPath: loginPath, refreshPath: refreshPath}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login exchanges credentials for a token pair. 400 means the upstream
// rejected the credentials, 401 that the account may not sign in.
func (a *AuthClient) Login(ctx context.Context, username, password string) (domain.TokenPair, error) {
	resp, err := a.c.DoJSON(ctx, http.MethodPost, a.loginPath, nil, loginRequest{Username: username, Password: password}, "")
	if err != nil {
		return domain.TokenPair{}, err
	}
	if !resp.OK() {
		switch resp.Status {
		case http.StatusBadRequest:
			return domain.TokenPair{}, domain.ErrInvalidCredentials
		case http.StatusUnauthorized:
			return domain.TokenPair{}, domain.ErrNotAuthorized
		default:
			return domain.TokenPair{}, &domain.UpstreamStatusError{Status: resp.Status, Body: resp.BodyExcerpt()}
		}
	}

	var pair domain.TokenPair
	if err := resp.DecodeJSON(&pair); err != nil {
		return domain.TokenPair{}, err
	}
	normalizeExpiry(&pair)
	return pair, nil
}

// Refresh exchanges a refresh token for a new access token.
func (a *AuthClient) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	resp, err := a.c.DoJSON(ctx, http.MethodPost, a.refreshPath, nil, refreshRequest{RefreshToken: refreshToken}, "")
	if err != nil {
		return domain.TokenPair{}, err
	}
	if !resp.OK() {
		return domain.TokenPair{}, resp.AsError()
	}

	var pair domain.TokenPair
	if err := resp.DecodeJSON(&pair); err != nil {
		return domain.TokenPair{}, err
	}
	normalizeExpiry(&pair)
	return pair, nil
}

// normalizeExpiry fills in ExpiresIn when the upstream omits it: first from
// the token's exp claim (unverified parse — the gateway is a client, not
// the token's issuer), then from the documented default.
func normalizeExpiry(pair *domain.TokenPair) {
	if pair.ExpiresIn > 0 {
		return
	}
	if exp := tokenExpiry(pair.AccessToken); !exp.IsZero() {
		if remaining := time.Until(exp); remaining > 0 {
			pair.ExpiresIn = int64(remaining.Seconds())
			return
		}
	}
	pair.ExpiresIn = defaultExpirySeconds
}

func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
