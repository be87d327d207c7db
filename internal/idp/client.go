package idp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/linksylabs/linksy-backend/internal/config"
	"github.com/linksylabs/linksy-backend/internal/models"
)

// Client is the single boundary with the external identity provider. It holds
// two credential contexts: the backend OIDC client for the configured realm
// (password grant, introspection, userinfo) and the admin account in the
// master realm for user provisioning.
type Client struct {
	baseURL    string
	realm      string
	httpClient *http.Client
	oidc       *oauth2.Config
	admin      *adminTokenSource
	logger     *slog.Logger

	// settleDelay is inserted after the final provisioning phase to let the
	// IdP's internal caches catch up. Zeroed in tests.
	settleDelay time.Duration
}

// NewClient constructs the IdP client at startup so misconfiguration fails
// fast rather than on first login.
func NewClient(cfg config.IdPConfig, logger *slog.Logger) *Client {
	httpClient := &http.Client{Timeout: 15 * time.Second}

	base := strings.TrimRight(cfg.BaseURL, "/")

	oidc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: tokenURL(base, cfg.Realm),
		},
	}

	// Admin credentials live in the master realm behind the admin-cli client.
	adminCfg := &oauth2.Config{
		ClientID: "admin-cli",
		Endpoint: oauth2.Endpoint{
			TokenURL: tokenURL(base, "master"),
		},
	}

	return &Client{
		baseURL:     base,
		realm:       cfg.Realm,
		httpClient:  httpClient,
		oidc:        oidc,
		admin:       newAdminTokenSource(adminCfg, cfg.AdminUser, cfg.AdminPassword, httpClient),
		logger:      logger,
		settleDelay: 1 * time.Second,
	}
}

func tokenURL(base, realm string) string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", base, realm)
}

// SetSettleDelay overrides the post-provisioning settle delay.
func (c *Client) SetSettleDelay(d time.Duration) {
	c.settleDelay = d
}

// ExchangePassword performs the OIDC password grant for an end user and
// returns the IdP's tokens verbatim.
func (c *Client) ExchangePassword(ctx context.Context, username, password string) (*models.TokenSet, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.oidc.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			if retrieveErr.Response != nil && retrieveErr.Response.StatusCode < 500 {
				c.logger.Warn("password grant rejected", slog.String("username", username))
				return nil, ErrAuthFailed
			}
		}
		return nil, fmt.Errorf("%w: password grant: %v", ErrUnavailable, err)
	}

	expiresIn := int64(0)
	if !tok.Expiry.IsZero() {
		expiresIn = int64(time.Until(tok.Expiry).Seconds())
	}

	return &models.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    expiresIn,
	}, nil
}

// Introspect performs token introspection plus a userinfo lookup and merges
// them: Active comes from introspection, the subject identifier and the
// profile claims come from userinfo.
func (c *Client) Introspect(ctx context.Context, token string) (*models.IdPTokenClaims, error) {
	userinfo, err := c.fetchUserinfo(ctx, token)
	if err != nil {
		return nil, err
	}

	active, err := c.fetchIntrospection(ctx, token)
	if err != nil {
		return nil, err
	}

	claims := &models.IdPTokenClaims{
		FederatedID:       userinfo.Sub,
		PreferredUsername: userinfo.PreferredUsername,
		Email:             userinfo.Email,
		Active:            active,
	}

	if !claims.Active || claims.FederatedID == "" || claims.PreferredUsername == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

type userinfoResponse struct {
	Sub               string `json:"sub"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
}

func (c *Client) fetchUserinfo(ctx context.Context, token string) (*userinfoResponse, error) {
	endpoint := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/userinfo", c.baseURL, c.realm)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var info userinfoResponse
		if err := decodeJSON(resp, &info); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
		return &info, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrTokenInvalid
	default:
		return nil, fmt.Errorf("%w: userinfo returned %d", ErrUnavailable, resp.StatusCode)
	}
}

func (c *Client) fetchIntrospection(ctx context.Context, token string) (bool, error) {
	endpoint := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token/introspect", c.baseURL, c.realm)

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to build introspection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.oidc.ClientID, c.oidc.ClientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: introspection: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 500 {
			return false, fmt.Errorf("%w: introspection returned %d", ErrUnavailable, resp.StatusCode)
		}
		return false, ErrTokenInvalid
	}

	var result struct {
		Active bool `json:"active"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return false, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	return result.Active, nil
}
