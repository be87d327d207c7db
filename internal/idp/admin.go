package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/oauth2"

	"github.com/linksylabs/linksy-backend/internal/models"
)

// adminTokenSource caches the admin access token and re-authenticates with the
// password grant when it expires. Safe for concurrent use.
type adminTokenSource struct {
	mu         sync.Mutex
	cfg        *oauth2.Config
	username   string
	password   string
	httpClient *http.Client
	tok        *oauth2.Token
}

func newAdminTokenSource(cfg *oauth2.Config, username, password string, httpClient *http.Client) *adminTokenSource {
	return &adminTokenSource{
		cfg:        cfg,
		username:   username,
		password:   password,
		httpClient: httpClient,
	}
}

func (s *adminTokenSource) Token(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tok.Valid() {
		return s.tok, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	tok, err := s.cfg.PasswordCredentialsToken(ctx, s.username, s.password)
	if err != nil {
		return nil, fmt.Errorf("%w: admin token grant: %v", ErrUnavailable, err)
	}

	s.tok = tok
	return tok, nil
}

// Invalidate drops the cached token, forcing a re-grant on next use.
func (s *adminTokenSource) Invalidate() {
	s.mu.Lock()
	s.tok = nil
	s.mu.Unlock()
}

// adminDo performs an authenticated request against the admin REST API.
// A 401 invalidates the cached admin token and the request is retried once.
func (c *Client) adminDo(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode admin request: %w", err)
		}
	}

	for attempt := 0; attempt < 2; attempt++ {
		tok, err := c.admin.Token(ctx)
		if err != nil {
			return nil, err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to build admin request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: admin api: %v", ErrUnavailable, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			resp.Body.Close()
			c.admin.Invalidate()
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("%w: admin api authentication loop", ErrUnavailable)
}

func (c *Client) adminUsersURL() string {
	return fmt.Sprintf("%s/admin/realms/%s/users", c.baseURL, c.realm)
}

// ProvisionUser creates a login-ready user in the IdP. The provider refuses to
// set credentials atomically, so creation is a mandatory three-phase sequence:
// create the record without a password, set the credential through the
// password-reset endpoint, then re-fetch and PUT the record back with
// enabled=true and requiredActions cleared. The operation counts as successful
// only once the final phase returns 2xx; earlier-phase failures after creation
// surface as PartialProvisionError and the IdP-side record is left in place.
func (c *Client) ProvisionUser(ctx context.Context, username string, profile models.RegistrationProfile) (string, error) {
	federatedID, err := c.createUser(ctx, username, profile)
	if err != nil {
		return "", err
	}

	if err := c.setPassword(ctx, federatedID, profile.Password); err != nil {
		c.logger.Error("provisioning failed after user creation",
			slog.String("username", username),
			slog.String("federated_id", federatedID),
			slog.Any("error", err))
		return "", &PartialProvisionError{FederatedID: federatedID, Phase: "set-credential", Err: err}
	}

	if err := c.finalizeUser(ctx, federatedID, username); err != nil {
		c.logger.Error("provisioning failed after credential set",
			slog.String("username", username),
			slog.String("federated_id", federatedID),
			slog.Any("error", err))
		return "", &PartialProvisionError{FederatedID: federatedID, Phase: "finalize", Err: err}
	}

	// Let the IdP's internal caches settle before the account is used.
	if c.settleDelay > 0 {
		select {
		case <-time.After(c.settleDelay):
		case <-ctx.Done():
			return "", &PartialProvisionError{FederatedID: federatedID, Phase: "settle", Err: ctx.Err()}
		}
	}

	c.logger.Info("user provisioned in identity provider",
		slog.String("username", username),
		slog.String("federated_id", federatedID))

	return federatedID, nil
}

// createUser is phase 1: POST the record without credentials. The IdP requires
// non-empty first and last names, so missing profile fields fall back to the
// capitalized username and the literal "User".
func (c *Client) createUser(ctx context.Context, username string, profile models.RegistrationProfile) (string, error) {
	attributes := map[string][]string{}
	if profile.DateOfBirth != "" {
		attributes["dateOfBirth"] = []string{profile.DateOfBirth}
	}
	if profile.PhoneNumber != "" {
		attributes["phoneNumber"] = []string{profile.PhoneNumber}
	}

	body := map[string]interface{}{
		"username":      username,
		"email":         profile.Email,
		"firstName":     defaultName(profile.FirstName, capitalize(username)),
		"lastName":      defaultName(profile.LastName, "User"),
		"enabled":       true,
		"emailVerified": false,
		"attributes":    attributes,
	}

	resp, err := c.adminDo(ctx, http.MethodPost, c.adminUsersURL(), body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
		// Continue below.
	case resp.StatusCode == http.StatusConflict:
		return "", conflictFromResponse(resp)
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: user creation returned %d", ErrUnavailable, resp.StatusCode)
	default:
		return "", fmt.Errorf("%w: user creation returned %d", ErrUnavailable, resp.StatusCode)
	}

	if location := resp.Header.Get("Location"); location != "" {
		return path.Base(location), nil
	}

	// Some IdP versions omit the Location header; recover the id by search.
	id, found, err := c.AdminLookupByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: created user %q not found by search", ErrUnavailable, username)
	}
	return id, nil
}

// setPassword is phase 2: the dedicated password-reset endpoint is the only
// way to attach a permanent credential.
func (c *Client) setPassword(ctx context.Context, federatedID, password string) error {
	endpoint := fmt.Sprintf("%s/%s/reset-password", c.adminUsersURL(), federatedID)

	body := map[string]interface{}{
		"type":      "password",
		"value":     password,
		"temporary": false,
	}

	resp, err := c.adminDo(ctx, http.MethodPut, endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("password reset returned %d", resp.StatusCode)
	}

	return nil
}

// finalizeUser is phase 3: fetch the created record, re-assert the name
// defaults if the IdP nulled them, force enabled=true and requiredActions=[],
// and PUT the merged record back so no login-time prompt is left pending.
func (c *Client) finalizeUser(ctx context.Context, federatedID, username string) error {
	endpoint := fmt.Sprintf("%s/%s", c.adminUsersURL(), federatedID)

	resp, err := c.adminDo(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("user fetch returned %d", resp.StatusCode)
	}

	var record map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&record)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to decode user record: %w", err)
	}

	if s, _ := record["firstName"].(string); s == "" {
		record["firstName"] = capitalize(username)
	}
	if s, _ := record["lastName"].(string); s == "" {
		record["lastName"] = "User"
	}
	if record["attributes"] == nil {
		record["attributes"] = map[string]interface{}{}
	}
	record["enabled"] = true
	record["requiredActions"] = []string{}

	updateResp, err := c.adminDo(ctx, http.MethodPut, endpoint, record)
	if err != nil {
		return err
	}
	defer updateResp.Body.Close()

	if updateResp.StatusCode != http.StatusOK && updateResp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("user update returned %d", updateResp.StatusCode)
	}

	return nil
}

// AdminLookupByUsername searches the admin API for a user by exact username.
func (c *Client) AdminLookupByUsername(ctx context.Context, username string) (string, bool, error) {
	endpoint := fmt.Sprintf("%s?username=%s", c.adminUsersURL(), url.QueryEscape(username))

	resp, err := c.adminDo(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("%w: user search returned %d", ErrUnavailable, resp.StatusCode)
	}

	var users []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := decodeJSON(resp, &users); err != nil {
		return "", false, fmt.Errorf("failed to decode user search: %w", err)
	}

	// The search endpoint matches substrings; keep exact matches only.
	matches := make([]string, 0, 1)
	for _, u := range users {
		if u.Username == username {
			matches = append(matches, u.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", false, nil
	case 1:
		return matches[0], true, nil
	default:
		return "", false, ErrAmbiguousUser
	}
}

func conflictFromResponse(resp *http.Response) error {
	var body struct {
		ErrorMessage string `json:"errorMessage"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	field := ""
	msg := strings.ToLower(body.ErrorMessage)
	switch {
	case strings.Contains(msg, "username"):
		field = "username"
	case strings.Contains(msg, "email"):
		field = "email"
	}

	return &ConflictError{Field: field}
}

func decodeJSON(resp *http.Response, v interface{}) error {
	return json.NewDecoder(resp.Body).Decode(v)
}

func defaultName(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

// capitalize upper-cases the first rune and lower-cases the rest, matching
// how the IdP-side name default is derived from a username.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
