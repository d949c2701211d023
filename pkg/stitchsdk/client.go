// Package stitchsdk speaks the Stitch OpenID Connect wire protocol: it
// builds authorization redirect URLs and exchanges authorization codes and
// refresh tokens at the token endpoint, authenticating with an RS256 client
// assertion on every call.
package stitchsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ledgerworks/stitchlink/pkg/jwtx"
)

// ClientAssertionType is the fixed client_assertion_type value for
// JWT-bearer client authentication (RFC 7523).
const ClientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

// Default provider endpoints for the hosted Stitch environment.
const (
	DefaultAuthorizeURL = "https://secure.stitch.money/connect/authorize"
	DefaultTokenURL     = "https://secure.stitch.money/connect/token"
)

// ErrInvalidConfig reports an unusable client configuration. It is fatal;
// nothing in this package retries it.
var ErrInvalidConfig = errors.New("stitchsdk: invalid configuration")

// Config carries everything needed to talk to the provider. All state is
// explicit so multiple clients (multi-tenant integrators, test doubles) can
// coexist in one process.
type Config struct {
	AuthorizeURL string
	TokenURL     string
	RedirectURI  string
	Scopes       []string

	// Assertions signs the per-request client assertion. It also supplies
	// the client id used in every form body and query string.
	Assertions *jwtx.AssertionSigner

	// HTTPClient is optional; a 10-second-timeout client is used when nil.
	HTTPClient *http.Client
}

// Client is the provider wire client. Safe for concurrent use.
type Client struct {
	authorizeURL string
	tokenURL     string
	redirectURI  string
	scope        string
	assertions   *jwtx.AssertionSigner
	http         *http.Client
}

// New validates the configuration and returns a ready client.
func New(cfg Config) (*Client, error) {
	if cfg.Assertions == nil {
		return nil, fmt.Errorf("%w: assertion signer is required", ErrInvalidConfig)
	}
	if cfg.RedirectURI == "" {
		return nil, fmt.Errorf("%w: redirect URI is required", ErrInvalidConfig)
	}
	if len(cfg.Scopes) == 0 {
		return nil, fmt.Errorf("%w: at least one scope is required", ErrInvalidConfig)
	}

	authorizeURL := cfg.AuthorizeURL
	if authorizeURL == "" {
		authorizeURL = DefaultAuthorizeURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	for _, raw := range []string{authorizeURL, tokenURL} {
		if _, err := url.Parse(raw); err != nil {
			return nil, fmt.Errorf("%w: bad endpoint %q: %v", ErrInvalidConfig, raw, err)
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		authorizeURL: authorizeURL,
		tokenURL:     tokenURL,
		redirectURI:  cfg.RedirectURI,
		scope:        strings.Join(cfg.Scopes, " "),
		assertions:   cfg.Assertions,
		http:         httpClient,
	}, nil
}

// ClientID returns the client id asserted on every request.
func (c *Client) ClientID() string { return c.assertions.ClientID() }

// AuthorizationURL builds the redirect URL that sends the user to the
// provider's consent screen. The caller performs the actual redirect.
func (c *Client) AuthorizationURL(state, nonce, codeChallenge string) string {
	query := url.Values{}
	query.Set("client_id", c.ClientID())
	query.Set("scope", c.scope)
	query.Set("response_type", "code")
	query.Set("redirect_uri", c.redirectURI)
	query.Set("nonce", nonce)
	query.Set("state", state)
	query.Set("code_challenge", codeChallenge)
	query.Set("code_challenge_method", "S256")

	return fmt.Sprintf("%s?%s", c.authorizeURL, query.Encode())
}

// ExchangeCode redeems an authorization code for tokens, proving possession
// of the original request with the PKCE verifier.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {c.ClientID()},
		"code":          {code},
		"redirect_uri":  {c.redirectURI},
		"code_verifier": {codeVerifier},
	}
	return c.requestToken(ctx, form)
}

// Refresh redeems a refresh token for a fresh token pair. No PKCE values
// are involved in this grant.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.ClientID()},
		"refresh_token": {refreshToken},
	}
	return c.requestToken(ctx, form)
}

func (c *Client) requestToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	// A fresh assertion per request: each embeds a single-use jti.
	assertion, err := c.assertions.Sign(c.tokenURL, time.Now())
	if err != nil {
		return nil, err
	}
	form.Set("client_assertion_type", ClientAssertionType)
	form.Set("client_assertion", assertion)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.tokenURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("stitchsdk: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stitchsdk: token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("stitchsdk: read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp.StatusCode, body)
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("stitchsdk: decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("stitchsdk: token response missing access_token")
	}

	return &tokenResp, nil
}
