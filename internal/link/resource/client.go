// Package resource calls the provider's GraphQL data API on behalf of
// linked users, pulling a fresh access token from the token manager for
// every request.
package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultEndpoint is the hosted provider's GraphQL endpoint.
const DefaultEndpoint = "https://api.stitch.money/graphql"

var (
	// ErrUnauthenticated means no usable token exists for the user, or the
	// API rejected the one we sent. The user has to re-link.
	ErrUnauthenticated = errors.New("resource: user not authenticated")

	// ErrRequestFailed wraps a transport fault or an API-level rejection.
	ErrRequestFailed = errors.New("resource: request failed")

	// ErrMalformedResponse means the API answered with something that is
	// not a GraphQL response body.
	ErrMalformedResponse = errors.New("resource: malformed response")
)

// TokenSource supplies a valid access token for a user. Satisfied by
// *service.Manager; implementations are expected to refresh behind the
// scenes and fail when the user is not linked.
type TokenSource interface {
	Token(ctx context.Context, userID string) (string, error)
}

// Client executes GraphQL queries against the provider's data API.
type Client struct {
	tokens   TokenSource
	endpoint string
	http     *http.Client
}

// Config wires a Client. Endpoint defaults to DefaultEndpoint and
// HTTPClient to a 30-second-timeout client.
type Config struct {
	Tokens     TokenSource
	Endpoint   string
	HTTPClient *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.Tokens == nil {
		return nil, errors.New("resource: token source is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		tokens:   cfg.Tokens,
		endpoint: endpoint,
		http:     httpClient,
	}, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// Execute runs a query as the given user and returns the raw data document.
// GraphQL-level errors come back as ErrRequestFailed with the messages
// joined; a 401 from the API maps to ErrUnauthenticated.
func (c *Client) Execute(ctx context.Context, userID, query string, variables map[string]any) (json.RawMessage, error) {
	accessToken, err := c.tokens.Token(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("resource: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("resource: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrRequestFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: API rejected access token", ErrUnauthenticated)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: HTTP %d", ErrRequestFailed, resp.StatusCode)
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if len(gqlResp.Errors) > 0 {
		messages := make([]string, 0, len(gqlResp.Errors))
		for _, gqlErr := range gqlResp.Errors {
			messages = append(messages, gqlErr.Message)
		}
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, strings.Join(messages, "; "))
	}

	if gqlResp.Data == nil {
		return nil, fmt.Errorf("%w: response has neither data nor errors", ErrMalformedResponse)
	}

	return gqlResp.Data, nil
}
