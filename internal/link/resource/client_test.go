package resource_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ledgerworks/stitchlink/internal/link/resource"
	"github.com/ledgerworks/stitchlink/internal/link/service"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) Token(_ context.Context, _ string) (string, error) {
	return s.token, s.err
}

func TestNewRequiresTokenSource(t *testing.T) {
	t.Parallel()

	_, err := resource.New(resource.Config{})
	require.Error(t, err)
}

func TestExecuteSendsAuthenticatedQuery(t *testing.T) {
	var (
		gotAuth string
		gotBody map[string]any
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"user":{"bankAccounts":[{"name":"Cheque"}]}}}`))
	}))
	defer srv.Close()

	client, err := resource.New(resource.Config{
		Tokens:   staticTokens{token: "at-1"},
		Endpoint: srv.URL,
	})
	require.NoError(t, err)

	data, err := client.Execute(context.Background(), "user-1",
		`query { user { bankAccounts { name } } }`,
		map[string]any{"first": 10},
	)
	require.NoError(t, err)
	require.JSONEq(t, `{"user":{"bankAccounts":[{"name":"Cheque"}]}}`, string(data))

	require.Equal(t, "Bearer at-1", gotAuth)
	require.Equal(t, `query { user { bankAccounts { name } } }`, gotBody["query"])
	require.Equal(t, map[string]any{"first": float64(10)}, gotBody["variables"])
}

func TestExecuteMapsTokenErrorsToUnauthenticated(t *testing.T) {
	t.Parallel()

	client, err := resource.New(resource.Config{
		Tokens: staticTokens{err: service.ErrNotAuthorized},
	})
	require.NoError(t, err)

	_, err = client.Execute(context.Background(), "user-1", "query { x }", nil)
	require.ErrorIs(t, err, resource.ErrUnauthenticated)
	require.ErrorIs(t, err, service.ErrNotAuthorized)
}

func TestExecuteMapsHTTP401ToUnauthenticated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := resource.New(resource.Config{
		Tokens:   staticTokens{token: "at-stale"},
		Endpoint: srv.URL,
	})
	require.NoError(t, err)

	_, err = client.Execute(context.Background(), "user-1", "query { x }", nil)
	require.ErrorIs(t, err, resource.ErrUnauthenticated)
}

func TestExecuteSurfacesGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errors":[{"message":"field does not exist"},{"message":"rate limited"}]}`))
	}))
	defer srv.Close()

	client, err := resource.New(resource.Config{
		Tokens:   staticTokens{token: "at-1"},
		Endpoint: srv.URL,
	})
	require.NoError(t, err)

	_, err = client.Execute(context.Background(), "user-1", "query { bogus }", nil)
	require.ErrorIs(t, err, resource.ErrRequestFailed)
	require.ErrorContains(t, err, "field does not exist")
	require.ErrorContains(t, err, "rate limited")
}

func TestExecuteRejectsMalformedResponses(t *testing.T) {
	t.Run("not JSON", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>gateway error</html>"))
		}))
		defer srv.Close()

		client, err := resource.New(resource.Config{
			Tokens:   staticTokens{token: "at-1"},
			Endpoint: srv.URL,
		})
		require.NoError(t, err)

		_, err = client.Execute(context.Background(), "user-1", "query { x }", nil)
		require.ErrorIs(t, err, resource.ErrMalformedResponse)
	})

	t.Run("neither data nor errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		client, err := resource.New(resource.Config{
			Tokens:   staticTokens{token: "at-1"},
			Endpoint: srv.URL,
		})
		require.NoError(t, err)

		_, err = client.Execute(context.Background(), "user-1", "query { x }", nil)
		require.ErrorIs(t, err, resource.ErrMalformedResponse)
	})
}

func TestExecuteSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := resource.New(resource.Config{
		Tokens:   staticTokens{token: "at-1"},
		Endpoint: srv.URL,
	})
	require.NoError(t, err)

	_, err = client.Execute(context.Background(), "user-1", "query { x }", nil)
	require.ErrorIs(t, err, resource.ErrRequestFailed)
}
