// Package service implements the authorization state machine: it creates
// pending requests, completes them against the provider's redirect, and
// keeps stored tokens fresh for API calls.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ledgerworks/stitchlink/internal/link/store"
	"github.com/ledgerworks/stitchlink/pkg/stitchsdk"
)

var (
	// ErrNoPendingRequest means a redirect arrived for a user with no
	// in-flight authorization request. Either the flow was never started,
	// already completed, or superseded by a newer one.
	ErrNoPendingRequest = errors.New("service: no pending authorization request")

	// ErrStateMismatch means the state on the redirect did not match the
	// stored pending request. Treated as a forged or stale callback.
	ErrStateMismatch = errors.New("service: state mismatch")

	// ErrTokenExchangeFailed wraps a provider rejection or transport fault
	// at the token endpoint, on the code exchange or a transient refresh
	// failure. Stored state is untouched: the pending request survives so
	// the redirect can be retried, and a token record stays for the next
	// refresh attempt.
	ErrTokenExchangeFailed = errors.New("service: token exchange failed")

	// ErrNotAuthorized means the user has no usable credentials and must go
	// through the authorization flow (again).
	ErrNotAuthorized = errors.New("service: user not authorized")
)

// DefaultRefreshSkew is how long before expiry a token is refreshed rather
// than handed out.
const DefaultRefreshSkew = 60 * time.Second

// defaultTokenLifetime applies when the provider omits expires_in.
const defaultTokenLifetime = time.Hour

// Provider is the subset of the wire client the manager needs. Satisfied by
// *stitchsdk.Client.
type Provider interface {
	AuthorizationURL(state, nonce, codeChallenge string) string
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*stitchsdk.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*stitchsdk.TokenResponse, error)
}

// Config wires a Manager.
type Config struct {
	Store    store.Store
	Provider Provider
	Logger   *slog.Logger

	// RefreshSkew defaults to DefaultRefreshSkew when zero.
	RefreshSkew time.Duration
}

// Manager drives the authorization flow and token lifecycle for all users.
// Safe for concurrent use.
type Manager struct {
	pending  store.PendingAuthorizations
	tokens   store.UserTokens
	provider Provider
	log      *slog.Logger
	skew     time.Duration

	// mu guards locks; each user gets their own refresh mutex so one slow
	// refresh does not stall every other user.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, errors.New("service: store is required")
	}
	if cfg.Provider == nil {
		return nil, errors.New("service: provider is required")
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	skew := cfg.RefreshSkew
	if skew <= 0 {
		skew = DefaultRefreshSkew
	}

	return &Manager{
		pending:  cfg.Store.PendingAuthorizations(),
		tokens:   cfg.Store.UserTokens(),
		provider: cfg.Provider,
		log:      log,
		skew:     skew,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

func (m *Manager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[userID] = lock
	}
	return lock
}
