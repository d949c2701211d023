package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerworks/stitchlink/internal/link/domain"
	"github.com/ledgerworks/stitchlink/internal/link/store"
	"github.com/ledgerworks/stitchlink/pkg/cryptox"
)

// ShouldAuthorize reports whether the user needs to go through the
// authorization flow: no token record, or a record that is expired with no
// refresh token to renew it. An expired access token with a refresh token on
// file is still usable and does not require re-authorization.
func (m *Manager) ShouldAuthorize(ctx context.Context, userID string) (bool, error) {
	token, err := m.tokens.Load(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	if token.RefreshToken == "" && token.ExpiresWithin(m.skew, time.Now().UTC()) {
		return true, nil
	}
	return false, nil
}

// Initiate starts a new authorization flow for the user and returns the URL
// to redirect them to. Any previous pending request for the user is
// replaced, which invalidates its state value.
func (m *Manager) Initiate(ctx context.Context, userID string) (string, error) {
	verifier, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("service: generate code verifier: %w", err)
	}
	state, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("service: generate state: %w", err)
	}
	nonce, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", fmt.Errorf("service: generate nonce: %w", err)
	}
	challenge := cryptox.S256Challenge(verifier)

	pending := domain.PendingAuthorization{
		UserID:        userID,
		State:         state,
		Nonce:         nonce,
		CodeVerifier:  verifier,
		CodeChallenge: challenge,
		CreatedAt:     time.Now().UTC(),
	}
	if err := m.pending.Save(ctx, pending); err != nil {
		return "", fmt.Errorf("service: save pending request: %w", err)
	}

	m.log.InfoContext(ctx, "authorization flow started", "user_id", userID)
	return m.provider.AuthorizationURL(state, nonce, challenge), nil
}

// Complete handles the provider's redirect back to us. The state must match
// the stored pending request before anything is sent over the network. On a
// failed exchange the pending request is left in place so the user can retry
// the redirect; on success it is consumed and the token record written.
func (m *Manager) Complete(ctx context.Context, userID, state, code string) error {
	pending, err := m.pending.Load(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoPendingRequest
	}
	if err != nil {
		return fmt.Errorf("service: load pending request: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(pending.State), []byte(state)) != 1 {
		m.log.WarnContext(ctx, "state mismatch on redirect", "user_id", userID)
		return ErrStateMismatch
	}

	resp, err := m.provider.ExchangeCode(ctx, code, pending.CodeVerifier)
	if err != nil {
		m.log.ErrorContext(ctx, "code exchange failed", "user_id", userID, "error", err)
		return fmt.Errorf("%w: %w", ErrTokenExchangeFailed, err)
	}

	now := time.Now().UTC()
	token := domain.UserToken{
		UserID:       userID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    expiryFrom(now, resp.ExpiresIn),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.tokens.Save(ctx, token); err != nil {
		return fmt.Errorf("service: save token record: %w", err)
	}

	// Consume the pending request only after the tokens are safely stored.
	// A failed delete just means a stale record that the next Initiate
	// overwrites.
	if err := m.pending.Delete(ctx, userID); err != nil {
		m.log.WarnContext(ctx, "failed to clear pending request", "user_id", userID, "error", err)
	}

	m.log.InfoContext(ctx, "authorization flow completed", "user_id", userID)
	return nil
}

// expiryFrom converts the provider's relative expires_in to an absolute
// deadline, defaulting the lifetime when the provider omits it.
func expiryFrom(now time.Time, expiresIn int) time.Time {
	if expiresIn <= 0 {
		return now.Add(defaultTokenLifetime)
	}
	return now.Add(time.Duration(expiresIn) * time.Second)
}
