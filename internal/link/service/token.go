package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerworks/stitchlink/internal/link/domain"
	"github.com/ledgerworks/stitchlink/internal/link/store"
	"github.com/ledgerworks/stitchlink/pkg/cryptox"
	"github.com/ledgerworks/stitchlink/pkg/stitchsdk"
)

// Token returns a valid access token for the user, refreshing it first when
// it is expired or about to expire. Returns ErrNotAuthorized when the user
// has no credentials or the provider has revoked them.
func (m *Manager) Token(ctx context.Context, userID string) (string, error) {
	token, err := m.tokens.Load(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNotAuthorized
	}
	if err != nil {
		return "", fmt.Errorf("service: load token record: %w", err)
	}

	now := time.Now().UTC()
	if !token.ExpiresWithin(m.skew, now) {
		return token.AccessToken, nil
	}

	return m.refresh(ctx, userID)
}

// refresh serializes refreshes per user. The store is re-read under the lock
// so concurrent callers piggyback on a refresh that already happened instead
// of burning the rotated refresh token twice.
func (m *Manager) refresh(ctx context.Context, userID string) (string, error) {
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	token, err := m.tokens.Load(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNotAuthorized
	}
	if err != nil {
		return "", fmt.Errorf("service: load token record: %w", err)
	}

	now := time.Now().UTC()
	if !token.ExpiresWithin(m.skew, now) {
		return token.AccessToken, nil
	}

	if token.RefreshToken == "" {
		// Nothing to refresh with; the record is dead weight.
		m.clearTokens(ctx, userID)
		return "", ErrNotAuthorized
	}

	resp, err := m.provider.Refresh(ctx, token.RefreshToken)
	if err != nil {
		var provErr *stitchsdk.Error
		if errors.As(err, &provErr) && provErr.GrantRejected() {
			// The provider has revoked the grant. Stored credentials are
			// dead; the user has to re-link.
			m.log.InfoContext(ctx, "refresh grant rejected, clearing credentials",
				"user_id", userID, "code", provErr.Code)
			m.clearTokens(ctx, userID)
			return "", ErrNotAuthorized
		}

		// Transient fault: keep the record, the next call retries.
		m.log.ErrorContext(ctx, "token refresh failed", "user_id", userID, "error", err)
		return "", fmt.Errorf("%w: %w", ErrTokenExchangeFailed, err)
	}

	refreshToken := resp.RefreshToken
	if refreshToken == "" {
		// Provider did not rotate; keep the one we have.
		refreshToken = token.RefreshToken
	}

	updated := domain.UserToken{
		UserID:       userID,
		AccessToken:  resp.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiryFrom(now, resp.ExpiresIn),
		CreatedAt:    token.CreatedAt,
		UpdatedAt:    now,
	}
	if err := m.tokens.Save(ctx, updated); err != nil {
		return "", fmt.Errorf("service: save refreshed token: %w", err)
	}

	m.log.DebugContext(ctx, "access token refreshed",
		"user_id", userID,
		"token_fp", cryptox.Fingerprint(updated.AccessToken),
	)
	return updated.AccessToken, nil
}

func (m *Manager) clearTokens(ctx context.Context, userID string) {
	if err := m.tokens.Delete(ctx, userID); err != nil {
		m.log.WarnContext(ctx, "failed to clear token record", "user_id", userID, "error", err)
	}
}
