package sqlite

import (
	"context"
	"database/sql"

	"github.com/ledgerworks/stitchlink/internal/link/domain"
	"github.com/ledgerworks/stitchlink/pkg/cryptox"
)

type tokensRepo struct {
	db     *sql.DB
	sealer *cryptox.Sealer
}

func (r *tokensRepo) Save(ctx context.Context, t domain.UserToken) error {
	accessToken, err := seal(r.sealer, t.AccessToken)
	if err != nil {
		return err
	}
	refreshToken, err := seal(r.sealer, t.RefreshToken)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO user_tokens (user_id, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token  = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at    = excluded.expires_at,
			updated_at    = excluded.updated_at
	`, t.UserID, accessToken, refreshToken, t.ExpiresAt, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *tokensRepo) Load(ctx context.Context, userID string) (domain.UserToken, error) {
	var t domain.UserToken
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, access_token, refresh_token, expires_at, created_at, updated_at
		FROM user_tokens
		WHERE user_id = ?
	`, userID).Scan(&t.UserID, &t.AccessToken, &t.RefreshToken, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.UserToken{}, mapNotFound(err)
	}

	if t.AccessToken, err = open(r.sealer, t.AccessToken); err != nil {
		return domain.UserToken{}, err
	}
	if t.RefreshToken, err = open(r.sealer, t.RefreshToken); err != nil {
		return domain.UserToken{}, err
	}
	return t, nil
}

func (r *tokensRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE user_id = ?`, userID)
	return err
}
