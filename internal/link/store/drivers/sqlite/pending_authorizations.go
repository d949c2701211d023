package sqlite

import (
	"context"
	"database/sql"

	"github.com/ledgerworks/stitchlink/internal/link/domain"
	"github.com/ledgerworks/stitchlink/pkg/cryptox"
)

type pendingRepo struct {
	db     *sql.DB
	sealer *cryptox.Sealer
}

func (r *pendingRepo) Save(ctx context.Context, p domain.PendingAuthorization) error {
	verifier, err := seal(r.sealer, p.CodeVerifier)
	if err != nil {
		return err
	}

	// Upsert: a user only ever has one in-flight request.
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO pending_authorizations (user_id, state, nonce, code_verifier, code_challenge, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			state          = excluded.state,
			nonce          = excluded.nonce,
			code_verifier  = excluded.code_verifier,
			code_challenge = excluded.code_challenge,
			created_at     = excluded.created_at
	`, p.UserID, p.State, p.Nonce, verifier, p.CodeChallenge, p.CreatedAt)
	return err
}

func (r *pendingRepo) Load(ctx context.Context, userID string) (domain.PendingAuthorization, error) {
	var p domain.PendingAuthorization
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, state, nonce, code_verifier, code_challenge, created_at
		FROM pending_authorizations
		WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.State, &p.Nonce, &p.CodeVerifier, &p.CodeChallenge, &p.CreatedAt)
	if err != nil {
		return domain.PendingAuthorization{}, mapNotFound(err)
	}

	if p.CodeVerifier, err = open(r.sealer, p.CodeVerifier); err != nil {
		return domain.PendingAuthorization{}, err
	}
	return p, nil
}

func (r *pendingRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_authorizations WHERE user_id = ?`, userID)
	return err
}
