// Package sqlite persists link state in a local SQLite database. It is the
// default driver for single-node deployments; bearer credentials can be
// sealed at rest with an optional cryptox.Sealer.
package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ledgerworks/stitchlink/internal/link/store"
	"github.com/ledgerworks/stitchlink/pkg/cryptox"

	_ "modernc.org/sqlite"
)

type Store struct {
	db     *sql.DB
	sealer *cryptox.Sealer
	dsn    string
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithSealer encrypts code verifiers, access tokens and refresh tokens
// before they are written. Without it values are stored in the clear.
func WithSealer(sealer *cryptox.Sealer) Option {
	return func(s *Store) { s.sealer = sealer }
}

func NewStore(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, dsn: dsn}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) PendingAuthorizations() store.PendingAuthorizations {
	return &pendingRepo{db: s.db, sealer: s.sealer}
}

func (s *Store) UserTokens() store.UserTokens {
	return &tokensRepo{db: s.db, sealer: s.sealer}
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// seal and open are no-ops when no sealer is configured.

func seal(sealer *cryptox.Sealer, value string) (string, error) {
	if sealer == nil {
		return value, nil
	}
	return sealer.Seal(value)
}

func open(sealer *cryptox.Sealer, value string) (string, error) {
	if sealer == nil {
		return value, nil
	}
	return sealer.Open(value)
}
