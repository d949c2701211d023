// Package memory is an in-process store driver. It backs tests and the
// single-node development setup; nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"github.com/ledgerworks/stitchlink/internal/link/domain"
	"github.com/ledgerworks/stitchlink/internal/link/store"
)

type Store struct {
	pending *pendingRepo
	tokens  *tokensRepo
}

func NewStore() *Store {
	return &Store{
		pending: &pendingRepo{records: make(map[string]domain.PendingAuthorization)},
		tokens:  &tokensRepo{records: make(map[string]domain.UserToken)},
	}
}

func (s *Store) PendingAuthorizations() store.PendingAuthorizations { return s.pending }
func (s *Store) UserTokens() store.UserTokens                       { return s.tokens }

func (s *Store) Close() error                 { return nil }
func (s *Store) Ping(_ context.Context) error { return nil }

type pendingRepo struct {
	mu      sync.RWMutex
	records map[string]domain.PendingAuthorization
}

func (r *pendingRepo) Save(_ context.Context, p domain.PendingAuthorization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[p.UserID] = p
	return nil
}

func (r *pendingRepo) Load(_ context.Context, userID string) (domain.PendingAuthorization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.records[userID]
	if !ok {
		return domain.PendingAuthorization{}, store.ErrNotFound
	}
	return p, nil
}

func (r *pendingRepo) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, userID)
	return nil
}

type tokensRepo struct {
	mu      sync.RWMutex
	records map[string]domain.UserToken
}

func (r *tokensRepo) Save(_ context.Context, t domain.UserToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[t.UserID] = t
	return nil
}

func (r *tokensRepo) Load(_ context.Context, userID string) (domain.UserToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.records[userID]
	if !ok {
		return domain.UserToken{}, store.ErrNotFound
	}
	return t, nil
}

func (r *tokensRepo) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, userID)
	return nil
}
