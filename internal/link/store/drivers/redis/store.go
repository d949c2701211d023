// Package redis persists link state in Redis, for deployments where several
// instances share one token pool. Pending requests carry a TTL so abandoned
// flows expire on their own; token records persist until replaced or deleted.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ledgerworks/stitchlink/internal/link/domain"
	"github.com/ledgerworks/stitchlink/internal/link/store"
)

// DefaultPendingTTL bounds how long a user has to finish the consent screen
// before the pending request is garbage collected.
const DefaultPendingTTL = 10 * time.Minute

type Store struct {
	client     *redis.Client
	pendingTTL time.Duration
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithPendingTTL overrides DefaultPendingTTL.
func WithPendingTTL(ttl time.Duration) Option {
	return func(s *Store) { s.pendingTTL = ttl }
}

// NewStore connects to Redis using a URL of the form
// redis://[user:pass@]host:port/db.
func NewStore(url string, opts ...Option) (*Store, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}

	s := &Store{
		client:     redis.NewClient(redisOpts),
		pendingTTL: DefaultPendingTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) PendingAuthorizations() store.PendingAuthorizations {
	return &pendingRepo{client: s.client, ttl: s.pendingTTL}
}

func (s *Store) UserTokens() store.UserTokens {
	return &tokensRepo{client: s.client}
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func pendingKey(userID string) string { return "stitchlink:pending:" + userID }
func tokenKey(userID string) string   { return "stitchlink:token:" + userID }

type pendingRepo struct {
	client *redis.Client
	ttl    time.Duration
}

func (r *pendingRepo) Save(ctx context.Context, p domain.PendingAuthorization) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, pendingKey(p.UserID), payload, r.ttl).Err()
}

func (r *pendingRepo) Load(ctx context.Context, userID string) (domain.PendingAuthorization, error) {
	payload, err := r.client.Get(ctx, pendingKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PendingAuthorization{}, store.ErrNotFound
	}
	if err != nil {
		return domain.PendingAuthorization{}, err
	}

	var p domain.PendingAuthorization
	if err := json.Unmarshal(payload, &p); err != nil {
		return domain.PendingAuthorization{}, err
	}
	return p, nil
}

func (r *pendingRepo) Delete(ctx context.Context, userID string) error {
	return r.client.Del(ctx, pendingKey(userID)).Err()
}

type tokensRepo struct {
	client *redis.Client
}

func (r *tokensRepo) Save(ctx context.Context, t domain.UserToken) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, tokenKey(t.UserID), payload, 0).Err()
}

func (r *tokensRepo) Load(ctx context.Context, userID string) (domain.UserToken, error) {
	payload, err := r.client.Get(ctx, tokenKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.UserToken{}, store.ErrNotFound
	}
	if err != nil {
		return domain.UserToken{}, err
	}

	var t domain.UserToken
	if err := json.Unmarshal(payload, &t); err != nil {
		return domain.UserToken{}, err
	}
	return t, nil
}

func (r *tokensRepo) Delete(ctx context.Context, userID string) error {
	return r.client.Del(ctx, tokenKey(userID)).Err()
}
