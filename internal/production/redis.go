package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/comalice/formchart/internal/core"
)

// DefaultRedisPrefix namespaces session keys.
const DefaultRedisPrefix = "formchart:session:"

// RedisPersister stores records as JSON strings under prefix+sessionID.
type RedisPersister[C any] struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisPersister.
type RedisOption func(*redisOptions)

type redisOptions struct {
	prefix string
	ttl    time.Duration
}

// WithTTL expires sessions ttl after their last save. Zero means no expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(o *redisOptions) {
		o.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(o *redisOptions) {
		o.prefix = prefix
	}
}

// NewRedisPersister connects to addr.
func NewRedisPersister[C any](addr, password string, db int, opts ...RedisOption) *RedisPersister[C] {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisPersisterFromClient[C](client, opts...)
}

// NewRedisPersisterFromClient uses an existing client.
func NewRedisPersisterFromClient[C any](client *backend.Client, opts ...RedisOption) *RedisPersister[C] {
	o := redisOptions{prefix: DefaultRedisPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	return &RedisPersister[C]{client: client, prefix: o.prefix, ttl: o.ttl}
}

func (p *RedisPersister[C]) key(sessionID string) string {
	return p.prefix + sessionID
}

// Ping checks connectivity.
func (p *RedisPersister[C]) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (p *RedisPersister[C]) Close() error {
	return p.client.Close()
}

func (p *RedisPersister[C]) Save(ctx context.Context, sessionID string, rec core.SnapshotRecord[C]) error {
	if err := checkSessionID(sessionID); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session %q: %w", sessionID, err)
	}
	if err := p.client.Set(ctx, p.key(sessionID), data, p.ttl).Err(); err != nil {
		return fmt.Errorf("save session %q to redis: %w", sessionID, err)
	}
	return nil
}

func (p *RedisPersister[C]) Load(ctx context.Context, sessionID string) (core.SnapshotRecord[C], error) {
	var rec core.SnapshotRecord[C]
	if err := checkSessionID(sessionID); err != nil {
		return rec, err
	}
	data, err := p.client.Get(ctx, p.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return rec, fmt.Errorf("session %q: %w", sessionID, ErrSessionNotFound)
		}
		return rec, fmt.Errorf("load session %q from redis: %w", sessionID, err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("unmarshal session %q: %w", sessionID, err)
	}
	return rec, nil
}

func (p *RedisPersister[C]) Delete(ctx context.Context, sessionID string) error {
	if err := checkSessionID(sessionID); err != nil {
		return err
	}
	if err := p.client.Del(ctx, p.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session %q from redis: %w", sessionID, err)
	}
	return nil
}
