package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	lockTTL          = 30 * time.Second
	lockPollInterval = 25 * time.Millisecond
)

var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore persists sessions as JSON documents with a sliding TTL so several
// API replicas can share one caller's conversation.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("sessions: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("aya.internal.sessions")
	}
	return &RedisStore{redis: client, ttl: ttl, tracer: tracer}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "sessions.get")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("sessions: failed to load %s: %w", id, err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("sessions: failed to decode %s: %w", id, err)
	}
	return &session, nil
}

func (s *RedisStore) Put(ctx context.Context, session *Session) error {
	ctx, span := s.tracer.Start(ctx, "sessions.put")
	defer span.End()

	if session == nil || session.ID == "" {
		return fmt.Errorf("sessions: session id required")
	}
	data, err := json.Marshal(session)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("sessions: failed to marshal %s: %w", session.ID, err)
	}
	if err := s.redis.Set(ctx, sessionKey(session.ID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("sessions: failed to persist %s: %w", session.ID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "sessions.delete")
	defer span.End()

	if err := s.redis.Del(ctx, sessionKey(id)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("sessions: failed to delete %s: %w", id, err)
	}
	return nil
}

// SweepExpired is a no-op: Redis expires idle keys on its own.
func (s *RedisStore) SweepExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

// Lock takes a short-lived Redis lock for the session id, polling until the
// lock is free or ctx is done.
func (s *RedisStore) Lock(ctx context.Context, id string) (func(), error) {
	key := lockKey(id)
	token := uuid.NewString()
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		ok, err := s.redis.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("sessions: failed to lock %s: %w", id, err)
		}
		if ok {
			return func() {
				// Released with a fresh context so a cancelled request still frees the lock.
				_ = releaseLock.Run(context.Background(), s.redis, []string{key}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("sessions: waiting for lock %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

func sessionKey(id string) string {
	return fmt.Sprintf("booking_session:%s", id)
}

func lockKey(id string) string {
	return fmt.Sprintf("booking_session_lock:%s", id)
}
