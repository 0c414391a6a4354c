package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quarkfin/qwallet-web/internal/core/domain"
	"github.com/quarkfin/qwallet-web/internal/core/ports"
)

const (
	defaultSessionTTL = 24 * time.Hour

	fieldAccessToken = "accessToken"
	fieldUser        = "user"
	fieldVersion     = "version"
)

// SessionStore keeps each session in a hash with the accessToken and user
// fields plus a version counter.
// Key format: qwallet:session:<sid>
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a SessionStore wrapping the given Redis client.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, sid string) (*domain.Session, error) {
	fields, err := s.client.HGetAll(ctx, s.key(sid)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	session := &domain.Session{AccessToken: fields[fieldAccessToken]}
	if raw := fields[fieldUser]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &session.User); err != nil {
			return nil, fmt.Errorf("decode session user: %w", err)
		}
	}
	if raw := fields[fieldVersion]; raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode session version: %w", err)
		}
		session.Version = v
	}
	return session, nil
}

// Put writes the session inside a WATCH/MULTI transaction so that the
// version check and the write are atomic with respect to other writers.
func (s *SessionStore) Put(ctx context.Context, sid string, session *domain.Session) error {
	key := s.key(sid)
	user, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}

	var next int64
	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, fieldVersion).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != session.Version {
			return domain.ErrStaleSession
		}
		next = current + 1

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldAccessToken, session.AccessToken,
				fieldUser, user,
				fieldVersion, next,
			)
			pipe.Expire(ctx, key, s.ttl)
			return nil
		})
		return err
	}

	switch err := s.client.Watch(ctx, txf, key); {
	case err == nil:
		session.Version = next
		return nil
	case errors.Is(err, domain.ErrStaleSession), errors.Is(err, redis.TxFailedErr):
		return domain.ErrStaleSession
	default:
		return fmt.Errorf("put session: %w", err)
	}
}

func (s *SessionStore) Delete(ctx context.Context, sid string) error {
	return s.client.Del(ctx, s.key(sid)).Err()
}

func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *SessionStore) key(sid string) string {
	return "qwallet:session:" + sid
}
