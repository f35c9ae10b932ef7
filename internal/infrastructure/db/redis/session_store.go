package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/africtivistes/adisa/internal/core/domain"
)

// SessionStore keeps sessions as JSON values that expire on their own.
// Key format: session:<session_id>
// Each account also owns a set of its session ids so that all of them can be
// revoked at once. Key format: account_sessions:<account_id>
type SessionStore struct {
	client   *redis.Client
	indexTTL time.Duration
}

// NewSessionStore wraps client. maxTTL is the longest lifetime a session can
// have; the per-account index is kept at least that long.
func NewSessionStore(client *redis.Client, maxTTL time.Duration) *SessionStore {
	return &SessionStore{client: client, indexTTL: maxTTL}
}

func (s *SessionStore) Save(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	indexTTL := s.indexTTL
	if ttl > indexTTL {
		indexTTL = ttl
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(session.ID), data, ttl)
		pipe.SAdd(ctx, s.accountKey(session.AccountID), session.ID)
		pipe.Expire(ctx, s.accountKey(session.AccountID), indexTTL)
		return nil
	})
	if err != nil {
		return domain.StorageErr("save session", err)
	}
	return nil
}

// Update overwrites a live session and keeps its remaining TTL. It never
// creates the key, so a session deleted by logout or revocation stays gone
// and the call reports domain.ErrUnauthorized.
func (s *SessionStore) Update(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	err = s.client.SetArgs(ctx, s.key(session.ID), data, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrUnauthorized
		}
		return domain.StorageErr("update session", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrUnauthorized
		}
		return nil, domain.StorageErr("load session", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, domain.ErrUnauthorized
	}
	return &session, nil
}

func (s *SessionStore) Delete(ctx context.Context, session *domain.Session) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(session.ID))
		pipe.SRem(ctx, s.accountKey(session.AccountID), session.ID)
		return nil
	})
	if err != nil {
		return domain.StorageErr("delete session", err)
	}
	return nil
}

func (s *SessionStore) DeleteByAccount(ctx context.Context, accountID string) error {
	ids, err := s.client.SMembers(ctx, s.accountKey(accountID)).Result()
	if err != nil {
		return domain.StorageErr("list account sessions", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.key(id))
	}
	keys = append(keys, s.accountKey(accountID))

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return domain.StorageErr("revoke account sessions", err)
	}
	return nil
}

func (s *SessionStore) key(id string) string {
	return "session:" + id
}

func (s *SessionStore) accountKey(accountID string) string {
	return "account_sessions:" + accountID
}
