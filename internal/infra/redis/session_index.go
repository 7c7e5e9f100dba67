package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionIndex marks live session codes in Redis so dashboards and sibling
// instances can see which codes are active. Best effort only: the in-process
// registry remains the source of truth, and a failed write never affects a
// running session.
type SessionIndex struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionIndex(client *redis.Client, ttl time.Duration) *SessionIndex {
	return &SessionIndex{client: client, ttl: ttl}
}

func (s *SessionIndex) MarkActive(code string) {
	_ = s.client.Set(context.Background(), s.key(code), "1", s.ttl).Err()
}

func (s *SessionIndex) ClearActive(code string) {
	_ = s.client.Del(context.Background(), s.key(code)).Err()
}

func (s *SessionIndex) key(code string) string {
	return "session:active:" + code
}
