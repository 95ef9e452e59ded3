package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/savedcarts/pkg/database"
)

const noticeKeyPrefix = "notices:"

// NoticeStore implements repository.NoticeStore with a Redis list per user.
// The list expires after ttl so notices of users who never come back are dropped.
type NoticeStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewNoticeStore creates a new Redis-backed notice store.
func NewNoticeStore(client *redis.Client, ttl time.Duration) *NoticeStore {
	return &NoticeStore{
		client: client,
		ttl:    ttl,
	}
}

// Add appends a notice and refreshes the list TTL.
func (s *NoticeStore) Add(ctx context.Context, userID, message string) (err error) {
	key := noticeKeyPrefix + userID
	ctx, end := database.TraceRedis(ctx, "RPUSH", key)
	defer func() { end(err) }()

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, message)
	pipe.Expire(ctx, key, s.ttl)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis push notice: %w", err)
	}
	return nil
}

// Drain returns all pending notices and deletes the list atomically.
func (s *NoticeStore) Drain(ctx context.Context, userID string) (notices []string, err error) {
	key := noticeKeyPrefix + userID
	ctx, end := database.TraceRedis(ctx, "LRANGE", key)
	defer func() { end(err) }()

	pipe := s.client.TxPipeline()
	rangeCmd := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err = pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis drain notices: %w", err)
	}
	return rangeCmd.Val(), nil
}
