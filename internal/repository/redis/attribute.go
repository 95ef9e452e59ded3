package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/savedcarts/pkg/database"
	apperrors "github.com/utafrali/savedcarts/pkg/errors"
)

const attributeKeyPrefix = "usermeta:"

// AttributeStore implements repository.AttributeStore with one Redis hash per
// user; hash fields are attribute keys.
type AttributeStore struct {
	client *redis.Client
}

// NewAttributeStore creates a new Redis-backed user attribute store.
func NewAttributeStore(client *redis.Client) *AttributeStore {
	return &AttributeStore{client: client}
}

// Get returns the raw attribute value.
func (s *AttributeStore) Get(ctx context.Context, userID, key string) (data []byte, err error) {
	hash := attributeKeyPrefix + userID
	ctx, end := database.TraceRedis(ctx, "HGET", hash)
	defer func() { end(err) }()

	data, err = s.client.HGet(ctx, hash, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("user attribute", userID+"/"+key)
		}
		return nil, fmt.Errorf("redis hget attribute: %w", err)
	}
	return data, nil
}

// Set replaces the attribute value.
func (s *AttributeStore) Set(ctx context.Context, userID, key string, value []byte) (err error) {
	hash := attributeKeyPrefix + userID
	ctx, end := database.TraceRedis(ctx, "HSET", hash)
	defer func() { end(err) }()

	if err = s.client.HSet(ctx, hash, key, value).Err(); err != nil {
		return fmt.Errorf("redis hset attribute: %w", err)
	}
	return nil
}

// DeleteAll removes the user's attribute hash.
func (s *AttributeStore) DeleteAll(ctx context.Context, userID string) (err error) {
	hash := attributeKeyPrefix + userID
	ctx, end := database.TraceRedis(ctx, "DEL", hash)
	defer func() { end(err) }()

	if err = s.client.Del(ctx, hash).Err(); err != nil {
		return fmt.Errorf("redis del attributes: %w", err)
	}
	return nil
}
