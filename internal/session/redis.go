package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"philcali.me/chefbot/internal/data"
)

// RedisCache keeps a conversation's result set under a single key, so a
// Replace is one atomic SET and readers never observe a partial set.
type RedisCache struct {
	Client *redis.Client
	Key    string
	TTL    time.Duration
}

var _ ResultCache = (*RedisCache)(nil)

func RedisKey(conversationID int64) string {
	return fmt.Sprintf("chefbot:session:%d:results", conversationID)
}

// NewRedisFactory builds per-conversation caches sharing one client.
func NewRedisFactory(client *redis.Client, ttl time.Duration) CacheFactory {
	return func(conversationID int64) ResultCache {
		return &RedisCache{
			Client: client,
			Key:    RedisKey(conversationID),
			TTL:    ttl,
		}
	}
}

func (c *RedisCache) Replace(ctx context.Context, results []data.RecipeSummary) error {
	payload, err := json.Marshal(newResultSet(results).ordered)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, c.Key, payload, c.TTL).Err()
}

func (c *RedisCache) Results(ctx context.Context) ([]data.RecipeSummary, error) {
	payload, err := c.Client.Get(ctx, c.Key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var results []data.RecipeSummary
	if err := json.Unmarshal(payload, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *RedisCache) Lookup(ctx context.Context, recipeID int64) (data.RecipeSummary, bool, error) {
	results, err := c.Results(ctx)
	if err != nil {
		return data.RecipeSummary{}, false, err
	}
	for _, r := range results {
		if r.ID == recipeID {
			return r, true, nil
		}
	}
	return data.RecipeSummary{}, false, nil
}

func (c *RedisCache) Clear(ctx context.Context) error {
	return c.Client.Del(ctx, c.Key).Err()
}
