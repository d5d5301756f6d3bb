package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sproutsync/sproutsync/internal/models"
)

const (
	summaryKeyPrefix  = "summary:"
	summaryIndexKey   = "summary_keys:%s"
	DefaultSummaryTTL = 5 * time.Minute
)

// SummaryCache keeps daily summaries in Redis so repeated reads skip the
// store. Entries expire on their own; a sync pass additionally invalidates
// a child's entries so fresh data shows up immediately.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	if ttl <= 0 {
		ttl = DefaultSummaryTTL
	}
	return &SummaryCache{client: client, ttl: ttl}
}

func (c *SummaryCache) Get(ctx context.Context, childID, date string) (*models.DailySummary, error) {
	data, err := c.client.Get(ctx, summaryKey(childID, date)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached summary: %w", err)
	}

	var summary models.DailySummary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached summary: %w", err)
	}
	return &summary, nil
}

func (c *SummaryCache) Set(ctx context.Context, summary *models.DailySummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	key := summaryKey(summary.ChildID, summary.Date)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache summary: %w", err)
	}

	// Track the key in a per-child set so Invalidate can find it later.
	indexKey := fmt.Sprintf(summaryIndexKey, summary.ChildID)
	if err := c.client.SAdd(ctx, indexKey, key).Err(); err != nil {
		return fmt.Errorf("failed to index cached summary: %w", err)
	}
	if err := c.client.Expire(ctx, indexKey, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to expire summary index: %w", err)
	}
	return nil
}

// Invalidate drops every cached summary for a child.
func (c *SummaryCache) Invalidate(ctx context.Context, childID string) error {
	indexKey := fmt.Sprintf(summaryIndexKey, childID)

	keys, err := c.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list cached summaries: %w", err)
	}

	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete cached summaries: %w", err)
		}
	}

	if err := c.client.Del(ctx, indexKey).Err(); err != nil {
		return fmt.Errorf("failed to delete summary index: %w", err)
	}
	return nil
}

func summaryKey(childID, date string) string {
	return summaryKeyPrefix + childID + ":" + date
}
