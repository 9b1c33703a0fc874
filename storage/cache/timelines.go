package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Entry is the serialized member kept in a timeline ZSET. CreatedAt first so
// Redis lexicographic ordering on equal scores favors recency.
type Entry struct {
	CreatedAt time.Time `json:"created_at"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
}

// Timelines keeps ranked post ids per feed in Redis sorted sets. The score
// is the feed's rank (engagement score for trending), descending on read.
type Timelines struct {
	redisClient *redis.Client
}

func NewTimelines(redisConnection *redis.Client) Timelines {
	return Timelines{redisClient: redisConnection}
}

func (c *Timelines) AddEntry(feedName string, rank float64, entry Entry) {
	bytes, err := json.Marshal(entry)
	if err != nil {
		return
	}
	c.redisClient.ZAdd(
		context.Background(),
		c.getRedisKey(feedName),
		redis.Z{
			Score:  rank,
			Member: bytes,
		},
	)
}

// GetEntries returns up to limit entries ranked highest-first, starting at
// startIndex.
func (c *Timelines) GetEntries(feedName string, startIndex, limit int64) []Entry {
	members := c.redisClient.ZRevRange(
		context.Background(),
		c.getRedisKey(feedName),
		startIndex,
		startIndex+limit-1,
	)
	entries := make([]Entry, 0, len(members.Val()))
	for _, member := range members.Val() {
		var entry Entry
		if err := json.Unmarshal([]byte(member), &entry); err != nil {
			log.Errorf("Error unmarshalling timeline entry: %s", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// DeleteExpiredEntries drops members created before the given instant. Ranks
// are engagement scores, so expiry is checked on the serialized member.
func (c *Timelines) DeleteExpiredEntries(feedName string, expiration time.Time) {
	ctx := context.Background()
	key := c.getRedisKey(feedName)

	members := c.redisClient.ZRange(ctx, key, 0, -1)
	for _, member := range members.Val() {
		var entry Entry
		if err := json.Unmarshal([]byte(member), &entry); err != nil {
			c.redisClient.ZRem(ctx, key, member)
			continue
		}
		if entry.CreatedAt.Before(expiration) {
			c.redisClient.ZRem(ctx, key, member)
		}
	}
}

func (c *Timelines) Clear(feedName string) {
	c.redisClient.Del(context.Background(), c.getRedisKey(feedName))
}

func (c *Timelines) getRedisKey(feedName string) string {
	return fmt.Sprintf("feed__%s", feedName)
}
