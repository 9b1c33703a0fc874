package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"campusfeed/storage/models"
)

const UsersSnapshotRedisKey = "users_snapshot"

// UsersCache keeps denormalized author snapshots so feed pages do not pay a
// profile lookup per post.
type UsersCache struct {
	redisClient *redis.Client
	expiration  time.Duration
}

func NewUsersCache(redisConnection *redis.Client, expiration time.Duration) UsersCache {
	return UsersCache{
		redisClient: redisConnection,
		expiration:  expiration,
	}
}

func (c *UsersCache) AddAuthor(author models.Author) {
	bytes, err := json.Marshal(author)
	if err != nil {
		return
	}
	ctx := context.Background()
	c.redisClient.HSet(ctx, UsersSnapshotRedisKey, author.ID, bytes)
	c.redisClient.HExpire(ctx, UsersSnapshotRedisKey, c.expiration, author.ID)
}

func (c *UsersCache) GetAuthor(userID string) (models.Author, bool) {
	val, err := c.redisClient.HGet(
		context.Background(),
		UsersSnapshotRedisKey,
		userID,
	).Result()
	if err != nil {
		return models.Author{}, false
	}

	var author models.Author
	if err := json.Unmarshal([]byte(val), &author); err != nil {
		log.Errorf("Error unmarshalling author snapshot: %s", err)
		return models.Author{}, false
	}
	return author, true
}

func (c *UsersCache) DeleteAuthor(userID string) {
	c.redisClient.HDel(context.Background(), UsersSnapshotRedisKey, userID)
}
