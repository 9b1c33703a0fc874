package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const PostAuthorIdRedisKey = "posts_author_id"
const PostReactionsCountRedisKey = "posts_reactions_count"

// PostsCache keeps the hot per-post lookups (author id, live reaction count)
// off the database during reaction bursts.
type PostsCache struct {
	redisClient *redis.Client
	expiration  time.Duration
}

func NewPostsCache(redisConnection *redis.Client, expiration time.Duration) PostsCache {
	return PostsCache{
		redisClient: redisConnection,
		expiration:  expiration,
	}
}

func (c *PostsCache) AddPost(postID string, authorID string) {
	c.hSetWithExpiration(PostAuthorIdRedisKey, postID, authorID)
}

func (c *PostsCache) GetPostAuthorID(postID string) (string, bool) {
	authorID, err := c.redisClient.HGet(
		context.Background(),
		PostAuthorIdRedisKey,
		postID,
	).Result()
	if err != nil {
		return "", false
	}
	return authorID, true
}

func (c *PostsCache) AddReaction(postID string, delta int64) {
	ctx := context.Background()
	c.redisClient.HIncrBy(ctx, PostReactionsCountRedisKey, postID, delta)
	c.redisClient.HExpire(ctx, PostReactionsCountRedisKey, c.expiration, postID)
}

func (c *PostsCache) GetReactionsCount(postID string) (int64, bool) {
	countStr, err := c.redisClient.HGet(
		context.Background(),
		PostReactionsCountRedisKey,
		postID,
	).Result()
	if err != nil {
		return 0, false
	}
	count, err := strconv.ParseInt(countStr, 10, 64)
	if err != nil {
		log.Errorf("Could not convert value to int: %v", err)
		return 0, false
	}
	return count, true
}

// SetReactionsCount seeds the live counter from an authoritative read.
func (c *PostsCache) SetReactionsCount(postID string, count int64) {
	c.hSetWithExpiration(PostReactionsCountRedisKey, postID, strconv.FormatInt(count, 10))
}

func (c *PostsCache) DeletePost(postID string) {
	ctx := context.Background()
	c.redisClient.HDel(ctx, PostAuthorIdRedisKey, postID)
	c.redisClient.HDel(ctx, PostReactionsCountRedisKey, postID)
}

func (c *PostsCache) DeletePosts(postIDs []string) {
	if len(postIDs) == 0 {
		return
	}
	ctx := context.Background()
	c.redisClient.HDel(ctx, PostAuthorIdRedisKey, postIDs...)
	c.redisClient.HDel(ctx, PostReactionsCountRedisKey, postIDs...)
}

func (c *PostsCache) hSetWithExpiration(redisKey, key, value string) {
	ctx := context.Background()
	c.redisClient.HSet(ctx, redisKey, key, value)
	c.redisClient.HExpire(ctx, redisKey, c.expiration, key)
}
