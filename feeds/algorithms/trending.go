package algorithms

import (
	"context"
	"os"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusfeed/feeds"
	"campusfeed/storage"
	"campusfeed/storage/cache"
	"campusfeed/storage/models"
	"campusfeed/utils"
)

// Engagement weights, likes:comments:shares:views.
const (
	weightLikes    = 3
	weightComments = 2
	weightShares   = 2
	weightViews    = 1
)

const trendingScanCap = 1000

func trendingWindow() time.Duration {
	hours := utils.IntFromString(os.Getenv("TRENDING_WINDOW_HOURS"), 24)
	return time.Duration(hours) * time.Hour
}

// EngagementScore is the weighted ranking score of a post.
func EngagementScore(post *models.Post) int64 {
	return weightLikes*post.LikesCount +
		weightComments*post.CommentsCount +
		weightShares*post.SharesCount +
		weightViews*post.ViewsCount
}

// rankLess orders two posts for the trending feed: higher score first, ties
// broken by more recent creation, then by id for determinism.
func rankLess(a, b *models.Post) bool {
	scoreA, scoreB := EngagementScore(a), EngagementScore(b)
	if scoreA != scoreB {
		return scoreA > scoreB
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.Hex() > b.ID.Hex()
}

// RankTrending sorts posts into trending order in place and returns them.
func RankTrending(posts []models.Post) []models.Post {
	sort.SliceStable(posts, func(i, j int) bool {
		return rankLess(&posts[i], &posts[j])
	})
	return posts
}

// Trending ranks the recency window by engagement and resumes after the
// cursor's (score, created_at, id) key, so a post entering the window
// between pages cannot duplicate rows already delivered.
func Trending(
	ctx context.Context,
	store *storage.Manager,
	params feeds.QueryParams,
) ([]models.Post, string, error) {
	cursor, resuming, err := feeds.DecodeRankCursor(params.Cursor)
	if err != nil {
		return nil, feeds.CursorEOF, storage.NewValidationError(err.Error())
	}

	// The first unscoped page is served from the warm redis timeline when a
	// full page is cached, skipping the window scan entirely.
	if !resuming && params.CampusID == "" && params.DepartmentID == "" {
		if page, next, ok := trendingFromTimeline(ctx, store, params.Limit); ok {
			return page, next, nil
		}
	}

	since := time.Now().UTC().Add(-trendingWindow())
	window, err := store.ListRecentPosts(ctx, params.CampusID, params.DepartmentID, since, trendingScanCap)
	if err != nil {
		return nil, feeds.CursorEOF, err
	}
	ranked := RankTrending(window)

	// Re-warm the timeline so the next unscoped first page is a cache hit.
	if !resuming && params.CampusID == "" && params.DepartmentID == "" {
		timelines := store.TimelineCache()
		for i := range ranked {
			if int64(i) >= params.Limit {
				break
			}
			timelines.AddEntry(
				storage.TrendingFeedName,
				float64(EngagementScore(&ranked[i])),
				cache.Entry{
					CreatedAt: ranked[i].CreatedAt,
					PostID:    ranked[i].ID.Hex(),
					AuthorID:  ranked[i].AuthorID,
				},
			)
		}
	}

	start := 0
	if resuming {
		start = len(ranked)
		for i := range ranked {
			if rankedAfterCursor(&ranked[i], cursor) {
				start = i
				break
			}
		}
	}

	end := start + int(params.Limit)
	if end > len(ranked) {
		end = len(ranked)
	}
	page := ranked[start:end]

	next := feeds.CursorEOF
	if end < len(ranked) && len(page) > 0 {
		last := &page[len(page)-1]
		next = feeds.EncodeRankCursor(EngagementScore(last), last.CreatedAt, last.ID)
	}
	return page, next, nil
}

// trendingFromTimeline reads the cached unscoped ranking. Anything short of
// a full page falls through to the scan, which re-warms the timeline.
func trendingFromTimeline(
	ctx context.Context,
	store *storage.Manager,
	limit int64,
) ([]models.Post, string, bool) {
	entries := store.TimelineCache().GetEntries(storage.TrendingFeedName, 0, limit)
	if int64(len(entries)) < limit {
		return nil, "", false
	}

	ids := make([]primitive.ObjectID, 0, len(entries))
	for _, entry := range entries {
		id, err := primitive.ObjectIDFromHex(entry.PostID)
		if err != nil {
			return nil, "", false
		}
		ids = append(ids, id)
	}
	posts, err := store.GetPostsByIDs(ctx, ids)
	if err != nil {
		return nil, "", false
	}

	ordered := orderByTimeline(entries, posts)
	if int64(len(ordered)) < limit {
		return nil, "", false
	}

	last := &ordered[len(ordered)-1]
	next := feeds.EncodeRankCursor(EngagementScore(last), last.CreatedAt, last.ID)
	return ordered, next, true
}

// orderByTimeline arranges fetched posts in the timeline's rank order,
// dropping entries whose post has disappeared since the cache was warmed.
func orderByTimeline(entries []cache.Entry, posts []models.Post) []models.Post {
	byID := make(map[string]models.Post, len(posts))
	for _, post := range posts {
		byID[post.ID.Hex()] = post
	}

	ordered := make([]models.Post, 0, len(entries))
	for _, entry := range entries {
		if post, ok := byID[entry.PostID]; ok {
			ordered = append(ordered, post)
		}
	}
	return ordered
}

// rankedAfterCursor reports whether a post sorts strictly after the cursor
// key in trending order.
func rankedAfterCursor(post *models.Post, cursor feeds.RankCursor) bool {
	score := EngagementScore(post)
	if score != cursor.Score {
		return score < cursor.Score
	}
	if !post.CreatedAt.Equal(cursor.CreatedAt) {
		return post.CreatedAt.Before(cursor.CreatedAt)
	}
	return post.ID.Hex() < cursor.ID.Hex()
}
