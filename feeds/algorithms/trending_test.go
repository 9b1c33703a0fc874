package algorithms

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusfeed/feeds"
	"campusfeed/storage/cache"
	"campusfeed/storage/models"
)

func post(likes, comments, shares, views int64, createdAt time.Time) models.Post {
	return models.Post{
		ID:            primitive.NewObjectIDFromTimestamp(createdAt),
		LikesCount:    likes,
		CommentsCount: comments,
		SharesCount:   shares,
		ViewsCount:    views,
		CreatedAt:     createdAt,
	}
}

var engagementTests = []struct {
	name     string
	post     models.Post
	expected int64
}{
	{"no engagement", post(0, 0, 0, 0, time.Now()), 0},
	{"likes weigh three", post(10, 0, 0, 0, time.Now()), 30},
	{"comments weigh two", post(0, 5, 0, 0, time.Now()), 10},
	{"shares weigh two", post(0, 0, 4, 0, time.Now()), 8},
	{"views weigh one", post(0, 0, 0, 7, time.Now()), 7},
	{"mixed", post(2, 3, 1, 10, time.Now()), 24},
}

func TestEngagementScore(t *testing.T) {
	for _, tt := range engagementTests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EngagementScore(&tt.post); got != tt.expected {
				t.Errorf("got %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestRankTrendingOrdersByScore(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	low := post(1, 0, 0, 0, base)
	mid := post(0, 5, 0, 0, base.Add(time.Minute))
	high := post(10, 2, 1, 0, base.Add(2*time.Minute))

	ranked := RankTrending([]models.Post{low, mid, high})

	if ranked[0].ID != high.ID || ranked[1].ID != mid.ID || ranked[2].ID != low.ID {
		t.Errorf("wrong order: got scores %d, %d, %d",
			EngagementScore(&ranked[0]), EngagementScore(&ranked[1]), EngagementScore(&ranked[2]))
	}
}

// Equal scores fall back to recency, newest first.
func TestRankTrendingTieBreaksByRecency(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	older := post(2, 0, 0, 0, base)
	newer := post(2, 0, 0, 0, base.Add(time.Hour))

	ranked := RankTrending([]models.Post{older, newer})

	if ranked[0].ID != newer.ID {
		t.Error("tie should be broken by newer created_at")
	}
}

// The cached timeline dictates page order; posts deleted since the warm-up
// are dropped rather than served stale.
func TestOrderByTimeline(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	first := post(9, 0, 0, 0, base.Add(2*time.Minute))
	second := post(4, 0, 0, 0, base.Add(time.Minute))
	deleted := post(2, 0, 0, 0, base)

	entries := []cache.Entry{
		{CreatedAt: first.CreatedAt, PostID: first.ID.Hex(), AuthorID: first.AuthorID},
		{CreatedAt: second.CreatedAt, PostID: second.ID.Hex(), AuthorID: second.AuthorID},
		{CreatedAt: deleted.CreatedAt, PostID: deleted.ID.Hex(), AuthorID: deleted.AuthorID},
	}
	// Fetch order is not rank order; the deleted post never comes back.
	fetched := []models.Post{second, first}

	ordered := orderByTimeline(entries, fetched)

	if len(ordered) != 2 {
		t.Fatalf("posts: got %d, want 2", len(ordered))
	}
	if ordered[0].ID != first.ID || ordered[1].ID != second.ID {
		t.Error("posts must come back in timeline rank order")
	}
}

func TestRankedAfterCursorResumesWithoutDuplicates(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	posts := RankTrending([]models.Post{
		post(5, 0, 0, 0, base.Add(3*time.Minute)),
		post(3, 0, 0, 0, base.Add(2*time.Minute)),
		post(1, 0, 0, 0, base.Add(time.Minute)),
	})

	// Page break after the first row.
	last := &posts[0]
	encoded := feeds.EncodeRankCursor(EngagementScore(last), last.CreatedAt, last.ID)
	cursor, resuming, err := feeds.DecodeRankCursor(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resuming {
		t.Fatal("expected resuming cursor")
	}

	if rankedAfterCursor(&posts[0], cursor) {
		t.Error("row already delivered must not sort after the cursor")
	}
	if !rankedAfterCursor(&posts[1], cursor) || !rankedAfterCursor(&posts[2], cursor) {
		t.Error("undelivered rows must sort after the cursor")
	}
}
