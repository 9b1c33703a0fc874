package feeds

import (
	"context"
	"testing"

	"campusfeed/storage"
	"campusfeed/storage/models"
)

func emptyAlgorithm(context.Context, *storage.Manager, QueryParams) ([]models.Post, string, error) {
	return nil, CursorEOF, nil
}

func TestGetPageEOFShortCircuits(t *testing.T) {
	feed := NewFeed("test", nil, func(context.Context, *storage.Manager, QueryParams) ([]models.Post, string, error) {
		t.Fatal("algorithm must not run for an eof cursor")
		return nil, "", nil
	})

	response, err := feed.GetPage(context.Background(), QueryParams{Cursor: CursorEOF})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Cursor != CursorEOF {
		t.Errorf("cursor: got %q, want %q", response.Cursor, CursorEOF)
	}
	if len(response.Posts) != 0 {
		t.Errorf("posts: got %d, want 0", len(response.Posts))
	}
}

func TestGetPageCheckedAcceptsStableEpoch(t *testing.T) {
	feed := NewFeed("test", nil, emptyAlgorithm)

	_, ok, err := feed.GetPageChecked(context.Background(), QueryParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("response with no concurrent invalidation must be applied")
	}
}

func TestGetPageCheckedDiscardsSupersededResponse(t *testing.T) {
	var feed *Feed
	feed = NewFeed("test", nil, func(context.Context, *storage.Manager, QueryParams) ([]models.Post, string, error) {
		// A store-driven invalidation lands while the fetch is in flight.
		feed.Invalidate()
		return nil, CursorEOF, nil
	})

	_, ok, err := feed.GetPageChecked(context.Background(), QueryParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("superseded response must be discarded")
	}
}
