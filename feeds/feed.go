package feeds

import (
	"context"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusfeed/storage"
	"campusfeed/storage/models"
)

const DefaultPageSize = 20

// Feed composes one ranked view. It is safe for concurrent use; the epoch
// counter lets callers discard responses that were superseded by a scope
// change or a store-driven invalidation while the fetch was in flight.
type Feed struct {
	Name  string
	store *storage.Manager

	algorithm Algorithm
	epoch     atomic.Uint64
}

func NewFeed(name string, store *storage.Manager, algorithm Algorithm) *Feed {
	return &Feed{
		Name:      name,
		store:     store,
		algorithm: algorithm,
	}
}

// Invalidate marks every in-flight page fetch as superseded.
func (f *Feed) Invalidate() {
	f.epoch.Add(1)
}

// GetPage runs the algorithm and hydrates the rows with author snapshots and
// the viewer's reaction/saved state.
func (f *Feed) GetPage(ctx context.Context, params QueryParams) (Response, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultPageSize
	}
	if params.Cursor == CursorEOF {
		return Response{Cursor: CursorEOF, Posts: []Post{}}, nil
	}

	posts, next, err := f.algorithm(ctx, f.store, params)
	if err != nil {
		return Response{}, err
	}

	hydrated, err := f.hydrate(ctx, params.ViewerID, posts)
	if err != nil {
		return Response{}, err
	}
	return Response{Cursor: next, Posts: hydrated}, nil
}

// GetPageChecked is GetPage plus epoch tagging: when the feed was
// invalidated while the fetch ran, ok is false and the caller must not apply
// the stale response.
func (f *Feed) GetPageChecked(ctx context.Context, params QueryParams) (Response, bool, error) {
	epoch := f.epoch.Load()
	response, err := f.GetPage(ctx, params)
	if err != nil {
		return Response{}, false, err
	}
	if epoch != f.epoch.Load() {
		return Response{}, false, nil
	}
	return response, true, nil
}

func (f *Feed) hydrate(ctx context.Context, viewerID string, posts []models.Post) ([]Post, error) {
	if len(posts) == 0 {
		return []Post{}, nil
	}

	authorIDs := make([]string, 0, len(posts))
	postIDs := make([]primitive.ObjectID, 0, len(posts))
	for i := range posts {
		authorIDs = append(authorIDs, posts[i].AuthorID)
		postIDs = append(postIDs, posts[i].ID)
	}

	authors, err := f.store.GetAuthors(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	states, err := f.store.GetViewerState(ctx, viewerID, postIDs)
	if err != nil {
		return nil, err
	}

	hydrated := make([]Post, len(posts))
	for i := range posts {
		state := states[posts[i].ID]
		hydrated[i] = Post{
			Post:           posts[i],
			Author:         authors[posts[i].AuthorID],
			ViewerReaction: state.Reaction,
			Saved:          state.Saved,
		}
	}
	return hydrated, nil
}
