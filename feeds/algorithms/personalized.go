package algorithms

import (
	"context"

	"campusfeed/feeds"
	"campusfeed/storage"
	"campusfeed/storage/models"
)

// Personalized pages posts authored by the viewer and the users they follow,
// newest first, behind a (created_at, id) cursor.
func Personalized(
	ctx context.Context,
	store *storage.Manager,
	params feeds.QueryParams,
) ([]models.Post, string, error) {
	if params.ViewerID == "" {
		return nil, feeds.CursorEOF, storage.NewValidationError("personalized feed needs a viewer")
	}

	cursor, err := feeds.DecodeChronoCursor(params.Cursor)
	if err != nil {
		return nil, feeds.CursorEOF, storage.NewValidationError(err.Error())
	}

	followed, err := store.GetFollowedIDs(ctx, params.ViewerID)
	if err != nil {
		return nil, feeds.CursorEOF, err
	}
	authors := append(followed, params.ViewerID)

	posts, err := store.ListPostsByAuthors(
		ctx,
		params.ViewerID,
		authors,
		cursor.CreatedAt,
		cursor.ID,
		params.Limit,
	)
	if err != nil {
		return nil, feeds.CursorEOF, err
	}

	next := feeds.CursorEOF
	if int64(len(posts)) == params.Limit && len(posts) > 0 {
		last := posts[len(posts)-1]
		next = feeds.EncodeChronoCursor(last.CreatedAt, last.ID)
	}
	return posts, next, nil
}
